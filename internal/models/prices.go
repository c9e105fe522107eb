package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot - снимок цен: инструмент → текущая цена в котируемой валюте
//
// Заменяется целиком на каждом обновлении. Частичные наборы легальны:
// временно недоступный оракул означает "цена неизвестна", а не ноль.
// Классификатор обязан трактовать отсутствующую цену как Unknown.
type PriceSnapshot struct {
	Prices map[string]decimal.Decimal `json:"prices"`

	// Slot - слот цепочки на момент снимка (0 если оракул слот не отдаёт)
	Slot uint64 `json:"slot"`

	// Timestamp - маркер свежести; используется для monotonicity guard
	// в процессоре (устаревший снимок от конкурентного фетчера отбрасывается)
	Timestamp time.Time `json:"timestamp"`
}

// Lookup возвращает цену инструмента и признак её наличия
func (p *PriceSnapshot) Lookup(instrument string) (decimal.Decimal, bool) {
	if p == nil || p.Prices == nil {
		return decimal.Zero, false
	}
	price, ok := p.Prices[instrument]
	return price, ok
}

// NewerThan возвращает true если снимок свежее other.
// Сравниваем слоты, если оба известны, иначе - временные метки.
// Равная свежесть считается устаревшей (no-op при повторной доставке).
func (p *PriceSnapshot) NewerThan(other *PriceSnapshot) bool {
	if other == nil {
		return true
	}
	if p.Slot != 0 && other.Slot != 0 {
		return p.Slot > other.Slot
	}
	return p.Timestamp.After(other.Timestamp)
}
