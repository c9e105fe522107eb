package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenBalance - баланс одного инструмента внутри маржинального аккаунта
//
// Deposited - внесённое обеспечение (актив), Borrowed - займ (пассив).
// Оба значения неотрицательны; нетто считается на лету.
type TokenBalance struct {
	Instrument string          `json:"instrument"`
	Deposited  decimal.Decimal `json:"deposited"`
	Borrowed   decimal.Decimal `json:"borrowed"`
}

// IsZero возвращает true если по инструменту нет ни депозита, ни займа
func (b TokenBalance) IsZero() bool {
	return b.Deposited.IsZero() && b.Borrowed.IsZero()
}

// AccountSnapshot - неизменяемый снимок маржинального аккаунта
//
// Производится целиком считывателем цепочки (chain reader) на каждом опросе.
// Процессор хранит последний набор снимков и заменяет его целиком -
// никогда не мержит. Инвариант: не более одного живого снимка на адрес.
type AccountSnapshot struct {
	// Address - адрес аккаунта в протоколе (уникальный ключ)
	Address string `json:"address"`

	// Owner - адрес владельца аккаунта
	Owner string `json:"owner"`

	// Balances - балансы по инструментам
	Balances []TokenBalance `json:"balances"`

	// HealthRatio - коэффициент здоровья, посчитанный считывателем.
	// Непрозрачные данные протокола: классификатор его не использует,
	// но отдаёт наружу для диагностики.
	HealthRatio decimal.Decimal `json:"health_ratio"`

	// Slot - слот цепочки на момент снимка (маркер свежести)
	Slot uint64 `json:"slot"`

	// FetchedAt - время получения снимка
	FetchedAt time.Time `json:"fetched_at"`
}

// HasLiabilities возвращает true если у аккаунта есть хотя бы один займ
func (a *AccountSnapshot) HasLiabilities() bool {
	for _, b := range a.Balances {
		if b.Borrowed.Sign() > 0 {
			return true
		}
	}
	return false
}
