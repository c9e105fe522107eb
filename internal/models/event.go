package models

import "time"

// Event представляет событие жизненного цикла процессора
//
// Публикуется в Notification Sink (fan-out по настроенным каналам)
// и журналируется в БД. После создания не мутируется.
type Event struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // LIQUIDATION, STATE_CHANGE, REBALANCE, ERROR
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	Account   *string                `json:"account,omitempty" db:"account"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы событий
const (
	EventTypeLiquidation = "LIQUIDATION"  // завершённая попытка ликвидации (успех или неудача)
	EventTypeStateChange = "STATE_CHANGE" // переход состояния процессора
	EventTypeRebalance   = "REBALANCE"    // корректирующая сделка балансировщика
	EventTypeError       = "ERROR"        // ошибка внешнего вызова
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// LiquidationEvent - неизменяемая запись о завершённой попытке ликвидации
//
// Создаётся ровно один раз на попытку, после разрешения InFlight-окна.
type LiquidationEvent struct {
	Account     string    `json:"account"`
	Owner       string    `json:"owner"`
	Succeeded   bool      `json:"succeeded"`
	TxSignature string    `json:"tx_signature,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToEvent конвертирует запись в журнальное событие для sink'ов
func (l LiquidationEvent) ToEvent() *Event {
	severity := SeverityInfo
	message := "liquidation succeeded"
	if !l.Succeeded {
		severity = SeverityWarn
		message = "liquidation failed"
	}
	account := l.Account
	meta := map[string]interface{}{
		"owner":     l.Owner,
		"succeeded": l.Succeeded,
	}
	if l.TxSignature != "" {
		meta["tx_signature"] = l.TxSignature
	}
	if l.Error != "" {
		meta["error"] = l.Error
	}
	return &Event{
		Timestamp: l.Timestamp,
		Type:      EventTypeLiquidation,
		Severity:  severity,
		Account:   &account,
		Message:   message,
		Meta:      meta,
	}
}
