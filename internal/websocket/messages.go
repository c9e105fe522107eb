package websocket

import (
	"time"

	"liquidator/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeEvent - событие движка (ликвидация, смена состояния, ребаланс)
	// Отправляется в момент публикации события
	MessageTypeEvent MessageType = "event"

	// MessageTypeStatus - сводка состояния процессора
	// Отправляется периодически и при смене состояния
	MessageTypeStatus MessageType = "statusUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventMessage - сообщение с событием движка
type EventMessage struct {
	BaseMessage
	Data *EventData `json:"data"`
}

// EventData - данные события
type EventData struct {
	// ID события в БД (0, если событие ещё не журналировано)
	ID int `json:"id"`

	// Тип события (LIQUIDATION, STATE_CHANGE, REBALANCE, ERROR)
	Type string `json:"type"`

	// Уровень важности (info, warn, error)
	Severity string `json:"severity"`

	// Адрес связанного аккаунта (если применимо)
	Account *string `json:"account,omitempty"`

	// Текст сообщения
	Message string `json:"message"`

	// Дополнительные метаданные (подпись транзакции, причина отказа)
	Meta map[string]interface{} `json:"meta,omitempty"`

	// Время события
	Timestamp time.Time `json:"timestamp"`
}

// StatusMessage - сообщение со сводкой процессора
type StatusMessage struct {
	BaseMessage
	Data interface{} `json:"data"`
}

// NewEventMessage создает сообщение с событием
func NewEventMessage(event *models.Event) *EventMessage {
	return &EventMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeEvent,
			Timestamp: time.Now(),
		},
		Data: &EventData{
			ID:        event.ID,
			Type:      event.Type,
			Severity:  event.Severity,
			Account:   event.Account,
			Message:   event.Message,
			Meta:      event.Meta,
			Timestamp: event.Timestamp,
		},
	}
}

// NewStatusMessage создает сообщение со сводкой процессора
func NewStatusMessage(status interface{}) *StatusMessage {
	return &StatusMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatus,
			Timestamp: time.Now(),
		},
		Data: status,
	}
}
