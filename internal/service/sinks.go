package service

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"liquidator/internal/models"
	"liquidator/internal/repository"
)

// LogSink пишет события в структурированный лог
type LogSink struct {
	log *zap.Logger
}

// NewLogSink создает лог-канал
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events")}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Send(event *models.Event) error {
	fields := []zap.Field{
		zap.String("type", event.Type),
		zap.String("severity", event.Severity),
		zap.Any("meta", event.Meta),
	}
	if event.Account != nil {
		fields = append(fields, zap.String("account", *event.Account))
	}

	switch event.Severity {
	case models.SeverityError:
		s.log.Error(event.Message, fields...)
	case models.SeverityWarn:
		s.log.Warn(event.Message, fields...)
	default:
		s.log.Info(event.Message, fields...)
	}
	return nil
}

// JournalSink пишет события в таблицу events (персистентный журнал)
type JournalSink struct {
	repo *repository.EventRepository
}

// NewJournalSink создает канал записи в БД
func NewJournalSink(repo *repository.EventRepository) *JournalSink {
	return &JournalSink{repo: repo}
}

func (s *JournalSink) Name() string {
	return "journal"
}

func (s *JournalSink) Send(event *models.Event) error {
	return s.repo.Create(event)
}

// Broadcaster - интерфейс для отправки событий WebSocket клиентам
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type Broadcaster interface {
	BroadcastEvent(event *models.Event)
}

// HubSink транслирует события подключенным WebSocket клиентам
type HubSink struct {
	hub Broadcaster
}

// NewHubSink создает канал трансляции через WebSocket hub
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string {
	return "websocket"
}

func (s *HubSink) Send(event *models.Event) error {
	s.hub.BroadcastEvent(event)
	return nil
}

// TelegramSink отправляет события в Telegram чат
//
// Подходит для дежурных уведомлений: ликвидации и деградация процессора
// видны без открытия дашборда.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink создает Telegram-канал доставки
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSink) Name() string {
	return "telegram"
}

func (s *TelegramSink) Send(event *models.Event) error {
	msg := tgbotapi.NewMessage(s.chatID, formatTelegramMessage(event))
	_, err := s.bot.Send(msg)
	return err
}

// formatTelegramMessage собирает читаемый текст уведомления
func formatTelegramMessage(event *models.Event) string {
	var b strings.Builder

	switch event.Severity {
	case models.SeverityError:
		b.WriteString("[ERROR] ")
	case models.SeverityWarn:
		b.WriteString("[WARN] ")
	}

	b.WriteString(event.Type)
	b.WriteString(": ")
	b.WriteString(event.Message)

	if event.Account != nil {
		b.WriteString("\naccount: ")
		b.WriteString(*event.Account)
	}
	if sig, ok := event.Meta["tx_signature"].(string); ok {
		b.WriteString("\ntx: ")
		b.WriteString(sig)
	}

	return b.String()
}
