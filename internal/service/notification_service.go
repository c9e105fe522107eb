package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"liquidator/internal/models"
)

// Sink - один канал доставки событий (лог, журнал БД, websocket, telegram)
//
// Send может блокироваться и падать: fan-out изолирует каналы друг
// от друга, отказ одного не задерживает остальные.
type Sink interface {
	Name() string
	Send(event *models.Event) error
}

// NotificationService раздаёт события движка по настроенным каналам
//
// Publish не блокирует вызывающего: каждый sink получает событие
// в отдельной горутине, ошибки доставки логируются и глотаются.
// Набор sink'ов фиксируется на старте и дальше не мутируется.
type NotificationService struct {
	log   *zap.Logger
	sinks []Sink
	wg    sync.WaitGroup
}

// NewNotificationService создает сервис с набором каналов доставки
func NewNotificationService(log *zap.Logger, sinks ...Sink) *NotificationService {
	return &NotificationService{
		log:   log.Named("notifications"),
		sinks: sinks,
	}
}

// Publish отправляет событие во все каналы (fire-and-forget)
//
// Каждый sink получает собственную копию события: каналы работают
// параллельно, а журнал при вставке проставляет ID. Опубликованное
// событие после Publish не меняется.
func (s *NotificationService) Publish(event *models.Event) {
	if event == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sink := range s.sinks {
		sink := sink
		ev := copyEvent(event)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := sink.Send(ev); err != nil {
				s.log.Warn("event delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("event_type", ev.Type),
					zap.Error(err),
				)
			}
		}()
	}
}

// copyEvent снимает копию события для одного канала доставки
func copyEvent(event *models.Event) *models.Event {
	ev := *event
	if event.Meta != nil {
		ev.Meta = make(map[string]interface{}, len(event.Meta))
		for k, v := range event.Meta {
			ev.Meta[k] = v
		}
	}
	return &ev
}

// Flush дожидается доставки всех опубликованных событий.
// Используется при graceful shutdown и в тестах.
func (s *NotificationService) Flush() {
	s.wg.Wait()
}

// PublishError - событие об ошибке внешнего вызова
func (s *NotificationService) PublishError(message string, err error) {
	s.Publish(&models.Event{
		Type:     models.EventTypeError,
		Severity: models.SeverityError,
		Message:  message,
		Meta:     map[string]interface{}{"error": err.Error()},
	})
}
