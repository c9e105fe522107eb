package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"liquidator/internal/models"
)

// EventStore - доступ к журналу событий
type EventStore interface {
	GetRecent(limit int) ([]*models.Event, error)
	GetByTypes(types []string, limit int) ([]*models.Event, error)
	Count() (int, error)
	DeleteAll() error
}

// EventsHandler отвечает за журнал событий движка
//
// Endpoints:
// - GET /api/v1/events - получение журнала событий
// - GET /api/v1/events?types=liquidation,error - с фильтрацией по типам
// - GET /api/v1/events?limit=50 - с ограничением количества
// - DELETE /api/v1/events - очистка журнала
type EventsHandler struct {
	store EventStore
}

// NewEventsHandler создает новый EventsHandler с внедрением зависимости
func NewEventsHandler(store EventStore) *EventsHandler {
	return &EventsHandler{store: store}
}

// GetEventsResponse представляет ответ списка событий
type GetEventsResponse struct {
	Events []*models.Event `json:"events"`
	Total  int             `json:"total"`
}

// GetEvents возвращает журнал событий с фильтрацией
//
// GET /api/v1/events
//
// Query параметры:
// - types (string): фильтр по типам через запятую (liquidation,state_change,rebalance,error)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив событий (новые сверху)
// - 500 Internal Server Error: ошибка БД
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	typesParam := r.URL.Query().Get("types")
	limitParam := r.URL.Query().Get("limit")

	var types []string
	if typesParam != "" {
		for _, part := range strings.Split(typesParam, ",") {
			trimmed := strings.ToUpper(strings.TrimSpace(part))
			if trimmed != "" && isValidEventType(trimmed) {
				types = append(types, trimmed)
			}
		}
	}

	limit := 100
	if limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	var (
		events []*models.Event
		err    error
	)
	if len(types) > 0 {
		events, err = h.store.GetByTypes(types, limit)
	} else {
		events, err = h.store.GetRecent(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get events: "+err.Error())
		return
	}

	if events == nil {
		events = []*models.Event{}
	}

	respondWithJSON(w, http.StatusOK, GetEventsResponse{
		Events: events,
		Total:  len(events),
	})
}

// ClearEvents очищает журнал событий
//
// DELETE /api/v1/events
//
// Удаляет все события из базы данных. Это действие необратимо.
//
// HTTP коды:
// - 200 OK: журнал успешно очищен
// - 500 Internal Server Error: ошибка при очистке
func (h *EventsHandler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAll(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to clear events: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Events cleared successfully",
	})
}

// isValidEventType проверяет, является ли тип допустимым
func isValidEventType(eventType string) bool {
	switch eventType {
	case models.EventTypeLiquidation,
		models.EventTypeStateChange,
		models.EventTypeRebalance,
		models.EventTypeError:
		return true
	default:
		return false
	}
}
