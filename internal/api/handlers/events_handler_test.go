package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"liquidator/internal/models"
)

// TestEventsHandler_GetEvents проверяет получение журнала без фильтров
func TestEventsHandler_GetEvents(t *testing.T) {
	store := &mockEventStore{
		events: []*models.Event{
			{ID: 2, Type: models.EventTypeLiquidation, Severity: models.SeverityInfo, Message: "liquidation succeeded", Timestamp: time.Now()},
			{ID: 1, Type: models.EventTypeStateChange, Severity: models.SeverityInfo, Message: "processor state changed to HEALTHY", Timestamp: time.Now()},
		},
	}
	handler := NewEventsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if store.byTypesCalled {
		t.Errorf("GetByTypes must not be called without types filter")
	}
	if store.lastLimit != 100 {
		t.Errorf("default limit = %d, want 100", store.lastLimit)
	}

	var resp GetEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

// TestEventsHandler_GetEvents_TypeFilter проверяет фильтрацию и нормализацию типов
func TestEventsHandler_GetEvents_TypeFilter(t *testing.T) {
	store := &mockEventStore{}
	handler := NewEventsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?types=liquidation,%20error,bogus&limit=50", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if !store.byTypesCalled {
		t.Fatalf("GetByTypes must be called with types filter")
	}
	if len(store.lastTypes) != 2 {
		t.Errorf("types = %v, want [LIQUIDATION ERROR]", store.lastTypes)
	}
	if store.lastLimit != 50 {
		t.Errorf("limit = %d, want 50", store.lastLimit)
	}
}

// TestEventsHandler_GetEvents_LimitCap: лимит обрезается до 500
func TestEventsHandler_GetEvents_LimitCap(t *testing.T) {
	store := &mockEventStore{}
	handler := NewEventsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=9999", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	if store.lastLimit != 500 {
		t.Errorf("limit = %d, want 500", store.lastLimit)
	}
}

// TestEventsHandler_GetEvents_EmptyJournal: пустой журнал отдаёт [], не null
func TestEventsHandler_GetEvents_EmptyJournal(t *testing.T) {
	handler := NewEventsHandler(&mockEventStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `"events":[]`) {
		t.Errorf("empty journal must serialize as [], got: %s", body)
	}
}

// TestEventsHandler_GetEvents_StoreError проверяет обработку ошибки БД
func TestEventsHandler_GetEvents_StoreError(t *testing.T) {
	handler := NewEventsHandler(&mockEventStore{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", rec.Code)
	}
}

// TestEventsHandler_ClearEvents проверяет очистку журнала
func TestEventsHandler_ClearEvents(t *testing.T) {
	store := &mockEventStore{}
	handler := NewEventsHandler(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.ClearEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200", rec.Code)
	}
	if !store.deleteCalled {
		t.Errorf("DeleteAll was not called")
	}
}
