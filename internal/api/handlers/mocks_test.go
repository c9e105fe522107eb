package handlers

import (
	"liquidator/internal/engine"
	"liquidator/internal/models"
)

// mockStatusProvider - мок источника сводки процессора
type mockStatusProvider struct {
	status   engine.Status
	accounts []engine.AccountView
}

func (m *mockStatusProvider) Status() engine.Status {
	return m.status
}

func (m *mockStatusProvider) Accounts() []engine.AccountView {
	return m.accounts
}

// mockEventStore - мок журнала событий
type mockEventStore struct {
	events        []*models.Event
	err           error
	deleteCalled  bool
	lastTypes     []string
	lastLimit     int
	byTypesCalled bool
}

func (m *mockEventStore) GetRecent(limit int) ([]*models.Event, error) {
	m.lastLimit = limit
	return m.events, m.err
}

func (m *mockEventStore) GetByTypes(types []string, limit int) ([]*models.Event, error) {
	m.byTypesCalled = true
	m.lastTypes = types
	m.lastLimit = limit
	return m.events, m.err
}

func (m *mockEventStore) Count() (int, error) {
	return len(m.events), m.err
}

func (m *mockEventStore) DeleteAll() error {
	m.deleteCalled = true
	return m.err
}
