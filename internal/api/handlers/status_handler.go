package handlers

import (
	"net/http"
	"sort"

	"liquidator/internal/engine"
	"liquidator/internal/models"
)

// StatusProvider - источник сводки процессора и списка аккаунтов
//
// Позволяет избежать прямой зависимости от engine.Processor в тестах
type StatusProvider interface {
	Status() engine.Status
	Accounts() []engine.AccountView
}

// StatusHandler отвечает за наблюдаемость процессора
//
// Endpoints:
// - GET /api/v1/status - сводка состояния процессора
// - GET /api/v1/accounts - отслеживаемые аккаунты с категориями риска
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler создает новый StatusHandler с внедрением зависимости
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// GetStatus возвращает сводку состояния процессора
//
// GET /api/v1/status
//
// HTTP коды:
// - 200 OK: процессор в STARTING или HEALTHY
// - 503 Service Unavailable: процессор в UNHEALTHY (для внешних проб)
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.provider.Status()

	code := http.StatusOK
	if status.State == models.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}

	respondWithJSON(w, code, status)
}

// GetAccountsResponse представляет ответ списка аккаунтов
type GetAccountsResponse struct {
	Accounts []engine.AccountView `json:"accounts"`
	Total    int                  `json:"total"`
}

// GetAccounts возвращает отслеживаемые аккаунты
//
// GET /api/v1/accounts
//
// Query параметры:
// - bucket (string): фильтр по категории риска (HEALTHY, RIPE, IN_FLIGHT, UNKNOWN)
//
// Аккаунты отсортированы по адресу для стабильного вывода.
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив аккаунтов
func (h *StatusHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.provider.Accounts()

	if bucket := r.URL.Query().Get("bucket"); bucket != "" {
		filtered := make([]engine.AccountView, 0, len(accounts))
		for _, a := range accounts {
			if string(a.Bucket) == bucket {
				filtered = append(filtered, a)
			}
		}
		accounts = filtered
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Address < accounts[j].Address
	})

	respondWithJSON(w, http.StatusOK, GetAccountsResponse{
		Accounts: accounts,
		Total:    len(accounts),
	})
}
