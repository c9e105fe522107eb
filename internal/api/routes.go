package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"liquidator/internal/api/handlers"
	"liquidator/internal/api/middleware"
	"liquidator/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Status handlers.StatusProvider
	Events handlers.EventStore
	Hub    *websocket.Hub
	Logger *zap.Logger

	// APITokenHash - bcrypt хеш API токена; пустой = auth отключен
	APITokenHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /status - сводка состояния процессора
//	├── /accounts - отслеживаемые аккаунты с категориями риска
//	└── /events
//	    ├── GET / - журнал событий
//	    └── DELETE / - очистка журнала
//
// /ws/stream - WebSocket для real-time событий
// /healthz - проба живости (без auth)
// /metrics - метрики Prometheus (без auth)
// /debug/pprof/* - профилировщик (за Basic Auth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	log := deps.Logger

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	// API v1 routes
	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(middleware.Auth(deps.APITokenHash))

	if deps.Status != nil {
		statusHandler := handlers.NewStatusHandler(deps.Status)
		apiV1.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")
		apiV1.HandleFunc("/accounts", statusHandler.GetAccounts).Methods("GET")
	}

	if deps.Events != nil {
		eventsHandler := handlers.NewEventsHandler(deps.Events)
		apiV1.HandleFunc("/events", eventsHandler.GetEvents).Methods("GET")
		apiV1.HandleFunc("/events", eventsHandler.ClearEvents).Methods("DELETE")
	}

	// WebSocket route
	if deps.Hub != nil {
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, w, r)
		})
	}

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Профилировщик за Basic Auth
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").Handler(http.HandlerFunc(pprof.Index))

	return router
}
