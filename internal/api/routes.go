package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Samicowest/bag-bot/internal/api/handlers"
	"github.com/Samicowest/bag-bot/internal/api/middleware"
	"github.com/Samicowest/bag-bot/internal/service"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	ConfigService       service.ConfigServiceInterface
	SessionService      service.SessionServiceInterface
	NotificationService service.NotificationServiceInterface
	Bot                 service.BotController

	// WebSocket поток; nil отключает /ws/stream
	Stream http.HandlerFunc

	// Дополнительные разрешённые origins для CORS
	CORSOrigins []string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /config/
//	│   ├── GET / - список конфигураций
//	│   ├── POST / - создать конфигурацию
//	│   ├── POST /from-env - конфигурация из окружения
//	│   ├── GET /{id} - получить конфигурацию
//	│   ├── PUT /{id} - обновить конфигурацию
//	│   ├── DELETE /{id} - удалить конфигурацию
//	│   ├── POST /{id}/activate - активировать
//	│   └── POST /{id}/validate - проверить ключи
//	├── /sessions/
//	│   ├── GET / - список сессий
//	│   ├── POST / - создать сессию
//	│   ├── GET /{id} - сессия со сделками
//	│   ├── PATCH /{id} - переименовать, пауза, возобновление
//	│   └── POST /{id}/complete - завершить
//	├── GET /market-data - снимок рынка
//	├── GET /strategy/analyze - сигнал без исполнения
//	├── POST /strategy/execute - цикл с исполнением
//	├── GET /risk/assessment - оценка риска
//	├── GET /balances - балансы пары
//	├── /bot/
//	│   ├── POST /start - запустить
//	│   ├── POST /stop - остановить
//	│   ├── GET /status - состояние
//	│   └── POST /force-cycle - внеочередной цикл
//	└── /notifications/
//	    ├── GET / - получить уведомления
//	    └── DELETE / - очистить журнал
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics - Prometheus
// /health - проверка живости
//
// Middleware применяется в следующем порядке:
// 1. Recovery
// 2. Logging
// 3. CORS
func SetupRoutes(deps *Dependencies) *mux.Router {
	if deps == nil {
		deps = &Dependencies{}
	}

	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	cors := middleware.CORS(deps.CORSOrigins)
	router.Use(cors)

	// OPTIONS к зарегистрированному пути не совпадает по методу и не проходит
	// через router.Use, поэтому preflight обрабатывается здесь
	router.MethodNotAllowedHandler = cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMethodNotAllowed(w)
	}))

	api := router.PathPrefix("/api/v1").Subrouter()

	// Config routes
	if deps.ConfigService != nil {
		configHandler := handlers.NewConfigHandler(deps.ConfigService)
		api.HandleFunc("/config", configHandler.ListConfigs).Methods("GET")
		api.HandleFunc("/config", configHandler.CreateConfig).Methods("POST")
		// from-env регистрируется до /config/{id}
		api.HandleFunc("/config/from-env", configHandler.CreateFromEnv).Methods("POST")
		api.HandleFunc("/config/{id:[0-9]+}", configHandler.GetConfig).Methods("GET")
		api.HandleFunc("/config/{id:[0-9]+}", configHandler.UpdateConfig).Methods("PUT")
		api.HandleFunc("/config/{id:[0-9]+}", configHandler.DeleteConfig).Methods("DELETE")
		api.HandleFunc("/config/{id:[0-9]+}/activate", configHandler.ActivateConfig).Methods("POST")
		api.HandleFunc("/config/{id:[0-9]+}/validate", configHandler.ValidateCredentials).Methods("POST")
	}

	// Session routes
	if deps.SessionService != nil {
		sessionHandler := handlers.NewSessionHandler(deps.SessionService)
		api.HandleFunc("/sessions", sessionHandler.ListSessions).Methods("GET")
		api.HandleFunc("/sessions", sessionHandler.CreateSession).Methods("POST")
		api.HandleFunc("/sessions/{id:[0-9]+}", sessionHandler.GetSession).Methods("GET")
		api.HandleFunc("/sessions/{id:[0-9]+}", sessionHandler.UpdateSession).Methods("PATCH")
		api.HandleFunc("/sessions/{id:[0-9]+}/complete", sessionHandler.CompleteSession).Methods("POST")
	}

	// Strategy and bot routes
	if deps.Bot != nil {
		strategyHandler := handlers.NewStrategyHandler(deps.Bot)
		api.HandleFunc("/market-data", strategyHandler.GetMarketData).Methods("GET")
		api.HandleFunc("/strategy/analyze", strategyHandler.Analyze).Methods("GET")
		api.HandleFunc("/strategy/execute", strategyHandler.Execute).Methods("POST")
		api.HandleFunc("/risk/assessment", strategyHandler.GetRiskAssessment).Methods("GET")
		api.HandleFunc("/balances", strategyHandler.GetBalances).Methods("GET")

		botHandler := handlers.NewBotHandler(deps.Bot)
		api.HandleFunc("/bot/start", botHandler.Start).Methods("POST")
		api.HandleFunc("/bot/stop", botHandler.Stop).Methods("POST")
		api.HandleFunc("/bot/status", botHandler.GetStatus).Methods("GET")
		api.HandleFunc("/bot/force-cycle", botHandler.ForceCycle).Methods("POST")
	}

	// Notification routes
	if deps.NotificationService != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// WebSocket route
	if deps.Stream != nil {
		router.HandleFunc("/ws/stream", deps.Stream)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}

func respondMethodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"error":"Method not allowed","code":"method_not_allowed"}`))
}
