package middleware

import (
	"net/http"
	"strings"
)

// defaultOrigins - локальные dev-серверы, разрешённые всегда
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5000",
	"http://127.0.0.1:5000",
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:5173",
}

// CORS - middleware для настройки Cross-Origin Resource Sharing
//
// Назначение:
// Позволяет дашборду на другом origin обращаться к API и /ws/stream.
//
// Функции:
// - Access-Control-Allow-Origin для разрешенных доменов (с credentials)
// - "*" для запросов без Origin (curl, bagctl)
// - Обработка preflight запросов (OPTIONS)
// - Кеш preflight на 24 часа
//
// Конфигурация:
// - extra: дополнительные origins из CORS_ALLOWED_ORIGINS (через запятую)
// - По умолчанию разрешены localhost:3000, localhost:5000, localhost:5173
func CORS(extra []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, origin := range AllowedOrigins(extra) {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			} else if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			// Для неразрешенных origins заголовков нет - браузер заблокирует

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllowedOrigins - origins по умолчанию плюс extra, без пустых и дубликатов.
// Тот же список проверяет WebSocket hub.
func AllowedOrigins(extra []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(defaultOrigins)+len(extra))
	for _, origin := range append(append([]string{}, defaultOrigins...), extra...) {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		result = append(result, origin)
	}
	return result
}
