package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Samicowest/bag-bot/pkg/utils"
)

// Recovery - middleware для восстановления после паники в handlers
//
// Перехватывает panic, пишет в лог сообщение и stack trace
// и возвращает клиенту 500 в формате {"error": ..., "details": ...}.
// Сервер продолжает обрабатывать последующие запросы.
func Recovery(next http.Handler) http.Handler {
	logger := utils.L().WithComponent("http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Panic in HTTP handler",
					utils.String("method", r.Method),
					utils.String("path", r.URL.Path),
					utils.Any("panic", rec),
					utils.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"error":"Internal Server Error","details":%q}`, fmt.Sprint(rec))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
