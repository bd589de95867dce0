package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Samicowest/bag-bot/pkg/utils"
)

// RequestIDHeader - заголовок идентификатора запроса
const RequestIDHeader = "X-Request-ID"

// responseWriter запоминает статус и размер ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack нужен для upgrade соединения /ws/stream
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logging - middleware для логирования HTTP запросов
//
// Пишет одну запись zap на запрос: метод, путь, статус, latency, размер ответа,
// адрес клиента и request id. Request id берётся из X-Request-ID или
// генерируется (ULID) и возвращается в заголовке ответа.
//
// Уровень: 5xx - error, 4xx - warn, остальное - info.
func Logging(next http.Handler) http.Handler {
	logger := utils.L().WithComponent("http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		fields := []utils.Field{
			utils.String("method", r.Method),
			utils.String("path", r.URL.Path),
			utils.Int("status", wrapped.statusCode),
			utils.Latency(float64(time.Since(start).Microseconds()) / 1000),
			utils.Int64("size", wrapped.written),
			utils.String("remote_addr", r.RemoteAddr),
			utils.RequestID(requestID),
		}

		switch {
		case wrapped.statusCode >= http.StatusInternalServerError:
			logger.Error("HTTP request", fields...)
		case wrapped.statusCode >= http.StatusBadRequest:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	})
}
