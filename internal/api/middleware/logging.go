// logging.go — slog-логирование HTTP-запросов Sign Module.
// Перехватывает статус-код, объём ответа и длительность обработки.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// responseWriter — обёртка для перехвата статус-кода и объёма ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
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

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос:
// метод, путь, статус, длительность, объём ответа, адрес клиента.
// Уровень зависит от статуса: WARN для 4xx, ERROR для 5xx. Успешные
// обращения к служебным эндпоинтам (/health/*, /metrics) пишутся на
// DEBUG: probes kubelet и scrape Prometheus иначе засоряют журнал.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			level := statusLevel(wrapped.statusCode)
			if level == slog.LevelInfo && isProbePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			log.LogAttrs(r.Context(), level, "HTTP запрос",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)
		})
	}
}

// statusLevel возвращает уровень логирования по статус-коду ответа.
func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// isProbePath — служебные эндпоинты без бизнес-логики.
func isProbePath(p string) bool {
	return p == "/metrics" || strings.HasPrefix(p, "/health/")
}
