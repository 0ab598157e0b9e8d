package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// captureRequestLog прогоняет запрос через RequestLogger и возвращает
// распакованную JSON-запись журнала.
func captureRequestLog(t *testing.T, path string, status int) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("не удалось разобрать запись журнала: %v", err)
	}
	return record
}

// TestRequestLogger_Levels проверяет выбор уровня логирования по
// статус-коду и понижение probe-путей до DEBUG.
func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  string
	}{
		{"успешный запрос API", "/api/v1/documents", http.StatusOK, "INFO"},
		{"ошибка клиента", "/api/v1/documents", http.StatusNotFound, "WARN"},
		{"ошибка сервера", "/api/v1/documents", http.StatusInternalServerError, "ERROR"},
		{"liveness probe", "/health/live", http.StatusOK, "DEBUG"},
		{"readiness probe", "/health/ready", http.StatusOK, "DEBUG"},
		{"scrape метрик", "/metrics", http.StatusOK, "DEBUG"},
		{"упавший probe не прячется", "/health/ready", http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := captureRequestLog(t, tt.path, tt.status)
			if record["level"] != tt.level {
				t.Errorf("level = %v, ожидался %s", record["level"], tt.level)
			}
		})
	}
}

// TestRequestLogger_Attrs проверяет состав атрибутов записи.
func TestRequestLogger_Attrs(t *testing.T) {
	record := captureRequestLog(t, "/api/v1/documents", http.StatusOK)

	if record["method"] != "GET" {
		t.Errorf("method = %v, ожидался GET", record["method"])
	}
	if record["path"] != "/api/v1/documents" {
		t.Errorf("path = %v, ожидался /api/v1/documents", record["path"])
	}
	if record["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, ожидался 200", record["status"])
	}
	if record["bytes"] != float64(2) {
		t.Errorf("bytes = %v, ожидалось 2", record["bytes"])
	}
	if record["component"] != "http" {
		t.Errorf("component = %v, ожидался http", record["component"])
	}
}
