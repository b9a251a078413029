package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestLogRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := WithRequestID(WithRequestLog("web", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	if record["msg"] != "http_request" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected status: %v", record["status"])
	}
	if record["request_id"] != "req-1" {
		t.Fatalf("unexpected request id: %v", record["request_id"])
	}
	if record["bytes"] != float64(len("short and stout")) {
		t.Fatalf("unexpected bytes: %v", record["bytes"])
	}
}
