package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RecordsStatusAndSize(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/orders", nil))

	if logs.Len() != 1 {
		t.Fatalf("log entries = %d, want 1", logs.Len())
	}

	fields := logs.All()[0].ContextMap()
	if fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("status = %v, want %d", fields["status"], http.StatusCreated)
	}
	if fields["size"] != int64(5) {
		t.Fatalf("size = %v, want 5", fields["size"])
	}
	if fields["uri"] != "/api/orders" {
		t.Fatalf("uri = %v, want /api/orders", fields["uri"])
	}
}
