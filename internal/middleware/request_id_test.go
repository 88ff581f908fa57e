package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// リクエストIDが生成され、コンテキストとレスポンスヘッダーに反映されることを検証
func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var ctxID string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if ctxID == "" {
		t.Error("expected request ID in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != ctxID {
		t.Errorf("response header ID %q does not match context ID %q", got, ctxID)
	}
}

// クライアント提示のX-Request-IDが引き継がれることを検証
func TestRequestIDMiddleware_PropagatesClientID(t *testing.T) {
	var ctxID string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if ctxID != "client-supplied-id" {
		t.Errorf("context ID = %q, want %q", ctxID, "client-supplied-id")
	}
}
