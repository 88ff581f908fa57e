package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/minigate/internal/auth"
)

// mockResolver はSessionResolverのモック。
type mockResolver struct {
	resolveFn func(cookieValue string) (int64, error)
}

func (m *mockResolver) Resolve(cookieValue string) (int64, error) {
	if m.resolveFn != nil {
		return m.resolveFn(cookieValue)
	}
	return 0, auth.ErrUnauthenticated
}

var _ SessionResolver = (*mockResolver)(nil)

// 有効なCookieでユーザーIDがコンテキストに注入されることを検証
func TestSessionMiddleware_ValidCookie_InjectsUserID(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(cookieValue string) (int64, error) {
			if cookieValue != "valid-token" {
				t.Errorf("cookieValue = %q, want %q", cookieValue, "valid-token")
			}
			return 42, nil
		},
	}

	var gotUserID int64
	handler := NewSessionMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Fatalf("UserIDFromContext() error = %v", err)
		}
		gotUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUserID != 42 {
		t.Errorf("userID = %d, want 42", gotUserID)
	}
}

// Cookie未提示で401 UNAUTHENTICATEDが返ることを検証
func TestSessionMiddleware_MissingCookie_Returns401Unauthenticated(t *testing.T) {
	handler := NewSessionMiddleware(&mockResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body.Code != "UNAUTHENTICATED" {
		t.Errorf("code = %q, want %q", body.Code, "UNAUTHENTICATED")
	}
}

// 無効なトークンで401 INVALID_SESSIONが返ることを検証
func TestSessionMiddleware_InvalidToken_Returns401InvalidSession(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(cookieValue string) (int64, error) {
			return 0, auth.ErrInvalidSession
		},
	}
	handler := NewSessionMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body.Code != "INVALID_SESSION" {
		t.Errorf("code = %q, want %q", body.Code, "INVALID_SESSION")
	}
}

// コンテキストにユーザーIDがない場合にUserIDFromContextがエラーを返すことを検証
func TestUserIDFromContext_Missing_ReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error, got nil")
	}
}

// ContextWithUserIDで注入したIDが取得できることを検証
func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 7)

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext() error = %v", err)
	}
	if userID != 7 {
		t.Errorf("userID = %d, want 7", userID)
	}
}
