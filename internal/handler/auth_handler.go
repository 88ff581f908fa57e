// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/minigate/internal/auth"
	"github.com/hitoshi/minigate/internal/middleware"
	"github.com/hitoshi/minigate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, raw string) (*auth.Result, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// AuthHandler はinitData検証とセッション発行のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// validateRequest はPOST /api/auth/validateのリクエストボディ。
type validateRequest struct {
	InitData string `json:"init_data"`
}

// userResponse は認証済みユーザーのレスポンス表現。
type userResponse struct {
	ID         int64   `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	FirstName  string  `json:"first_name"`
	LastName   *string `json:"last_name,omitempty"`
	Username   *string `json:"username,omitempty"`
}

// Validate はinitDataを検証し、セッションCookieを発行する。
// POST /api/auth/validate
//
// 成功時はセッショントークンをHTTP Only Cookieに設定し、ユーザー情報を返す。
// CookieのMax-Ageはトークンの有効期間と常に一致する。
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	result, err := h.service.Authenticate(r.Context(), req.InitData)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredential):
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialError())
		case errors.Is(err, auth.ErrMalformedIdentity):
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMalformedIdentityError())
		case errors.Is(err, auth.ErrStorageUnavailable):
			middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewStorageUnavailableError())
		default:
			slog.Error("unexpected authentication error", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   result.CookieMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.config.CookieSameSite,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": userResponse{
			ID:         result.User.ID,
			TelegramID: result.User.TelegramID,
			FirstName:  result.User.FirstName,
			LastName:   result.User.LastName,
			Username:   result.User.Username,
		},
		"expires_at": result.ExpiresAt.Unix(),
	})
}

// Logout はセッションCookieを破棄する。
// POST /api/auth/logout
//
// トークンは自己完結型でサーバー側に状態を持たないため、Cookieのクリアのみを行う。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.config.CookieSameSite,
	})

	w.WriteHeader(http.StatusNoContent)
}
