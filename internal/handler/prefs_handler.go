package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/minigate/internal/middleware"
	"github.com/hitoshi/minigate/internal/model"
	"github.com/hitoshi/minigate/internal/preference"
)

// PreferenceServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type PreferenceServiceInterface interface {
	Get(ctx context.Context, userID int64) (*model.Preferences, error)
	Update(ctx context.Context, userID int64, prefs *model.Preferences) (*model.Preferences, error)
}

// PreferenceHandler はユーザー設定のHTTPハンドラー。
// 対象行は常にコンテキストの認証済みユーザーIDでスコープされ、
// リクエストから他ユーザーの行を指定する手段はない。
type PreferenceHandler struct {
	service PreferenceServiceInterface
}

// NewPreferenceHandler はPreferenceHandlerを生成する。
func NewPreferenceHandler(service PreferenceServiceInterface) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// Get は現在のユーザーの設定を返す。
// GET /api/preferences
// 未設定のユーザーにはデフォルト設定を返す。
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	prefs, err := h.service.Get(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get preferences",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewStorageUnavailableError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prefs)
}

// Update は現在のユーザーの設定を全置換する。
// PUT /api/preferences
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var prefs model.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), userID, &prefs)
	if err != nil {
		if errors.Is(err, preference.ErrInvalidPreferences) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPreferencesError(err.Error()))
			return
		}
		slog.Error("failed to update preferences",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewStorageUnavailableError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}
