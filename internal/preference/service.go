// Package preference はユーザー設定の取得・更新のビジネスロジックを提供する。
package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/minigate/internal/model"
	"github.com/hitoshi/minigate/internal/repository"
)

// ErrInvalidPreferences は設定値の検証に失敗した場合のエラー。
// errors.Isで判定し、詳細メッセージはUnwrapで取り出す。
var ErrInvalidPreferences = errors.New("preference: invalid preferences")

// Service はユーザー設定に関するビジネスロジックを提供する。
type Service struct {
	prefRepo repository.PreferenceRepository
}

// NewService はServiceを生成する。
func NewService(prefRepo repository.PreferenceRepository) *Service {
	return &Service{prefRepo: prefRepo}
}

// Get は指定ユーザーの設定を取得する。
// 未設定のユーザーにはデフォルト設定を返す（行は作成しない）。
func (s *Service) Get(ctx context.Context, userID int64) (*model.Preferences, error) {
	prefs, err := s.prefRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	if prefs == nil {
		return model.DefaultPreferences(), nil
	}
	return prefs, nil
}

// Update は指定ユーザーの設定を検証して全置換する。
// 部分更新は行わない。欠けたフィールドはJSONデコード時のゼロ値となる。
func (s *Service) Update(ctx context.Context, userID int64, prefs *model.Preferences) (*model.Preferences, error) {
	if err := validate(prefs); err != nil {
		return nil, err
	}

	if err := s.prefRepo.Upsert(ctx, userID, prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	slog.Info("preferences updated",
		slog.Int64("user_id", userID),
		slog.String("theme_mode", prefs.ThemeMode),
	)

	return prefs, nil
}

// validate は設定値の妥当性を検査する。
func validate(prefs *model.Preferences) error {
	if prefs.ThemeMode == "" {
		return fmt.Errorf("%w: theme_mode must not be empty", ErrInvalidPreferences)
	}
	if len(prefs.ThemeMode) > 32 {
		return fmt.Errorf("%w: theme_mode is too long", ErrInvalidPreferences)
	}
	return nil
}
