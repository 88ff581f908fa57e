// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/minigate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByTelegramID はTelegram IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// UpsertByTelegramID はTelegram IDをキーにユーザーを作成または更新する。
	// 既存ユーザーの場合はfirst_name/last_name/usernameを最新値で上書きし、
	// updated_atを進める。永続化後のユーザーを返す。
	UpsertByTelegramID(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error)
}

// PreferenceRepository はユーザー設定の永続化インターフェース。
type PreferenceRepository interface {
	// FindByUserID は指定ユーザーの設定を取得する。未設定の場合はnilを返す。
	FindByUserID(ctx context.Context, userID int64) (*model.Preferences, error)

	// Upsert は指定ユーザーの設定を作成または全置換する。
	Upsert(ctx context.Context, userID int64, prefs *model.Preferences) error
}
