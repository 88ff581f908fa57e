// Package model はドメインモデルを定義する。
package model

import "time"

// User はTelegram経由で認証されたサービス利用ユーザーを表す。
// TelegramIDはホストプラットフォームが発行する外部ID、IDは内部の数値IDを表す。
type User struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   *string
	Username   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Preferences はユーザーごとのMini App表示設定を表す。
type Preferences struct {
	ThemeMode     string `json:"theme_mode"`
	ReducedMotion bool   `json:"reduced_motion"`
}

// DefaultPreferences は未設定ユーザー向けのデフォルト設定を返す。
func DefaultPreferences() *Preferences {
	return &Preferences{
		ThemeMode:     "premium",
		ReducedMotion: false,
	}
}
