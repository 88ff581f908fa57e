// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 認証系エラーは内部の詳細（どの検証ステップで失敗したか）を一切含めない。
// 詳細はログのみに記録し、偽造の手がかりとなるエラーオラクルを防ぐ。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredential  = "INVALID_CREDENTIAL"
	ErrCodeMalformedIdentity  = "MALFORMED_IDENTITY"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidSession     = "INVALID_SESSION"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeInvalidPreferences = "INVALID_PREFERENCES"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
)

// NewInvalidCredentialError は認証データ検証失敗エラーを生成する。
// 署名不一致・期限切れ・形式不正のいずれであっても同一のレスポンスを返す。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "認証データの検証に失敗しました。",
		Category: "auth",
		Action:   "Mini Appを開き直してから再度お試しください。",
	}
}

// NewMalformedIdentityError はユーザー情報が不正な場合のエラーを生成する。
func NewMalformedIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeMalformedIdentity,
		Message:  "認証データにユーザー情報が含まれていません。",
		Category: "validation",
		Action:   "Telegramアプリから起動し直してください。",
	}
}

// NewUnauthenticatedError はセッションCookieが提示されていない場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewInvalidSessionError はセッショントークンが無効または期限切れの場合のエラーを生成する。
// 改ざんと期限切れは呼び出し元には区別されない。
func NewInvalidSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSession,
		Message:  "セッションが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewStorageUnavailableError はユーザー保存処理が失敗した場合のエラーを生成する。
// 認証エラー（401相当）とは異なり、リトライが適切なサーバー障害（5xx相当）を表す。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidPreferencesError は設定値が不正な場合のエラーを生成する。
func NewInvalidPreferencesError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPreferences,
		Message:  fmt.Sprintf("無効な設定値です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディが解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストの形式が不正です。",
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}
