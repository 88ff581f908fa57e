// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizerService はTelegramプロフィール由来の表示名をサニタイズし、
// ボットが送信するHTMLメッセージへのマークアップ注入からユーザーを保護する。
// bluemondayライブラリのStrictPolicyにより、すべてのHTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxDisplayNameLength はボットメッセージに埋め込む表示名の最大長（rune数）。
// Telegramのfirst_nameは最大64文字だが、メッセージ内での見栄えのため制限する。
const maxDisplayNameLength = 64

// NameSanitizerService は表示名サニタイズ機能のインターフェースを定義する。
// ボットのメッセージ構築時に使用される。
type NameSanitizerService interface {
	// Sanitize は表示名からHTMLマークアップと制御文字を除去して返す。
	// 結果が空になった場合は空文字列を返す（呼び出し元がフォールバックする）。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(name string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストのみを残す。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は表示名からHTMLマークアップと制御文字を除去して返す。
func (s *nameSanitizer) Sanitize(name string) string {
	cleaned := s.policy.Sanitize(name)

	// 制御文字と改行を除去
	cleaned = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, cleaned)

	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > maxDisplayNameLength {
		cleaned = string(runes[:maxDisplayNameLength])
	}

	return cleaned
}

// compile-time interface check
var _ NameSanitizerService = (*nameSanitizer)(nil)
