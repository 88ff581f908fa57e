// Package token は自己完結型の署名付きセッショントークンの発行と検証を提供する。
// トークンはHS256で署名されたJWTであり、サーバー側にセッションストアを持たない。
// 有効性は署名と埋め込まれたタイムスタンプのみで決まる（失効リストなし）。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSignature はトークンの署名検証に失敗した場合のエラー。
	// 改ざん・形式不正・許可外のアルゴリズムをすべて含む。
	ErrInvalidSignature = errors.New("token: invalid signature")

	// ErrTokenExpired はトークンの有効期限が切れている場合のエラー。
	ErrTokenExpired = errors.New("token: expired")
)

// Claims はセッショントークンに埋め込まれる識別情報を表す。
// UserIDは内部の数値ID、TelegramIDはホストプラットフォームの外部ID。
type Claims struct {
	UserID     int64 `json:"user_id"`
	TelegramID int64 `json:"telegram_id"`
	jwt.RegisteredClaims
}

// Codec はセッショントークンの発行・検証器。
// 共有シークレットとTTLは起動時に1回だけ設定され、以降イミュータブル。
// 状態を持たないため複数ゴルーチンから並行に利用できる。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec はCodecを生成する。
// ttlは発行されるトークンの有効期間を指定する。
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL は発行されるトークンの有効期間を返す。
// セッションCookieのMax-Ageはこの値から導出しなければならない。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue は指定ユーザーのセッショントークンを発行する。
// expires-at = issued-at + TTL が署名に束縛されるため、
// トークンの切り詰めによる有効期間の延長はできない。
func (c *Codec) Issue(userID, telegramID int64) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	claims := &Claims{
		UserID:     userID,
		TelegramID: telegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate はトークンを検証し、埋め込まれたClaimsを返す。
// 署名検証が先、期限チェックが後の順で行われる。
// 期限切れはErrTokenExpired、それ以外の失敗はすべてErrInvalidSignatureに集約される。
func (c *Codec) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidSignature
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	// 内部IDが欠けたトークンは発行され得ないため、存在を健全性チェックする
	if claims.UserID <= 0 {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}
