// Package auth はinitData検証からセッション発行までの認証フローを提供する。
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/minigate/internal/initdata"
	"github.com/hitoshi/minigate/internal/model"
	"github.com/hitoshi/minigate/internal/token"
)

// 認証フローの外部向けエラー。
// initData検証の内部分類（署名不一致・期限切れ・形式不正）はすべて
// ErrInvalidCredentialに集約され、詳細はログにのみ残る。
var (
	// ErrInvalidCredential はinitDataの検証に失敗した場合のエラー。
	ErrInvalidCredential = errors.New("auth: invalid credential")

	// ErrMalformedIdentity は検証には成功したがuserフィールドが解釈できない場合のエラー。
	ErrMalformedIdentity = errors.New("auth: malformed identity")

	// ErrStorageUnavailable はユーザーの永続化に失敗した場合のエラー。
	// 認証エラーではなくサーバー障害として扱う。
	ErrStorageUnavailable = errors.New("auth: storage unavailable")

	// ErrUnauthenticated はセッションCookieが提示されていない場合のエラー。
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrInvalidSession はセッショントークンが無効または期限切れの場合のエラー。
	ErrInvalidSession = errors.New("auth: invalid session")
)

// Verifier はinitDataペイロードの検証器のインターフェース。
type Verifier interface {
	// Verify は署名付きペイロードを検証し、hashを除くフィールドを返す。
	Verify(raw string) (map[string]string, error)
}

// TokenCodec はセッショントークンの発行・検証器のインターフェース。
type TokenCodec interface {
	// Issue は指定ユーザーのセッショントークンと期限を返す。
	Issue(userID, telegramID int64) (string, time.Time, error)
	// Validate はトークンを検証しClaimsを返す。
	Validate(raw string) (*token.Claims, error)
	// TTL はトークンの有効期間を返す。
	TTL() time.Duration
}

// UserUpserter はTelegram IDをキーとしたユーザーの作成・更新のインターフェース。
type UserUpserter interface {
	// UpsertByTelegramID はユーザーを作成または更新し、永続化後の状態を返す。
	UpsertByTelegramID(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error)
}

// MetricsCollector は認証フローのメトリクス記録のインターフェース。
type MetricsCollector interface {
	RecordAuthSuccess()
	RecordAuthFailure(reason string)
	RecordAuthLatency(d time.Duration)
	RecordSessionRejected(reason string)
}

// Result は認証成功時の結果を表す。
// CookieMaxAgeはトークンTTLから導出され、Cookieの寿命とトークンの寿命は常に一致する。
type Result struct {
	Token        string
	ExpiresAt    time.Time
	CookieMaxAge int // 秒
	User         *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	verifier Verifier
	codec    TokenCodec
	users    UserUpserter
	metrics  MetricsCollector
}

// NewService はServiceを生成する。
func NewService(verifier Verifier, codec TokenCodec, users UserUpserter, metrics MetricsCollector) *Service {
	return &Service{
		verifier: verifier,
		codec:    codec,
		users:    users,
		metrics:  metrics,
	}
}

// identityPayload はinitDataのuserフィールドに埋め込まれたJSONを表す。
type identityPayload struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
}

// Authenticate はinitDataを検証し、ユーザーを永続化してセッショントークンを発行する。
//
// フロー:
//  1. initDataの署名・鮮度を検証する
//  2. userフィールドのJSONからTelegram IDと表示名を取り出す
//  3. ユーザーをTelegram IDキーでupsertする
//  4. 内部ユーザーIDを埋め込んだセッショントークンを発行する
//
// 検証失敗の内部分類はログにのみ記録し、呼び出し元にはErrInvalidCredentialだけを返す。
func (s *Service) Authenticate(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()

	fields, err := s.verifier.Verify(raw)
	if err != nil {
		slog.Warn("initData verification failed", slog.String("reason", err.Error()))
		s.metrics.RecordAuthFailure(failureReason(err))
		return nil, ErrInvalidCredential
	}

	identity, err := parseIdentity(fields)
	if err != nil {
		slog.Warn("initData identity parse failed", slog.String("reason", err.Error()))
		s.metrics.RecordAuthFailure("malformed_identity")
		return nil, ErrMalformedIdentity
	}

	user, err := s.users.UpsertByTelegramID(ctx, identity.ID, identity.FirstName, identity.LastName, identity.Username)
	if err != nil {
		slog.Error("failed to upsert user",
			slog.Int64("telegram_id", identity.ID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordAuthFailure("storage")
		return nil, ErrStorageUnavailable
	}

	signed, expiresAt, err := s.codec.Issue(user.ID, user.TelegramID)
	if err != nil {
		slog.Error("failed to issue session token",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordAuthFailure("token_issue")
		return nil, ErrStorageUnavailable
	}

	s.metrics.RecordAuthSuccess()
	s.metrics.RecordAuthLatency(time.Since(start))
	slog.Info("user authenticated",
		slog.Int64("user_id", user.ID),
		slog.Int64("telegram_id", user.TelegramID),
	)

	return &Result{
		Token:        signed,
		ExpiresAt:    expiresAt,
		CookieMaxAge: int(s.codec.TTL() / time.Second),
		User:         user,
	}, nil
}

// Resolve はセッションCookieの値を検証し、内部ユーザーIDを返す。
// cookieValueが空の場合はErrUnauthenticated、
// トークンが無効・期限切れの場合はErrInvalidSessionを返す。
func (s *Service) Resolve(cookieValue string) (int64, error) {
	if cookieValue == "" {
		s.metrics.RecordSessionRejected("missing")
		return 0, ErrUnauthenticated
	}

	claims, err := s.codec.Validate(cookieValue)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, token.ErrTokenExpired) {
			reason = "expired"
		}
		slog.Warn("session token rejected", slog.String("reason", reason))
		s.metrics.RecordSessionRejected(reason)
		return 0, ErrInvalidSession
	}

	return claims.UserID, nil
}

// parseIdentity は検証済みフィールドからユーザー情報を取り出す。
func parseIdentity(fields map[string]string) (*identityPayload, error) {
	raw, ok := fields["user"]
	if !ok || raw == "" {
		return nil, fmt.Errorf("user field is missing")
	}

	var identity identityPayload
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("user field is not valid JSON: %w", err)
	}
	if identity.ID <= 0 {
		return nil, fmt.Errorf("user field has no valid id")
	}

	return &identity, nil
}

// failureReason はinitData検証エラーをメトリクス用の理由ラベルに変換する。
func failureReason(err error) string {
	switch {
	case errors.Is(err, initdata.ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, initdata.ErrMissingTimestamp):
		return "missing_timestamp"
	case errors.Is(err, initdata.ErrExpired):
		return "expired"
	case errors.Is(err, initdata.ErrFutureTimestamp):
		return "future_timestamp"
	case errors.Is(err, initdata.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, initdata.ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
