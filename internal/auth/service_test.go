package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/minigate/internal/initdata"
	"github.com/hitoshi/minigate/internal/model"
	"github.com/hitoshi/minigate/internal/token"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(raw string) (map[string]string, error)
}

func (m *mockVerifier) Verify(raw string) (map[string]string, error) {
	if m.verifyFn != nil {
		return m.verifyFn(raw)
	}
	return nil, nil
}

type mockCodec struct {
	issueFn    func(userID, telegramID int64) (string, time.Time, error)
	validateFn func(raw string) (*token.Claims, error)
	ttl        time.Duration
}

func (m *mockCodec) Issue(userID, telegramID int64) (string, time.Time, error) {
	if m.issueFn != nil {
		return m.issueFn(userID, telegramID)
	}
	return "signed-token", time.Unix(1700086400, 0), nil
}

func (m *mockCodec) Validate(raw string) (*token.Claims, error) {
	if m.validateFn != nil {
		return m.validateFn(raw)
	}
	return nil, nil
}

func (m *mockCodec) TTL() time.Duration {
	if m.ttl != 0 {
		return m.ttl
	}
	return 24 * time.Hour
}

type mockUserUpserter struct {
	upsertFn func(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error)
}

func (m *mockUserUpserter) UpsertByTelegramID(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, telegramID, firstName, lastName, username)
	}
	return &model.User{ID: 1, TelegramID: telegramID, FirstName: firstName}, nil
}

type mockMetrics struct {
	successCount     int
	failureReasons   []string
	rejectionReasons []string
}

func (m *mockMetrics) RecordAuthSuccess() { m.successCount++ }

func (m *mockMetrics) RecordAuthFailure(reason string) {
	m.failureReasons = append(m.failureReasons, reason)
}

func (m *mockMetrics) RecordAuthLatency(_ time.Duration) {}
func (m *mockMetrics) RecordSessionRejected(reason string) {
	m.rejectionReasons = append(m.rejectionReasons, reason)
}

// --- compile-time interface checks ---
var _ Verifier = (*mockVerifier)(nil)
var _ TokenCodec = (*mockCodec)(nil)
var _ UserUpserter = (*mockUserUpserter)(nil)
var _ MetricsCollector = (*mockMetrics)(nil)

// --- テスト ---

// 検証成功時にユーザーがupsertされ、トークンとCookie Max-Ageが返されることを検証する。
func TestAuthenticate_Success(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(raw string) (map[string]string, error) {
			return map[string]string{
				"auth_date": "1700000000",
				"user":      `{"id":99999,"first_name":"Ada","username":"ada_l"}`,
			}, nil
		},
	}
	var gotTelegramID int64
	users := &mockUserUpserter{
		upsertFn: func(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error) {
			gotTelegramID = telegramID
			uname := "ada_l"
			return &model.User{ID: 7, TelegramID: telegramID, FirstName: firstName, Username: &uname}, nil
		},
	}
	metrics := &mockMetrics{}
	svc := NewService(verifier, &mockCodec{ttl: 24 * time.Hour}, users, metrics)

	result, err := svc.Authenticate(context.Background(), "raw-init-data")
	if err != nil {
		t.Fatalf("Authenticate() error = %v, want nil", err)
	}

	if gotTelegramID != 99999 {
		t.Errorf("upserted telegramID = %d, want 99999", gotTelegramID)
	}
	if result.Token != "signed-token" {
		t.Errorf("Token = %q, want %q", result.Token, "signed-token")
	}
	if result.CookieMaxAge != 86400 {
		t.Errorf("CookieMaxAge = %d, want 86400", result.CookieMaxAge)
	}
	if result.User.ID != 7 {
		t.Errorf("User.ID = %d, want 7", result.User.ID)
	}
	if metrics.successCount != 1 {
		t.Errorf("successCount = %d, want 1", metrics.successCount)
	}
}

// CookieのMax-AgeがトークンTTLから導出されることを検証する。
func TestAuthenticate_CookieMaxAgeMatchesTokenTTL(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(raw string) (map[string]string, error) {
			return map[string]string{"user": `{"id":1,"first_name":"A"}`}, nil
		},
	}
	svc := NewService(verifier, &mockCodec{ttl: 12 * time.Hour}, &mockUserUpserter{}, &mockMetrics{})

	result, err := svc.Authenticate(context.Background(), "raw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v, want nil", err)
	}
	if result.CookieMaxAge != int(12*time.Hour/time.Second) {
		t.Errorf("CookieMaxAge = %d, want %d", result.CookieMaxAge, int(12*time.Hour/time.Second))
	}
}

// initData検証の失敗理由によらず、単一のErrInvalidCredentialが返ることを検証する。
// 内部分類はメトリクスの理由ラベルにのみ現れる。
func TestAuthenticate_VerificationFailure_CollapsesToInvalidCredential(t *testing.T) {
	tests := []struct {
		name       string
		verifyErr  error
		wantReason string
	}{
		{name: "署名不一致", verifyErr: initdata.ErrSignatureMismatch, wantReason: "signature_mismatch"},
		{name: "期限切れ", verifyErr: initdata.ErrExpired, wantReason: "expired"},
		{name: "未来時刻", verifyErr: initdata.ErrFutureTimestamp, wantReason: "future_timestamp"},
		{name: "hashなし", verifyErr: initdata.ErrMissingSignature, wantReason: "missing_signature"},
		{name: "auth_dateなし", verifyErr: initdata.ErrMissingTimestamp, wantReason: "missing_timestamp"},
		{name: "形式不正", verifyErr: initdata.ErrMalformed, wantReason: "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{
				verifyFn: func(raw string) (map[string]string, error) {
					return nil, tt.verifyErr
				},
			}
			metrics := &mockMetrics{}
			svc := NewService(verifier, &mockCodec{}, &mockUserUpserter{}, metrics)

			_, err := svc.Authenticate(context.Background(), "raw")
			if !errors.Is(err, ErrInvalidCredential) {
				t.Fatalf("Authenticate() error = %v, want ErrInvalidCredential", err)
			}
			if len(metrics.failureReasons) != 1 || metrics.failureReasons[0] != tt.wantReason {
				t.Errorf("failureReasons = %v, want [%s]", metrics.failureReasons, tt.wantReason)
			}
		})
	}
}

// 検証成功後にuserフィールドが欠落・不正な場合、ErrMalformedIdentityが返ることを検証する。
func TestAuthenticate_MalformedIdentity(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{name: "userフィールドなし", fields: map[string]string{"auth_date": "1700000000"}},
		{name: "userが不正なJSON", fields: map[string]string{"user": "not-json"}},
		{name: "idが欠落", fields: map[string]string{"user": `{"first_name":"Ada"}`}},
		{name: "idがゼロ", fields: map[string]string{"user": `{"id":0,"first_name":"Ada"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{
				verifyFn: func(raw string) (map[string]string, error) {
					return tt.fields, nil
				},
			}
			svc := NewService(verifier, &mockCodec{}, &mockUserUpserter{}, &mockMetrics{})

			if _, err := svc.Authenticate(context.Background(), "raw"); !errors.Is(err, ErrMalformedIdentity) {
				t.Errorf("Authenticate() error = %v, want ErrMalformedIdentity", err)
			}
		})
	}
}

// ユーザー永続化の失敗が認証エラーではなくErrStorageUnavailableになることを検証する。
func TestAuthenticate_UpsertFailure_ReturnsStorageUnavailable(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(raw string) (map[string]string, error) {
			return map[string]string{"user": `{"id":1,"first_name":"A"}`}, nil
		},
	}
	users := &mockUserUpserter{
		upsertFn: func(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(verifier, &mockCodec{}, users, &mockMetrics{})

	if _, err := svc.Authenticate(context.Background(), "raw"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Authenticate() error = %v, want ErrStorageUnavailable", err)
	}
}

// 有効なセッショントークンから内部ユーザーIDが解決されることを検証する。
func TestResolve_ValidToken_ReturnsUserID(t *testing.T) {
	codec := &mockCodec{
		validateFn: func(raw string) (*token.Claims, error) {
			return &token.Claims{UserID: 42, TelegramID: 99999}, nil
		},
	}
	svc := NewService(&mockVerifier{}, codec, &mockUserUpserter{}, &mockMetrics{})

	userID, err := svc.Resolve("valid-token")
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

// Cookie値が空の場合にErrUnauthenticatedが返ることを検証する。
func TestResolve_EmptyCookie_ReturnsUnauthenticated(t *testing.T) {
	svc := NewService(&mockVerifier{}, &mockCodec{}, &mockUserUpserter{}, &mockMetrics{})

	if _, err := svc.Resolve(""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve() error = %v, want ErrUnauthenticated", err)
	}
}

// 改ざん・期限切れトークンがともにErrInvalidSessionに集約されることを検証する。
func TestResolve_InvalidToken_CollapsesToInvalidSession(t *testing.T) {
	tests := []struct {
		name        string
		validateErr error
		wantReason  string
	}{
		{name: "署名不正", validateErr: token.ErrInvalidSignature, wantReason: "invalid"},
		{name: "期限切れ", validateErr: token.ErrTokenExpired, wantReason: "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := &mockCodec{
				validateFn: func(raw string) (*token.Claims, error) {
					return nil, tt.validateErr
				},
			}
			metrics := &mockMetrics{}
			svc := NewService(&mockVerifier{}, codec, &mockUserUpserter{}, metrics)

			if _, err := svc.Resolve("bad-token"); !errors.Is(err, ErrInvalidSession) {
				t.Fatalf("Resolve() error = %v, want ErrInvalidSession", err)
			}
			if len(metrics.rejectionReasons) != 1 || metrics.rejectionReasons[0] != tt.wantReason {
				t.Errorf("rejectionReasons = %v, want [%s]", metrics.rejectionReasons, tt.wantReason)
			}
		})
	}
}
