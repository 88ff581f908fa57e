// Package initdata はホストプラットフォームが発行する署名付きペイロード
// （initData）の検証を提供する。
// HMAC-SHA256による署名検証、発行時刻の鮮度チェック（リプレイ窓）、
// 未来時刻の拒否を行う。
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 検証エラーの内部分類。
// 呼び出し元（認証フロー）はこれらを外部向けには単一の認証エラーに集約する。
// どの検証ステップで失敗したかはログにのみ残す。
var (
	// ErrMissingSignature はhashフィールドが存在しない場合のエラー。
	ErrMissingSignature = errors.New("initdata: missing hash field")

	// ErrMissingTimestamp はauth_dateフィールドが存在しないか数値でない場合のエラー。
	ErrMissingTimestamp = errors.New("initdata: missing or non-numeric auth_date field")

	// ErrExpired はauth_dateが許容窓を超えて古い場合のエラー。
	ErrExpired = errors.New("initdata: payload expired")

	// ErrFutureTimestamp はauth_dateが未来の場合のエラー。
	// クロックスキューや偽造タイムスタンプへの防御として、丸めずに拒否する。
	ErrFutureTimestamp = errors.New("initdata: auth_date is in the future")

	// ErrSignatureMismatch は署名が一致しない場合のエラー。
	ErrSignatureMismatch = errors.New("initdata: signature mismatch")

	// ErrMalformed はペイロードのパース・デコードに失敗した場合のエラー。
	// 内部のパース失敗を個別に露出させないため、1種類に集約する。
	ErrMalformed = errors.New("initdata: malformed payload")
)

// signatureKeySeed は署名鍵導出に使うHMACメッセージ。
// 鍵=共有シークレット、メッセージ="WebAppData" の順序は固定の取り決めであり、
// 入れ替えてはならない。
const signatureKeySeed = "WebAppData"

// hashField は署名を保持するフィールド名。
const hashField = "hash"

// authDateField は発行時刻（エポック秒）を保持するフィールド名。
const authDateField = "auth_date"

// Verifier は署名付きペイロードの検証器。
// 共有シークレットとリプレイ窓は起動時に1回だけ設定され、以降イミュータブル。
// 状態を持たないため複数ゴルーチンから並行に利用できる。
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier はVerifierを生成する。
// secretはデプロイメント単位の共有シークレット（ボットトークン）、
// maxAgeはauth_dateの許容経過時間を指定する。
func NewVerifier(secret string, maxAge time.Duration) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Verify は署名付きペイロードを検証し、hashを除く残りのフィールドを返す。
//
// 検証手順:
//  1. URLエンコードされたkey=valueペアをパースする（同一キーは最後の出現が勝つ）
//  2. hashフィールドを取り出す
//  3. auth_dateの経過時間を検査する（age > maxAge は期限切れ、age < 0 は未来時刻として拒否。
//     age == maxAge はちょうど境界として受理する）
//  4. hashを除く全フィールドをキーのバイト順にソートし、"key=value"を改行で連結した
//     チェック文字列を構築する
//  5. 署名鍵 = HMAC-SHA256(鍵=共有シークレット, メッセージ="WebAppData") を導出する
//  6. 期待署名 = HMAC-SHA256(鍵=署名鍵, メッセージ=チェック文字列) を小文字hexで算出する
//  7. 提示されたhashと固定時間比較する
//
// パース失敗はすべてErrMalformedに集約される。
func (v *Verifier) Verify(raw string) (map[string]string, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformed
	}

	// 同一キーが複数回現れた場合は最後の出現を採用する（ポリシーとして明文化）
	fields := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			fields[key] = ""
			continue
		}
		fields[key] = vals[len(vals)-1]
	}

	// 署名フィールドの取り出し
	signature, ok := fields[hashField]
	if !ok {
		return nil, ErrMissingSignature
	}
	delete(fields, hashField)

	// 発行時刻の検査
	authDate, ok := fields[authDateField]
	if !ok {
		return nil, ErrMissingTimestamp
	}
	issuedAt, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil {
		return nil, ErrMissingTimestamp
	}

	age := v.now().Unix() - issuedAt
	if age < 0 {
		return nil, ErrFutureTimestamp
	}
	if age > int64(v.maxAge/time.Second) {
		return nil, ErrExpired
	}

	// チェック文字列の構築と署名検証
	expected := computeSignature(v.secret, fields)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignatureMismatch
	}

	return fields, nil
}

// computeSignature はhash除去後のフィールド群に対する期待署名を算出する。
func computeSignature(secret []byte, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+fields[key])
	}
	checkString := strings.Join(lines, "\n")

	// 署名鍵の導出: 鍵=共有シークレット、メッセージ="WebAppData"
	keyMAC := hmac.New(sha256.New, secret)
	keyMAC.Write([]byte(signatureKeySeed))
	signatureKey := keyMAC.Sum(nil)

	mac := hmac.New(sha256.New, signatureKey)
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}
