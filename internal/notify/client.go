// Package notify はTelegram Bot APIとの連携機能を提供する。
// メッセージ送信と更新のロングポーリング取得を含む。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultAPIBase はTelegram Bot APIのベースURL。
const defaultAPIBase = "https://api.telegram.org"

// Update はgetUpdatesで受信する更新を表す。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message は受信メッセージを表す。
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	From      *Peer  `json:"from"`
	Chat      Chat   `json:"chat"`
}

// Peer はメッセージの送信者を表す。
type Peer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

// Chat はメッセージの送信先チャットを表す。
type Chat struct {
	ID int64 `json:"id"`
}

// apiEnvelope はBot APIレスポンスの共通外殻。
type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// inlineKeyboardMarkup はMini App起動ボタンのマークアップ。
type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type inlineKeyboardButton struct {
	Text   string      `json:"text"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

// Client はTelegram Bot APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	webAppURL  string
	apiBase    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// tokenはボットトークン、webAppURLはMini Appの起動URLを指定する。
func NewClient(httpClient *http.Client, logger *slog.Logger, token, webAppURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		webAppURL:  webAppURL,
		apiBase:    defaultAPIBase,
	}
}

// GetUpdates はロングポーリングで更新を取得する。
// offsetには前回処理した更新IDの次を指定する。
// timeoutはサーバー側の保留時間であり、HTTPクライアントのタイムアウトは
// これより長く設定しなければならない。
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal getUpdates request: %w", err)
	}

	result, err := c.call(ctx, "getUpdates", string(reqBody))
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse updates: %w", err)
	}

	return updates, nil
}

// SendWelcome は/startコマンドへの応答として、Mini App起動ボタン付きの
// ウェルカムメッセージを送信する。
// displayNameはサニタイズ済みであること。空の場合は名前なしの文面になる。
func (c *Client) SendWelcome(ctx context.Context, chatID int64, displayName string) error {
	greeting := "ようこそ！"
	if displayName != "" {
		greeting = fmt.Sprintf("ようこそ、%sさん！", displayName)
	}
	text := greeting + "\n下のボタンからMini Appを起動できます。"

	reqBody, err := json.Marshal(map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
		"reply_markup": inlineKeyboardMarkup{
			InlineKeyboard: [][]inlineKeyboardButton{
				{
					{Text: "アプリを開く", WebApp: &webAppInfo{URL: c.webAppURL}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage request: %w", err)
	}

	if _, err := c.call(ctx, "sendMessage", string(reqBody)); err != nil {
		return err
	}

	return nil
}

// call はBot APIのメソッドを呼び出し、成功時のresultを返す。
// トークンはURLパスに含まれるため、エラーメッセージには含めない。
func (c *Client) call(ctx context.Context, method, body string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Bot API call failed",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("bot API %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		c.logger.Error("Bot API returned unparsable response",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("failed to parse %s response: %w", method, err)
	}

	if !envelope.OK {
		c.logger.Error("Bot API returned error",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
			slog.String("description", envelope.Description),
		)
		return nil, fmt.Errorf("bot API %s returned error: %s", method, envelope.Description)
	}

	return envelope.Result, nil
}
