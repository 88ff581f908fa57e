package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// BotClient はワーカーが必要とするBot APIクライアントのインターフェース。
type BotClient interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendWelcome(ctx context.Context, chatID int64, displayName string) error
}

// NameSanitizer は表示名のサニタイズに必要なインターフェース。
// security.NameSanitizerServiceの部分集合として定義する。
type NameSanitizer interface {
	Sanitize(name string) string
}

// MetricsRecorder はワーカーのメトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordNotifySent()
	RecordNotifyFailure(reason string)
}

// errorBackoff はAPI呼び出し失敗後の待機時間。
// getUpdatesの失敗が連続してもAPIを叩き続けないための固定バックオフ。
const errorBackoff = 5 * time.Second

// Worker は/startコマンドに応答するボットワーカー。
// getUpdatesのロングポーリングループを回し、受信した/startごとに
// ウェルカムメッセージを送信する。
type Worker struct {
	client      BotClient
	sanitizer   NameSanitizer
	metrics     MetricsRecorder
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewWorker はWorkerを生成する。
func NewWorker(client BotClient, sanitizer NameSanitizer, metrics MetricsRecorder, logger *slog.Logger, pollTimeout time.Duration) *Worker {
	return &Worker{
		client:      client,
		sanitizer:   sanitizer,
		metrics:     metrics,
		logger:      logger,
		pollTimeout: pollTimeout,
	}
}

// Run はポーリングループを開始する。ctxのキャンセルまでブロックする。
// 更新IDのオフセットはプロセス内でのみ管理される。再起動時に未確認の
// 更新が再配信されるが、/start応答は冪等なため問題にならない。
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("bot worker starting",
		slog.Duration("poll_timeout", w.pollTimeout),
	)

	var offset int64

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("bot worker stopped")
			return
		default:
		}

		updates, err := w.client.GetUpdates(ctx, offset, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("bot worker stopped")
				return
			}
			w.logger.Error("failed to get updates", slog.String("error", err.Error()))
			w.metrics.RecordNotifyFailure("get_updates")

			select {
			case <-ctx.Done():
				w.logger.Info("bot worker stopped")
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			w.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate は1件の更新を処理する。
// /startコマンド以外のメッセージは無視する。
func (w *Worker) handleUpdate(ctx context.Context, update Update) {
	msg := update.Message
	if msg == nil || !isStartCommand(msg.Text) {
		return
	}

	var displayName string
	if msg.From != nil {
		displayName = w.sanitizer.Sanitize(msg.From.FirstName)
	}

	if err := w.client.SendWelcome(ctx, msg.Chat.ID, displayName); err != nil {
		w.logger.Error("failed to send welcome message",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("error", err.Error()),
		)
		w.metrics.RecordNotifyFailure("send_message")
		return
	}

	w.metrics.RecordNotifySent()
	w.logger.Info("welcome message sent", slog.Int64("chat_id", msg.Chat.ID))
}

// isStartCommand はメッセージが/startコマンドかどうかを判定する。
// "/start@botname" 形式やディープリンクパラメータ付きも受理する。
func isStartCommand(text string) bool {
	if text == "" {
		return false
	}
	first, _, _ := strings.Cut(text, " ")
	command, _, _ := strings.Cut(first, "@")
	return command == "/start"
}
