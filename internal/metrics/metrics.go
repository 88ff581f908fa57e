// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービスやボットワーカーから利用する。
type MetricsCollector interface {
	RecordAuthSuccess()
	RecordAuthFailure(reason string)
	RecordAuthLatency(duration time.Duration)
	RecordSessionRejected(reason string)
	RecordNotifySent()
	RecordNotifyFailure(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authSuccess     prometheus.Counter
	authFail        *prometheus.CounterVec
	authLatency     prometheus.Histogram
	sessionRejected *prometheus.CounterVec
	notifySent      prometheus.Counter
	notifyFail      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minigate_auth_success_total",
			Help: "initData検証成功の合計数",
		}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigate_auth_fail_total",
			Help: "initData検証失敗の理由別合計数",
		}, []string{"reason"}),
		authLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minigate_auth_latency_seconds",
			Help:    "認証フローのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigate_session_rejected_total",
			Help: "セッショントークン拒否の理由別合計数",
		}, []string{"reason"}),
		notifySent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minigate_notify_sent_total",
			Help: "ボットメッセージ送信成功の合計数",
		}),
		notifyFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigate_notify_fail_total",
			Help: "ボットメッセージ送信失敗の理由別合計数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFail,
		c.authLatency,
		c.sessionRejected,
		c.notifySent,
		c.notifyFail,
	)

	return c
}

// RecordAuthSuccess は認証成功を記録する。
func (c *Collector) RecordAuthSuccess() {
	c.authSuccess.Inc()
}

// RecordAuthFailure は認証失敗を理由ラベル付きで記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFail.WithLabelValues(reason).Inc()
}

// RecordAuthLatency は認証フローのレイテンシを記録する。
func (c *Collector) RecordAuthLatency(duration time.Duration) {
	c.authLatency.Observe(duration.Seconds())
}

// RecordSessionRejected はセッショントークンの拒否を記録する。
func (c *Collector) RecordSessionRejected(reason string) {
	c.sessionRejected.WithLabelValues(reason).Inc()
}

// RecordNotifySent はボットメッセージ送信成功を記録する。
func (c *Collector) RecordNotifySent() {
	c.notifySent.Inc()
}

// RecordNotifyFailure はボットメッセージ送信失敗を記録する。
func (c *Collector) RecordNotifyFailure(reason string) {
	c.notifyFail.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
