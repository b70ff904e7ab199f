// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string)
	RecordSignup()
	RecordTokenRefresh()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsRevoked(count int64)
	RecordPayment(status string)
	RecordUpload(kind string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    *prometheus.CounterVec
	loginFail       *prometheus.CounterVec
	signups         prometheus.Counter
	tokenRefresh    prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	sessionsRevoked prometheus.Counter
	payments        *prometheus.CounterVec
	uploads         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_login_success_total",
			Help: "プロバイダー別のログイン成功の合計数",
		}, []string{"provider"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_login_fail_total",
			Help: "プロバイダー別のログイン失敗の合計数",
		}, []string{"provider"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careerhub_signup_total",
			Help: "新規会員登録の合計数",
		}),
		tokenRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careerhub_token_refresh_total",
			Help: "アクセストークン再発行の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "careerhub_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careerhub_sessions_revoked_total",
			Help: "クリーンアップで無効化された期限切れセッションの合計数",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_payments_total",
			Help: "状態別の決済承認の合計数",
		}, []string{"status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_uploads_total",
			Help: "種別ごとのファイルアップロードの合計数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.signups,
		c.tokenRefresh,
		c.httpStatus,
		c.requestLatency,
		c.sessionsRevoked,
		c.payments,
		c.uploads,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(provider string) {
	c.loginSuccess.WithLabelValues(provider).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(provider string) {
	c.loginFail.WithLabelValues(provider).Inc()
}

// RecordSignup は新規会員登録を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordTokenRefresh はアクセストークン再発行を記録する。
func (c *Collector) RecordTokenRefresh() {
	c.tokenRefresh.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsRevoked は無効化した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsRevoked(count int64) {
	c.sessionsRevoked.Add(float64(count))
}

// RecordPayment は決済承認の結果を記録する（status: confirmed / failed）。
func (c *Collector) RecordPayment(status string) {
	c.payments.WithLabelValues(status).Inc()
}

// RecordUpload はアップロードを記録する（kind: image / document）。
func (c *Collector) RecordUpload(kind string) {
	c.uploads.WithLabelValues(kind).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
