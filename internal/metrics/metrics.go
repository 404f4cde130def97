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
// 取り込みパイプラインとフィードポーリングワーカーから利用する。
type MetricsCollector interface {
	RecordOutcome(status string)
	RecordArticleCreated()
	RecordClassifyUnavailable()
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordClassifyLatency(duration time.Duration)
	RecordFeedPoll(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	outcomes            *prometheus.CounterVec
	articlesCreated     prometheus.Counter
	classifyUnavailable prometheus.Counter
	httpStatus          *prometheus.CounterVec
	fetchLatency        prometheus.Histogram
	classifyLatency     prometheus.Histogram
	feedPolls           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "articlelens_ingest_outcomes_total",
			Help: "URLごとの取り込み結果の合計数",
		}, []string{"status"}),
		articlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "articlelens_articles_created_total",
			Help: "新規作成された記事の合計数",
		}),
		classifyUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "articlelens_classify_unavailable_total",
			Help: "分類サービスを利用できなかった回数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "articlelens_fetch_http_status_total",
			Help: "記事取得時のHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "articlelens_fetch_latency_seconds",
			Help:    "記事取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		classifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "articlelens_classify_latency_seconds",
			Help:    "記事分類のレイテンシ（秒）",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		feedPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "articlelens_feed_polls_total",
			Help: "フィードポーリングの結果別の回数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.outcomes,
		c.articlesCreated,
		c.classifyUnavailable,
		c.httpStatus,
		c.fetchLatency,
		c.classifyLatency,
		c.feedPolls,
	)

	return c
}

// RecordOutcome はURLごとの取り込み結果（success/error）を記録する。
func (c *Collector) RecordOutcome(status string) {
	c.outcomes.WithLabelValues(status).Inc()
}

// RecordArticleCreated は記事の新規作成を記録する。
func (c *Collector) RecordArticleCreated() {
	c.articlesCreated.Inc()
}

// RecordClassifyUnavailable は分類サービス利用不可を記録する。
func (c *Collector) RecordClassifyUnavailable() {
	c.classifyUnavailable.Inc()
}

// RecordHTTPStatus は記事取得のHTTPステータスコードを記録する。
// 応答を受け取れなかった場合は0を渡し、"none"として記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	label := "none"
	if statusCode > 0 {
		label = strconv.Itoa(statusCode)
	}
	c.httpStatus.WithLabelValues(label).Inc()
}

// RecordFetchLatency は記事取得のレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordClassifyLatency は記事分類のレイテンシを記録する。
func (c *Collector) RecordClassifyLatency(duration time.Duration) {
	c.classifyLatency.Observe(duration.Seconds())
}

// RecordFeedPoll はフィード1件のポーリング結果を記録する。
func (c *Collector) RecordFeedPoll(success bool) {
	result := "error"
	if success {
		result = "success"
	}
	c.feedPolls.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
