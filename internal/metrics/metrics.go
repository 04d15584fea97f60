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
// 取り込みパイプラインとハンドラー層から利用する。
type MetricsCollector interface {
	RecordIngestSuccess()
	RecordIngestFailure(reason string)
	RecordExtractionDegraded()
	RecordClassificationDegraded()
	RecordFetchLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ingestSuccess   prometheus.Counter
	ingestFail      *prometheus.CounterVec
	extractDegrade  prometheus.Counter
	classifyDegrade prometheus.Counter
	fetchLatency    prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkstash_ingest_success_total",
			Help: "取り込み成功の合計数",
		}),
		ingestFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkstash_ingest_fail_total",
			Help: "取り込み失敗の合計数（失敗理由別）",
		}, []string{"reason"}),
		extractDegrade: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkstash_extraction_degraded_total",
			Help: "本文またはタイトル抽出がフォールバックに縮退した合計数",
		}),
		classifyDegrade: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkstash_classification_degraded_total",
			Help: "分類がOtherにフォールバックした合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkstash_fetch_latency_seconds",
			Help:    "ページフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkstash_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.ingestSuccess,
		c.ingestFail,
		c.extractDegrade,
		c.classifyDegrade,
		c.fetchLatency,
		c.httpStatus,
	)

	return c
}

// RecordIngestSuccess は取り込み成功を記録する。
func (c *Collector) RecordIngestSuccess() {
	c.ingestSuccess.Inc()
}

// RecordIngestFailure は取り込み失敗を失敗理由とともに記録する。
func (c *Collector) RecordIngestFailure(reason string) {
	c.ingestFail.WithLabelValues(reason).Inc()
}

// RecordExtractionDegraded は抽出の縮退を記録する。
func (c *Collector) RecordExtractionDegraded() {
	c.extractDegrade.Inc()
}

// RecordClassificationDegraded は分類の縮退を記録する。
func (c *Collector) RecordClassificationDegraded() {
	c.classifyDegrade.Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
