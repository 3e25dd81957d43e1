package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 业务指标收集器，使用独立的注册表
type Collector struct {
	registry *prometheus.Registry

	suggestions      *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	modelFailures    *prometheus.CounterVec
	backtestScores   *prometheus.HistogramVec
	drawsSynced      *prometheus.CounterVec
	syncErrors       *prometheus.CounterVec
	lastContest      *prometheus.GaugeVec
}

// NewCollector 创建指标收集器
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "loterias"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.suggestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "generated_total",
			Help:      "Total number of suggestions generated.",
		},
		[]string{"game", "method", "constrained"},
	)

	c.trainingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "training_duration_seconds",
			Help:      "Time spent training and scoring a model.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"game", "method"},
	)

	c.modelFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "failures_total",
			Help:      "Total number of model runs that returned an error.",
		},
		[]string{"game", "method"},
	)

	c.backtestScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "score",
			Help:      "Walk-forward step scores (0-100).",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"game"},
	)

	c.drawsSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "draws_total",
			Help:      "Total number of draws added, by source.",
		},
		[]string{"game", "source"},
	)

	c.syncErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "errors_total",
			Help:      "Total number of failed result synchronisations.",
		},
		[]string{"game"},
	)

	c.lastContest = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_contest",
			Help:      "Most recent contest number stored per game.",
		},
		[]string{"game"},
	)

	c.registry.MustRegister(
		c.suggestions,
		c.trainingDuration,
		c.modelFailures,
		c.backtestScores,
		c.drawsSynced,
		c.syncErrors,
		c.lastContest,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return c
}

// Registry 返回底层注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordSuggestion 记录生成的一条建议
func (c *Collector) RecordSuggestion(game, method string, constrained bool) {
	c.suggestions.WithLabelValues(game, method, strconv.FormatBool(constrained)).Inc()
}

// RecordModelRun 记录一次模型训练耗时，失败时同时计数
func (c *Collector) RecordModelRun(game, method string, duration time.Duration, err error) {
	c.trainingDuration.WithLabelValues(game, method).Observe(duration.Seconds())
	if err != nil {
		c.modelFailures.WithLabelValues(game, method).Inc()
	}
}

// RecordBacktestScore 记录一步前向验证得分
func (c *Collector) RecordBacktestScore(game string, score float64) {
	c.backtestScores.WithLabelValues(game).Observe(score)
}

// RecordDrawAdded 记录新增开奖
func (c *Collector) RecordDrawAdded(game, source string, contest int) {
	c.drawsSynced.WithLabelValues(game, source).Inc()
	c.lastContest.WithLabelValues(game).Set(float64(contest))
}

// RecordSyncError 记录同步失败
func (c *Collector) RecordSyncError(game string) {
	c.syncErrors.WithLabelValues(game).Inc()
}
