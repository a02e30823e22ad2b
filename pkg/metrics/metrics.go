package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 表单转发调用延迟（毫秒）
	RelayCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_call_latency_ms",
			Help:    "Form relay call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"status"},
	)

	// 表单提交计数
	RelaySubmissionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_submission_count",
			Help: "Total number of form submissions by outcome",
		},
		[]string{"status", "kind"}, // status: success, failed
	)

	// 远程过程调用延迟（秒）
	RPCCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_call_duration_seconds",
			Help:    "Remote procedure call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"procedure", "status"},
	)

	// 数据库慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of database queries above the slow threshold",
		},
		[]string{"command"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordRelayCallLatency 记录表单转发调用延迟
func RecordRelayCallLatency(status string, duration time.Duration) {
	RelayCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// IncrementRelaySubmission 增加表单提交计数
func IncrementRelaySubmission(status, kind string) {
	RelaySubmissionCount.WithLabelValues(status, kind).Inc()
}

// RecordRPCCallDuration 记录远程过程调用延迟
func RecordRPCCallDuration(procedure, status string, duration time.Duration) {
	RPCCallDuration.WithLabelValues(procedure, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(command string) {
	SlowQueryCount.WithLabelValues(command).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
