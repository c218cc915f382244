package gateway

import (
	"errors"
	"time"

	"github.com/nao1215/apigateway/pkg/httpclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// 転送結果のラベル値。
const (
	outcomeSuccess         = "success"
	outcomeTimeout         = "timeout"
	outcomeUnavailable     = "unavailable"
	outcomeInvalidResponse = "invalid_response"
	outcomeGatewayError    = "gateway_error"
)

// metrics はバックエンドへの転送に関するPrometheusメトリクス。
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newMetrics はサーバーごとのレジストリとコレクターを生成する。
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "forward_requests_total",
			Help:      "Number of requests forwarded to backend services.",
		}, []string{"route", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "forward_duration_seconds",
			Help:      "Time spent forwarding a request to a backend service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observe は転送1回分の結果を記録する。
func (m *metrics) observe(route, method string, err error, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, outcomeOf(err)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// outcomeOf は転送エラーをラベル値に変換する。
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, httpclient.ErrTimeout):
		return outcomeTimeout
	case errors.Is(err, httpclient.ErrInvalidBackendResponse):
		return outcomeInvalidResponse
	case errors.Is(err, httpclient.ErrBackendUnavailable):
		return outcomeUnavailable
	default:
		return outcomeGatewayError
	}
}
