package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome 会话代理调用结果标签
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeConfigError     Outcome = "config_error"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeUpstreamError   Outcome = "upstream_error"
)

// Broker 会话代理指标，nil *Broker 不做任何事
type Broker struct {
	registry   *prometheus.Registry
	sessions   *prometheus.CounterVec
	identities prometheus.Counter
}

// NewBroker 在独立 registry 上注册业务指标以及 Go 运行时、进程指标
func NewBroker() *Broker {
	reg := prometheus.NewRegistry()

	b := &Broker{
		registry: reg,
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatkit_sessions_total",
			Help: "Session creation requests handled by the broker, by outcome.",
		}, []string{"outcome"}),
		identities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatkit_identities_issued_total",
			Help: "Anonymous user identifiers generated because no valid cookie was present.",
		}),
	}

	reg.MustRegister(
		b.sessions,
		b.identities,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return b
}

// Observe 记录一次调用结果
func (b *Broker) Observe(outcome Outcome) {
	if b == nil {
		return
	}
	b.sessions.WithLabelValues(string(outcome)).Inc()
}

// IdentityIssued 记录一次新生成的匿名标识
func (b *Broker) IdentityIssued() {
	if b == nil {
		return
	}
	b.identities.Inc()
}

// Registry 暴露底层 registry，供测试或追加指标使用
func (b *Broker) Registry() *prometheus.Registry {
	return b.registry
}

// Handler 以 Prometheus 格式输出指标
func (b *Broker) Handler() http.Handler {
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{})
}
