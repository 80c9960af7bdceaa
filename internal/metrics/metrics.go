// Package metrics 暴露 Prometheus 指标：
//   - agentdesk_oracle_calls_total{result}        oracle 调用结果（trade|no_trade|error|timeout|rejected）
//   - agentdesk_cache_lookups_total{cache,result} 决策缓存与 agent 交易缓存的命中情况
//   - agentdesk_trades_generated_total{agent}     生成的交易数
//   - agentdesk_positions_closed_total{reason}    按原因统计的平仓数
//   - agentdesk_agent_total_capital_usd{agent}    每个 agent 的总资金
//   - agentdesk_cycle_duration_seconds{kind}      生成/生命周期周期耗时
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	oracleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentdesk_oracle_calls_total",
			Help: "Decision oracle calls by result",
		},
		[]string{"result"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentdesk_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	tradesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentdesk_trades_generated_total",
			Help: "Trades produced by the generator",
		},
		[]string{"agent"},
	)

	positionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentdesk_positions_closed_total",
			Help: "Closed positions by reason",
		},
		[]string{"reason"},
	)

	agentCapital = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentdesk_agent_total_capital_usd",
			Help: "Starting capital plus realized and unrealized P&L",
		},
		[]string{"agent"},
	)

	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentdesk_cycle_duration_seconds",
			Help:    "Duration of generation and lifecycle cycles",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(oracleCalls, cacheLookups, tradesGenerated, positionsClosed, agentCapital, cycleDuration)
}

func OracleCall(result string) {
	oracleCalls.WithLabelValues(result).Inc()
}

func CacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

func TradesGenerated(agent string, n int) {
	tradesGenerated.WithLabelValues(agent).Add(float64(n))
}

func PositionClosed(reason string) {
	positionsClosed.WithLabelValues(reason).Inc()
}

func AgentCapital(agent string, usd float64) {
	agentCapital.WithLabelValues(agent).Set(usd)
}

func CycleDuration(kind string, seconds float64) {
	cycleDuration.WithLabelValues(kind).Observe(seconds)
}
