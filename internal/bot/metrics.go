package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Экспортируются через /metrics (promhttp) в cmd/server.

// ============ Метрики циклов ============

// CycleDuration - длительность цикла стратегии
var CycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "bagbot",
		Subsystem: "strategy",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a strategy cycle in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	},
)

// CyclesTotal - количество циклов по результату
var CyclesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bagbot",
		Subsystem: "strategy",
		Name:      "cycles_total",
		Help:      "Total number of strategy cycles",
	},
	[]string{"result"}, // ok, error
)

// SignalsTotal - сгенерированные сигналы по действию
var SignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bagbot",
		Subsystem: "strategy",
		Name:      "signals_total",
		Help:      "Total number of generated trading signals",
	},
	[]string{"action", "sentiment"},
)

// ============ Метрики сделок ============

// OrderExecutionLatency - время размещения ордера на бирже
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "bagbot",
		Subsystem: "trading",
		Name:      "order_execution_latency_ms",
		Help:      "Time to place order on exchange in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
	[]string{"exchange", "side"},
)

// TradesTotal - количество ордеров
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bagbot",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total number of submitted orders",
	},
	[]string{"symbol", "side", "result"}, // result: success, failed, unpersisted
)

// ============ Метрики риска ============

// RiskRejections - сигналы, отклонённые риск-менеджером
var RiskRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bagbot",
		Subsystem: "risk",
		Name:      "rejections_total",
		Help:      "Number of signals blocked by risk management",
	},
	[]string{"reason"},
)

// EmergencyStops - аварийные остановки сессий
var EmergencyStops = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bagbot",
		Subsystem: "risk",
		Name:      "emergency_stops_total",
		Help:      "Number of emergency session pauses",
	},
)

// RiskScore - последняя оценка риска сессии (0-100)
var RiskScore = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "bagbot",
		Subsystem: "risk",
		Name:      "score",
		Help:      "Latest composite risk score of the active session",
	},
)

// ============ Метрики состояния ============

// SessionCapital - текущий капитал и накопленные токены активной сессии
var SessionCapital = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "bagbot",
		Subsystem: "session",
		Name:      "holdings",
		Help:      "Holdings of the active session by asset kind",
	},
	[]string{"kind"}, // quote, base
)

// SchedulerRunning - состояние планировщика (1=running, 0=stopped)
var SchedulerRunning = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "bagbot",
		Subsystem: "scheduler",
		Name:      "running",
		Help:      "Scheduler state (1=running, 0=stopped)",
	},
)

// ============ Вспомогательные функции ============

// RecordCycle записывает длительность и результат цикла
func RecordCycle(seconds float64, err error) {
	CycleDuration.Observe(seconds)
	if err != nil {
		CyclesTotal.WithLabelValues("error").Inc()
		return
	}
	CyclesTotal.WithLabelValues("ok").Inc()
}

// RecordSignal записывает сгенерированный сигнал
func RecordSignal(action Action, sentiment Sentiment) {
	SignalsTotal.WithLabelValues(string(action), string(sentiment)).Inc()
}

// RecordTrade записывает результат размещения ордера
func RecordTrade(symbol, side, result string) {
	TradesTotal.WithLabelValues(symbol, side, result).Inc()
}

// RecordOrderLatency записывает латентность размещения ордера
func RecordOrderLatency(exchange, side string, latencyMs float64) {
	OrderExecutionLatency.WithLabelValues(exchange, side).Observe(latencyMs)
}

// RecordRiskRejection записывает отклонение сигнала
func RecordRiskRejection(reason string) {
	RiskRejections.WithLabelValues(reason).Inc()
}

// UpdateSessionHoldings обновляет балансы активной сессии
func UpdateSessionHoldings(quote, base float64) {
	SessionCapital.WithLabelValues("quote").Set(quote)
	SessionCapital.WithLabelValues("base").Set(base)
}

// UpdateSchedulerState обновляет состояние планировщика
func UpdateSchedulerState(running bool) {
	if running {
		SchedulerRunning.Set(1)
	} else {
		SchedulerRunning.Set(0)
	}
}
