package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	CommandsProcessed    prometheus.Counter
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	ReservationsCreated  *prometheus.CounterVec
	ReservationsBlocked  prometheus.Counter
	HoldsExpired         prometheus.Counter
}

// NewMetrics создает новые метрики
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "billiard_bot_messages_processed_total",
			Help: "Total number of processed messages",
		}),

		CommandsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "billiard_bot_commands_processed_total",
			Help: "Total number of processed commands",
		}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "billiard_bot_errors_total",
			Help: "Total number of handler errors and panics",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "billiard_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		ReservationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "billiard_bot_reservations_created_total",
			Help: "Total number of reservations created",
		}, []string{"table_name"}),

		ReservationsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "billiard_bot_reservations_conflict_total",
			Help: "Total number of reservation attempts rejected due to conflicts",
		}),

		HoldsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "billiard_bot_holds_expired_total",
			Help: "Total number of expired holds removed",
		}),
	}
}
