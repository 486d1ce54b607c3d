package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets issued, by class and payment method",
		},
		[]string{"class", "method"},
	)

	codeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_code_collisions_total",
			Help: "Admission code collisions that forced a regenerate",
		},
	)

	admissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_admissions_total",
			Help: "Gate admission attempts, by outcome",
		},
		[]string{"outcome"},
	)

	reviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Bank-transfer review decisions",
		},
		[]string{"decision"},
	)

	broadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Broadcast delivery attempts, by result",
		},
		[]string{"result"},
	)

	remindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Unused-pass reminders claimed by the daily sweep",
		},
	)

	captureSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "capture_sessions_in_flight",
			Help: "Card captures currently tracked in redis",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

func TicketIssued(class, method string) {
	ticketsIssued.WithLabelValues(class, method).Inc()
}

func CodeCollision() {
	codeCollisions.Inc()
}

func Admission(outcome string) {
	admissions.WithLabelValues(outcome).Inc()
}

func ReviewDecision(decision string) {
	reviewDecisions.WithLabelValues(decision).Inc()
}

func BroadcastDelivery(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	broadcastDeliveries.WithLabelValues(result).Inc()
}

func ReminderSent() {
	remindersSent.Inc()
}

// Monitor periodically samples the gauges that need polling.
type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()

		m.collectCaptureSessions(ctx)
		goroutineCount.Set(float64(runtime.NumGoroutine()))
	}
}

func (m *Monitor) collectCaptureSessions(ctx context.Context) {
	if m.redis == nil {
		return
	}
	keys, err := m.redis.Keys(ctx, "capture:*").Result()
	if err != nil {
		return
	}
	captureSessions.Set(float64(len(keys)))
}
