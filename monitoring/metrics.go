package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	reservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_reservation_attempts_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"status"},
	)

	numbersReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_numbers_reserved_total",
			Help: "Total raffle numbers successfully reserved",
		},
	)

	verificationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_verification_decisions_total",
			Help: "Receipt verification decisions by action",
		},
		[]string{"decision"},
	)

	purchasesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_purchases_expired_total",
			Help: "Pending purchases released by the expiry sweep",
		},
	)

	cancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_cancellations_total",
			Help: "Purchase cancellations requested by buyers or organizers",
		},
	)

	lockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raffle_lock_wait_seconds",
			Help:    "Time spent waiting for the per-raffle reservation lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

// Monitor exposes the service counters. All Track methods are nil-safe so
// callers never have to guard for a disabled metrics setup.
type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	return &Monitor{redis: redisClient}
}

func (m *Monitor) TrackReservation(status string) {
	if m == nil {
		return
	}
	reservationAttempts.WithLabelValues(status).Inc()
}

func (m *Monitor) TrackNumbersReserved(count int) {
	if m == nil {
		return
	}
	numbersReserved.Add(float64(count))
}

func (m *Monitor) TrackVerification(decision string) {
	if m == nil {
		return
	}
	verificationDecisions.WithLabelValues(decision).Inc()
}

func (m *Monitor) TrackExpired(count int) {
	if m == nil {
		return
	}
	purchasesExpired.Add(float64(count))
}

func (m *Monitor) TrackCancellation() {
	if m == nil {
		return
	}
	cancellations.Inc()
}

func (m *Monitor) TrackLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	lockWaitDuration.Observe(duration.Seconds())
}

// RedisHealthy reports whether the lock backend answers a ping.
func (m *Monitor) RedisHealthy(ctx context.Context) bool {
	if m == nil || m.redis == nil {
		return false
	}
	return m.redis.Ping(ctx).Err() == nil
}
