package adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics registra o desfecho e a duração de cada tentativa de reserva.
type BookingMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewBookingMetrics(registerer prometheus.Registerer) (*BookingMetrics, error) {
	m := &BookingMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "train_booking",
			Name:      "booking_attempts_total",
			Help:      "Booking attempts partitioned by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "train_booking",
			Name:      "booking_duration_seconds",
			Help:      "Time spent inside the booking transaction, including lock wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.duration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *BookingMetrics) ObserveBooking(outcome string, elapsed time.Duration) {
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Attempts expõe o contador para leitura em testes.
func (m *BookingMetrics) Attempts() *prometheus.CounterVec {
	return m.attempts
}
