package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pawsd",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pawsd",
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled or deleted while active.",
		},
	)

	enrollments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsd",
			Name:      "class_enrollments_total",
			Help:      "Class enrollments by resulting roster group.",
		},
		[]string{"status"},
	)

	waitlistPromotions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pawsd",
			Name:      "waitlist_promotions_total",
			Help:      "Waitlisted members promoted into an open spot.",
		},
	)

	pushSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsd",
			Name:      "push_notifications_total",
			Help:      "Web push sends by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingsCancelled,
			enrollments,
			waitlistPromotions,
			pushSends,
		)
	})
}

// IncHTTP increments the request counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a successful booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingCancelled counts a cancellation that released a slot.
func IncBookingCancelled() {
	bookingsCancelled.Inc()
}

// IncEnrollment counts a roster join by its resulting group.
func IncEnrollment(status string) {
	enrollments.WithLabelValues(status).Inc()
}

// IncWaitlistPromotion counts one member moved off a waitlist.
func IncWaitlistPromotion() {
	waitlistPromotions.Inc()
}

// IncPush counts a web push attempt by result.
func IncPush(result string) {
	pushSends.WithLabelValues(result).Inc()
}
