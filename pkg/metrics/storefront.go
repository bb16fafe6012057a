package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records cart, checkout and side-effect outcomes. A nil *Storefront
// (or one built without a registerer) silently drops observations.
type Storefront struct {
	cartMutations      *prometheus.CounterVec
	orderSubmissions   *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	taskFailures       *prometheus.CounterVec
	taskDuration       *prometheus.HistogramVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation and result (applied, rejected, failed).",
	}, []string{"op", "result"})
	orderSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	submissionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_submission_duration_seconds",
		Help:    "Time spent in the order backend per submission.",
		Buckets: prometheus.DefBuckets,
	})
	taskFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_background_task_failures_total",
		Help: "Fire-and-forget task failures by task name.",
	}, []string{"task"})
	taskDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_background_task_duration_seconds",
		Help:    "Duration of fire-and-forget tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	reg.MustRegister(cartMutations, orderSubmissions, submissionDuration, taskFailures, taskDuration)
	return &Storefront{
		cartMutations:      cartMutations,
		orderSubmissions:   orderSubmissions,
		submissionDuration: submissionDuration,
		taskFailures:       taskFailures,
		taskDuration:       taskDuration,
	}
}

// IncCartMutation counts one cart operation.
func (s *Storefront) IncCartMutation(op, result string) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// ObserveSubmission records an order submission outcome and its backend latency.
func (s *Storefront) ObserveSubmission(outcome string, duration time.Duration) {
	if s == nil || s.orderSubmissions == nil {
		return
	}
	s.orderSubmissions.WithLabelValues(normalizeLabel(outcome)).Inc()
	if duration > 0 {
		s.submissionDuration.Observe(duration.Seconds())
	}
}

// IncTaskFailure counts a failed background task.
func (s *Storefront) IncTaskFailure(task string) {
	if s == nil || s.taskFailures == nil {
		return
	}
	s.taskFailures.WithLabelValues(normalizeLabel(task)).Inc()
}

// ObserveTask records how long a background task ran.
func (s *Storefront) ObserveTask(task string, duration time.Duration) {
	if s == nil || s.taskDuration == nil {
		return
	}
	s.taskDuration.WithLabelValues(normalizeLabel(task)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
