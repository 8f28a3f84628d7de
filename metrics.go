package sqlexec

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const metricsPrefix = "sqlexec_"

const (
	outcomeOk        = "ok"
	outcomeError     = "error"
	outcomeNotUnique = "not_unique"
)

var durationBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Measures groups the statement metrics, labelled by op (insert, exec or select)
var Measures = struct {
	Statements *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}{
	Statements: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "statements_total",
		Help: "Total statements executed, by op and outcome.",
	}, []string{"op", "outcome"}),
	Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "statement_duration_seconds",
		Help:    "The histogram of statement durations, from prepare to release.",
		Buckets: durationBuckets,
	}, []string{"op"}),
}

// RegisterMetrics registers Measures with the given registerer
func RegisterMetrics(reg prometheus.Registerer) error {
	return multierr.Combine(
		reg.Register(Measures.Statements),
		reg.Register(Measures.Duration),
	)
}

func observe(op string, start time.Time, err error) {
	outcome := outcomeOk
	if err != nil {
		outcome = outcomeError
		if KindOf(err) == KindUniqueViolation {
			outcome = outcomeNotUnique
		}
	}
	Measures.Statements.WithLabelValues(op, outcome).Inc()
	Measures.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
