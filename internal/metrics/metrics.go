package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RunsTotal counts scoring runs by outcome ("ok" or the error kind).
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topsis",
		Name:      "runs_total",
		Help:      "Scoring runs by outcome.",
	}, []string{"source", "outcome"})

	Alternatives = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "topsis",
		Name:      "run_alternatives",
		Help:      "Number of alternatives per successful run.",
		Buckets:   prometheus.ExponentialBuckets(2, 2, 10),
	})

	MailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topsis",
		Name:      "mails_total",
		Help:      "Result e-mails by kind and outcome.",
	}, []string{"kind", "outcome"})

	MashupJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topsis",
		Name:      "mashup_jobs_total",
		Help:      "Mashup jobs by terminal status.",
	}, []string{"status"})

	MashupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "topsis",
		Name:      "mashup_pipeline_seconds",
		Help:      "Wall time of the mashup pipeline.",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 9),
	})

	MashupClips = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "topsis",
		Name:      "mashup_clips",
		Help:      "Clips joined per mashup.",
		Buckets:   prometheus.LinearBuckets(5, 5, 10),
	})
)

func init() {
	prometheus.MustRegister(RunsTotal, Alternatives, MailsTotal, MashupJobsTotal, MashupDuration, MashupClips)
}

// ObserveRun records the outcome of one scoring run. kind is empty on
// success.
func ObserveRun(source, kind string, alternatives int) {
	if kind == "" {
		RunsTotal.WithLabelValues(source, "ok").Inc()
		Alternatives.Observe(float64(alternatives))
		return
	}
	RunsTotal.WithLabelValues(source, kind).Inc()
}
