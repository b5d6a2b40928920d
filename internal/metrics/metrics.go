package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Recorder exports engine metrics to Prometheus. It satisfies the
// analyze.Metrics interface.
type Recorder struct {
	analyses          *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	finalScore        *prometheus.GaugeVec
	sentimentFailures *prometheus.CounterVec
}

// NewRecorder builds the recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Name:      "analyses_total",
				Help:      "Completed analyses by symbol and final signal",
			},
			[]string{"symbol", "signal"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Name:      "analysis_duration_seconds",
				Help:      "Wall time of a full analysis pass",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		finalScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "signal_engine",
				Name:      "final_score",
				Help:      "Most recent aggregate score per symbol",
			},
			[]string{"symbol"},
		),
		sentimentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Name:      "sentiment_failures_total",
				Help:      "Sentiment fetches that fell back to neutral",
			},
			[]string{"symbol"},
		),
	}
	reg.MustRegister(r.analyses, r.analysisDuration, r.finalScore, r.sentimentFailures)
	return r
}

func (r *Recorder) RecordAnalysis(symbol string, signal models.Signal, score float64, duration time.Duration) {
	r.analyses.WithLabelValues(symbol, string(signal)).Inc()
	r.analysisDuration.WithLabelValues(symbol).Observe(duration.Seconds())
	r.finalScore.WithLabelValues(symbol).Set(score)
}

func (r *Recorder) RecordSentimentFailure(symbol string) {
	r.sentimentFailures.WithLabelValues(symbol).Inc()
}
