package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	Logger *zap.Logger

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_violations_total",
			Help: "Total number of policy violations detected",
		},
		[]string{"kind"},
	)

	enforcementActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enforcement_actions_total",
			Help: "Total number of enforcement actions attempted",
		},
		[]string{"action", "status"},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "Time spent processing messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init(ctx context.Context, metricsAddr string) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(violationsTotal)
	prometheus.MustRegister(enforcementActionsTotal)
	prometheus.MustRegister(messageProcessingDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordViolation records a detected policy violation by kind
func RecordViolation(kind string) {
	violationsTotal.WithLabelValues(kind).Inc()
}

// RecordEnforcement records an attempted enforcement action and its outcome
func RecordEnforcement(action, status string) {
	enforcementActionsTotal.WithLabelValues(action, status).Inc()
}

// StartMessageProcessing returns a function to record message processing duration
func StartMessageProcessing() func(status string) {
	timer := prometheus.NewTimer(nil)
	return func(status string) {
		messageProcessingDuration.WithLabelValues(status).Observe(timer.ObserveDuration().Seconds())
	}
}
