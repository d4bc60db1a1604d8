package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	contentFlaggedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_flagged_total",
			Help: "Total number of submissions flagged by the classifier",
		},
		[]string{"kind"},
	)

	spamIncidentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spam_incidents_total",
			Help: "Total number of recorded spam incidents",
		},
	)

	autoBansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_bans_total",
			Help: "Total number of bans issued by policy without human review",
		},
		[]string{"reason"},
	)

	classifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classify_duration_seconds",
			Help:    "Time spent classifying submissions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

// Server exposes the metrics endpoint as a lifecycle component.
type Server struct {
	port int
	srv  *http.Server
}

func NewServer(port int) *Server {
	return &Server{port: port}
}

func (s *Server) Start(ctx context.Context) error {
	_ = ctx
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func Init(ctx context.Context) error {
	_ = ctx

	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(contentFlaggedTotal)
	prometheus.MustRegister(spamIncidentsTotal)
	prometheus.MustRegister(autoBansTotal)
	prometheus.MustRegister(classifyDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return nil
}

// RecordContentFlagged records one flagged submission of the given kind
// ("listing" or "message").
func RecordContentFlagged(kind string) {
	contentFlaggedTotal.WithLabelValues(kind).Inc()
}

// RecordSpamIncident records one spam-pattern hit.
func RecordSpamIncident() {
	spamIncidentsTotal.Inc()
}

// RecordAutoBan records a policy-issued ban.
func RecordAutoBan(reason string) {
	autoBansTotal.WithLabelValues(reason).Inc()
}

// StartClassification returns a function to record classification duration.
func StartClassification() func(status string) {
	start := prometheus.NewTimer(classifyDuration.WithLabelValues("processing"))
	return func(status string) {
		start.ObserveDuration()
	}
}
