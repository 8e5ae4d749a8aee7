// internal/status/sink.go
// Progress reporting. Heartbeats go to the structured log; counters go to
// Prometheus. The optional /metrics listener makes long batch runs
// observable without attaching to the process.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
)

// Sink implements schemas.StatusSink over zap and Prometheus.
type Sink struct {
	logger *zap.Logger

	jobsApplied   prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsSkipped   prometheus.Counter
	heartbeats    *prometheus.CounterVec
	lastHeartbeat prometheus.Gauge

	registry *prometheus.Registry
	server   *http.Server
}

// NewSink registers the counters on its own registry so repeated
// construction in tests never collides.
func NewSink(logger *zap.Logger) *Sink {
	return newSinkWithRegistry(logger, prometheus.NewRegistry())
}

func newSinkWithRegistry(logger *zap.Logger, reg *prometheus.Registry) *Sink {
	factory := promauto.With(reg)
	s := &Sink{
		logger: logger.Named("status"),
		jobsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "easyapply_jobs_applied_total",
			Help: "Applications submitted successfully.",
		}),
		jobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "easyapply_jobs_failed_total",
			Help: "Applications that failed or were abandoned.",
		}),
		jobsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "easyapply_jobs_skipped_total",
			Help: "Jobs skipped without an attempt (already applied, language mismatch).",
		}),
		heartbeats: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easyapply_heartbeats_total",
			Help: "Heartbeats by activity.",
		}, []string{"activity"}),
		lastHeartbeat: factory.NewGauge(prometheus.GaugeOpts{
			Name: "easyapply_last_heartbeat_timestamp_seconds",
			Help: "Unix time of the most recent heartbeat.",
		}),
	}
	s.registry = reg
	return s
}

var _ schemas.StatusSink = (*Sink)(nil)

// SendHeartbeat logs the activity and bumps its counter. Never blocks.
func (s *Sink) SendHeartbeat(activity string, details map[string]string) {
	s.heartbeats.WithLabelValues(activity).Inc()
	s.lastHeartbeat.SetToCurrentTime()
	fields := make([]zap.Field, 0, len(details)+1)
	fields = append(fields, zap.String("activity", activity))
	for k, v := range details {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.Info("Heartbeat.", fields...)
}

func (s *Sink) IncrementJobsApplied() { s.jobsApplied.Inc() }
func (s *Sink) IncrementJobsFailed()  { s.jobsFailed.Inc() }
func (s *Sink) IncrementJobsSkipped() { s.jobsSkipped.Inc() }

// Serve exposes /metrics on addr until ctx is cancelled. Blocking; run it
// in its own goroutine.
func (s *Sink) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
