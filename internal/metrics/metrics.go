// Package metrics records per-stage record counts and durations for batch
// runs, exported as a Prometheus textfile.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"
)

// Recorder holds the stage metrics on a private registry. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	// Records read by a stage
	RecordsIn *prometheus.CounterVec

	// Records written by a stage
	RecordsOut *prometheus.CounterVec

	// Records dropped by a stage, by reason
	RecordsRejected *prometheus.CounterVec

	// Wall time of the last run of a stage
	StageDuration *prometheus.GaugeVec
}

// New creates a Recorder with all stage metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		RecordsIn: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formd_records_in_total",
			Help: "Records read by a pipeline stage",
		}, []string{"stage"}),

		RecordsOut: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formd_records_out_total",
			Help: "Records written by a pipeline stage",
		}, []string{"stage"}),

		RecordsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formd_records_rejected_total",
			Help: "Records dropped by a pipeline stage by reason",
		}, []string{"stage", "reason"}),

		StageDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "formd_stage_duration_seconds",
			Help: "Wall-clock duration of the last stage run",
		}, []string{"stage"}),
	}
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// In adds n records read by stage.
func (r *Recorder) In(stage string, n int) {
	if r != nil {
		r.RecordsIn.WithLabelValues(stage).Add(float64(n))
	}
}

// Out adds n records written by stage.
func (r *Recorder) Out(stage string, n int) {
	if r != nil {
		r.RecordsOut.WithLabelValues(stage).Add(float64(n))
	}
}

// Rejected adds n records dropped by stage for reason.
func (r *Recorder) Rejected(stage, reason string, n int) {
	if r != nil && n > 0 {
		r.RecordsRejected.WithLabelValues(stage, reason).Add(float64(n))
	}
}

// ObserveDuration sets the stage duration.
func (r *Recorder) ObserveDuration(stage string, d time.Duration) {
	if r != nil {
		r.StageDuration.WithLabelValues(stage).Set(d.Seconds())
	}
}

// WriteTextfile writes the registry in text exposition format for the
// node exporter textfile collector. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "metrics: create textfile dir")
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return eris.Wrapf(err, "metrics: write textfile %s", path)
	}
	return nil
}
