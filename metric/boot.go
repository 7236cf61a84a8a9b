package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/spoolkit/spool"
)

// BootMetrics instruments the boot sequence. It satisfies spool.Observer
// so runtimes report phase activity directly.
type BootMetrics struct {
	phaseDuration *prometheus.HistogramVec
	phaseFailures *prometheus.CounterVec
	spoolStage    *prometheus.GaugeVec
	bootDuration  prometheus.Gauge
}

// NewBootMetrics creates and registers the boot instrumentation.
func NewBootMetrics(registry *Registry) (*BootMetrics, error) {
	m := &BootMetrics{
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spoolkit_phase_duration_seconds",
			Help:    "Duration of each spool lifecycle phase",
			Buckets: prometheus.DefBuckets,
		}, []string{"spool", "phase"}),
		phaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spoolkit_phase_failures_total",
			Help: "Spool lifecycle phases that failed and aborted the boot",
		}, []string{"spool", "phase"}),
		spoolStage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spoolkit_spool_stage",
			Help: "Current lifecycle stage of each spool, as a stage ordinal",
		}, []string{"spool"}),
		bootDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spoolkit_boot_duration_seconds",
			Help: "Wall time of the last completed boot sequence",
		}),
	}

	registrations := map[string]prometheus.Collector{
		"boot.phase_duration": m.phaseDuration,
		"boot.phase_failures": m.phaseFailures,
		"boot.spool_stage":    m.spoolStage,
		"boot.duration":       m.bootDuration,
	}
	for name, collector := range registrations {
		if err := registry.Register(name, collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// PhaseStarted implements spool.Observer.
func (m *BootMetrics) PhaseStarted(string, string) {}

// PhaseCompleted implements spool.Observer.
func (m *BootMetrics) PhaseCompleted(spoolName, phase string, elapsed time.Duration) {
	m.phaseDuration.WithLabelValues(spoolName, phase).Observe(elapsed.Seconds())
}

// PhaseFailed implements spool.Observer.
func (m *BootMetrics) PhaseFailed(spoolName, phase string) {
	m.phaseFailures.WithLabelValues(spoolName, phase).Inc()
}

// StageChanged implements spool.Observer.
func (m *BootMetrics) StageChanged(spoolName string, stage spool.Stage) {
	m.spoolStage.WithLabelValues(spoolName).Set(float64(stage))
}

// ObserveBootDuration records the wall time of a completed boot.
func (m *BootMetrics) ObserveBootDuration(elapsed time.Duration) {
	m.bootDuration.Set(elapsed.Seconds())
}
