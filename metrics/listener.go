package metrics

import (
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/warriorguo/stageflow/types"
)

const (
	subsystem = "stage"

	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeRecovered = "recovered"
)

var (
	_ types.StageOutcomeListener = &Listener{}
)

/**
 * Listener exports stage outcomes as Prometheus metrics:
 *
 *	<namespace>_stage_executions_total{stage, outcome}
 *	<namespace>_stage_duration_seconds{stage, outcome}
 *	<namespace>_stage_recoveries_total{stage, recovery}
 */
type Listener struct {
	Executions *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Recoveries *prometheus.CounterVec
}

// NewListener registers the stage metrics with reg. Metrics already registered
// under the same names are reused, so several executors can share one registry.
func NewListener(reg prometheus.Registerer, namespace string) (*Listener, error) {
	l := &Listener{
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "executions_total",
			Help:      "Stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Stage execution time by outcome.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage", "outcome"}),
		Recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recoveries_total",
			Help:      "Failed stages handed to their recovery stage.",
		}, []string{"stage", "recovery"}),
	}
	if reg == nil {
		return l, nil
	}

	var err error
	if l.Executions, err = register(reg, l.Executions); err != nil {
		return nil, errors.Trace(err)
	}
	if l.Duration, err = register(reg, l.Duration); err != nil {
		return nil, errors.Trace(err)
	}
	if l.Recoveries, err = register(reg, l.Recoveries); err != nil {
		return nil, errors.Trace(err)
	}
	return l, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, errors.Annotatef(err, "register stage metrics")
}

func (l *Listener) Success(stage types.Stage, output any, elapsed time.Duration) {
	l.observe(stage.Name(), outcomeSuccess, elapsed)
}

func (l *Listener) Failure(stage types.Stage, cause error, elapsed time.Duration) {
	l.observe(stage.Name(), outcomeFailure, elapsed)
}

func (l *Listener) Recover(failed types.Stage, recovery types.Stage, cause error, elapsed time.Duration) {
	l.observe(failed.Name(), outcomeRecovered, elapsed)
	l.Recoveries.WithLabelValues(failed.Name(), recovery.Name()).Inc()
}

func (l *Listener) observe(stage, outcome string, elapsed time.Duration) {
	l.Executions.WithLabelValues(stage, outcome).Inc()
	l.Duration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}
