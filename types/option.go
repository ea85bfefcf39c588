package types

import (
	"github.com/mcuadros/go-defaults"
	"go.opentelemetry.io/otel/trace"
)

func NewExecutorOptions() *ExecutorOptions {
	opts := &ExecutorOptions{}
	defaults.SetDefaults(opts)
	return opts
}

type ExecutorOptions struct {
	/**
	 * size of the worker pool the executor creates when no pool is given.
	 * 0 means 2 x runtime.NumCPU().
	 */
	Workers int
	/**
	 * Pool and Clock replace the executor's own worker pool and the system clock.
	 * An injected pool is never stopped by the executor.
	 */
	Pool  WorkerPool
	Clock Clock

	Listener StageOutcomeListener

	// nil means the global otel tracer provider
	TracerProvider trace.TracerProvider

	/**
	 * default: 120, stage outputs longer than this are cut in Trace().
	 */
	TraceValueWidth int `default:"120"`
	/**
	 * default: true, a stage with several RECOVERABLE_FAILURE routes is
	 * rejected by ConstructPipeline. When false the first route wins.
	 */
	RejectAmbiguousRecovery bool `default:"true"`
}

type ExecutorOption func(*ExecutorOptions)

func SetWorkers(workers int) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.Workers = workers
	}
}

func WithWorkerPool(pool WorkerPool) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.Pool = pool
	}
}

func WithClock(clock Clock) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.Clock = clock
	}
}

func WithListener(listener StageOutcomeListener) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.Listener = listener
	}
}

func WithTracerProvider(tp trace.TracerProvider) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.TracerProvider = tp
	}
}

func SetTraceValueWidth(width int) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.TraceValueWidth = width
	}
}

func AllowAmbiguousRecovery() ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.RejectAmbiguousRecovery = false
	}
}
