package runtime

import (
	"context"
	goruntime "runtime"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stageflow/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/warriorguo/stageflow/runtime"
)

var (
	_ types.Executor = &executor{}

	errExecutorClosed = errors.New("executor is closed")
)

func NewExecutor(graph types.StageGraph, opts ...types.ExecutorOption) types.Executor {
	options := types.NewExecutorOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newExecutor(graph, options)
}

type executor struct {
	mu sync.Mutex

	graph types.StageGraph
	opts  *types.ExecutorOptions

	pool      types.WorkerPool
	ownedPool *workerpool.WorkerPool
	clock     types.Clock
	listener  types.StageOutcomeListener
	tracer    trace.Tracer

	entry string
	plan  *executionPlan
	// the plan and execution Trace and RenderDOT report on
	lastPlan *executionPlan
	last     *execution
	closed   bool
}

func newExecutor(graph types.StageGraph, opts *types.ExecutorOptions) *executor {
	e := &executor{
		graph:    graph,
		opts:     opts,
		pool:     opts.Pool,
		clock:    opts.Clock,
		listener: opts.Listener,
	}
	if e.clock == nil {
		e.clock = types.SystemClock()
	}
	if e.listener == nil {
		e.listener = types.NoopListener{}
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	e.tracer = tp.Tracer(tracerName)
	return e
}

func (e *executor) UseExecutors(pool types.WorkerPool, clock types.Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pool != nil {
		e.stopOwnedPool()
		e.pool = pool
	}
	if clock != nil {
		e.clock = clock
	}
}

func (e *executor) UseListener(listener types.StageOutcomeListener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if listener == nil {
		listener = types.NoopListener{}
	}
	e.listener = listener
}

func (e *executor) ConstructPipeline(entry string, input any) error {
	builder := newPlanBuilder(e.graph, e.opts.RejectAmbiguousRecovery)
	plan, err := builder.buildPlan(entry, input)
	if err != nil {
		log.Debugf("failed to construct pipeline at %s: %v", entry, err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.entry = entry
	e.plan = plan
	e.lastPlan = plan
	e.last = nil
	log.Debugf("constructed pipeline at %s with %d stage executions", entry, len(plan.leaves))
	return nil
}

func (e *executor) Execute(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, types.NewUnknownExecutionError(errExecutorClosed)
	}
	plan := e.plan
	if plan == nil {
		entry := e.entry
		e.mu.Unlock()
		return nil, types.NewConstructionError(types.StageNotFound,
			"no pipeline has been constructed at %q since the last execution", entry)
	}
	e.plan = nil
	ex := newExecution(ctx, plan, e.ensurePool(), e.clock, e.listener, e.tracer)
	e.last = ex
	e.mu.Unlock()

	return ex.runPlan()
}

// ensurePool must be called with e.mu held.
func (e *executor) ensurePool() types.WorkerPool {
	if e.pool != nil {
		return e.pool
	}
	workers := e.opts.Workers
	if workers <= 0 {
		workers = 2 * goruntime.NumCPU()
	}
	log.Debugf("creating worker pool of %d workers", workers)
	e.ownedPool = workerpool.New(workers)
	e.pool = e.ownedPool
	return e.pool
}

// stopOwnedPool must be called with e.mu held.
func (e *executor) stopOwnedPool() {
	if e.ownedPool == nil {
		return
	}
	e.ownedPool.StopWait()
	if e.pool == types.WorkerPool(e.ownedPool) {
		e.pool = nil
	}
	e.ownedPool = nil
}

func (e *executor) Trace() string {
	e.mu.Lock()
	plan, last := e.lastPlan, e.last
	e.mu.Unlock()

	return renderTrace(plan, last, e.opts.TraceValueWidth)
}

func (e *executor) RenderDOT() string {
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()

	var records []types.StageRecord
	if last != nil {
		records = last.stageRecords()
	}
	return renderDOT(e.graph, records)
}

func (e *executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.plan = nil
	e.stopOwnedPool()
}
