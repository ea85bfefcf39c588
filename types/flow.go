package types

import "context"

type Executor interface {
	/**
	 * UseExecutors injects the pool running stage bodies and the clock used
	 * for stage timings. Either may be nil to keep the current one.
	 */
	UseExecutors(pool WorkerPool, clock Clock)
	UseListener(listener StageOutcomeListener)
	/**
	 * ConstructPipeline validates the graph and builds the execution plan
	 * rooted at entry. The plan is consumed by the next Execute.
	 */
	ConstructPipeline(entry string, input any) error
	Execute(ctx context.Context) (any, error)
	// Trace summarizes the plan and the last execution for diagnostics.
	Trace() string
	RenderDOT() string
	Close()
}
