package stageflow

import (
	"context"

	"github.com/juju/errors"
	"github.com/warriorguo/stageflow/runtime"
	"github.com/warriorguo/stageflow/types"
)

// NewGraph creates an empty stage graph
func NewGraph() types.StageGraph {
	return runtime.NewGraph()
}

// NewExecutor creates an executor over graph with the given options
func NewExecutor(graph types.StageGraph, opts ...types.ExecutorOption) types.Executor {
	return runtime.NewExecutor(graph, opts...)
}

/**
 * Run constructs the pipeline rooted at entry, executes it once and releases
 * the executor. Stage failures come back as *types.StageFailedError.
 */
func Run(ctx context.Context, graph types.StageGraph, entry string, input any,
	opts ...types.ExecutorOption) (any, error) {
	executor := NewExecutor(graph, opts...)
	defer executor.Close()

	if err := executor.ConstructPipeline(entry, input); err != nil {
		return nil, errors.Trace(err)
	}
	return executor.Execute(ctx)
}
