package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/stageflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type stageResult struct {
	output any
	err    error
	start  time.Time
	end    time.Time
}

func (r *stageResult) elapsed() time.Duration {
	return r.end.Sub(r.start)
}

// invokeStage runs one stage body on the calling goroutine, turning a panic into its failure cause.
func invokeStage(ctx context.Context, stage types.Stage, input any, clock types.Clock) (res *stageResult) {
	res = &stageResult{start: clock.Now()}
	defer func() {
		if r := recover(); r != nil {
			res.output = nil
			res.err = errors.Errorf("stage %s panicked: %v", stage.Name(), r)
		}
		res.end = clock.Now()
	}()

	res.output, res.err = stage.Execute(ctx, input)
	return res
}

func (n *leafNode) run(ex *execution, input any) (any, error) {
	name := n.stage.Name()
	ctx, span := ex.tracer.Start(ex.ctx, "stage "+name,
		trace.WithAttributes(
			attribute.String("stageflow.stage", name),
			attribute.Int("stageflow.node", n.id),
			attribute.Bool("stageflow.recoverable", n.recoverable),
		))
	defer span.End()

	resCh := make(chan *stageResult, 1)
	ex.pool.Submit(func() {
		resCh <- invokeStage(ctx, n.stage, input, ex.clock)
	})
	res := <-resCh
	ex.saveRecord(n, res)

	if res.err == nil {
		ex.logger.Debugf("stage %s succeeded in %v", name, res.elapsed())
		span.SetStatus(codes.Ok, "")
		ex.listener.Success(n.stage, res.output, res.elapsed())
		return res.output, nil
	}

	span.RecordError(res.err)
	span.SetStatus(codes.Error, res.err.Error())
	if !n.recoverable {
		ex.logger.Debugf("stage %s failed in %v: %v", name, res.elapsed(), res.err)
		ex.listener.Failure(n.stage, res.err, res.elapsed())
	}
	return nil, types.NewStageFailedError(name, res.err, res.elapsed())
}

func (n *seqNode) run(ex *execution, input any) (any, error) {
	value, err := n.prev.run(ex, input)
	if err != nil {
		return nil, errors.Trace(err)
	}
	output, err := n.next.run(ex, value)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return output, nil
}

func (n *parNode) run(ex *execution, input any) (any, error) {
	value, err := n.prev.run(ex, input)
	if err != nil {
		return nil, errors.Trace(err)
	}

	results := make([]any, len(n.branches))
	var g errgroup.Group
	for i, branch := range n.branches {
		i, branch := i, branch // per-iteration copies (go.mod targets go 1.21 loop semantics)
		g.Go(func() (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = errors.Errorf("branch %d panicked: %v", i, r)
				}
			}()
			output, err := branch.run(ex, value)
			if err != nil {
				return err
			}
			results[i] = output
			return nil
		})
	}
	// every branch settles before the first error is reported
	if err := g.Wait(); err != nil {
		return nil, errors.Trace(err)
	}
	return results[n.primary], nil
}

func (n *recoverNode) run(ex *execution, input any) (any, error) {
	output, err := n.main.run(ex, input)
	if err == nil {
		return output, nil
	}

	var failed *types.StageFailedError
	if !errors.As(err, &failed) || failed.Stage != n.main.stage.Name() {
		return nil, errors.Trace(err)
	}

	ex.markRecovered(n.main, n.altStage)
	ex.logger.Debugf("stage %s failed in %v, recovering with %s: %v",
		failed.Stage, failed.Elapsed, n.altStage.Name(), failed.Cause)
	ex.listener.Recover(n.main.stage, n.altStage, failed.Cause, failed.Elapsed)

	output, err = n.alt.run(ex, input)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return output, nil
}

// runPlan drives the plan to completion and maps whatever escaped it to the public error surface.
func (ex *execution) runPlan() (output any, retErr error) {
	ctx, span := ex.tracer.Start(ex.ctx, "pipeline "+ex.plan.entry,
		trace.WithAttributes(
			attribute.String("stageflow.execution_id", ex.id),
			attribute.String("stageflow.entry", ex.plan.entry),
			attribute.Int("stageflow.nodes", len(ex.plan.leaves)),
		))
	ex.ctx = ctx
	defer span.End()

	ex.begin()
	defer func() {
		if r := recover(); r != nil {
			output, retErr = nil, types.NewUnknownExecutionError(fmt.Errorf("execution panicked: %v", r))
		}
		ex.finish(output, retErr)
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
	}()

	output, err := ex.plan.root.run(ex, ex.plan.input)
	if err == nil {
		return output, nil
	}

	var failed *types.StageFailedError
	if errors.As(err, &failed) {
		return nil, failed
	}
	return nil, types.NewUnknownExecutionError(errors.Cause(err))
}
