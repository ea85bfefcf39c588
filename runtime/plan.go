package runtime

import (
	"strings"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stageflow/types"
)

/**
 * planNode is one node of the execution plan tree. run receives the value
 * produced upstream and returns the value carried downstream.
 *
 *	leafNode    invoke one stage
 *	seqNode     pipe prev's output into next
 *	parNode     run prev, fan its output out to branches, carry branches[primary]
 *	recoverNode run main, on its stage's failure run alt on main's input
 */
type planNode interface {
	run(ex *execution, input any) (any, error)
	describe(sb *strings.Builder, depth int, annotate func(*leafNode) string)
}

var (
	_ planNode = &leafNode{}
	_ planNode = &seqNode{}
	_ planNode = &parNode{}
	_ planNode = &recoverNode{}
)

type leafNode struct {
	id    int
	stage types.Stage
	// recoverable leaves leave failure reporting to their recoverNode
	recoverable bool
}

type seqNode struct {
	prev planNode
	next planNode
}

type parNode struct {
	prev     planNode
	branches []planNode
	primary  int
}

type recoverNode struct {
	main     *leafNode
	alt      planNode
	altStage types.Stage
}

// executionPlan is immutable once built and consumed by one execution.
type executionPlan struct {
	entry  string
	input  any
	root   planNode
	leaves []*leafNode
}

type planBuilder struct {
	graph                   types.StageGraph
	rejectAmbiguousRecovery bool

	leaves []*leafNode
}

func newPlanBuilder(graph types.StageGraph, rejectAmbiguousRecovery bool) *planBuilder {
	return &planBuilder{graph: graph, rejectAmbiguousRecovery: rejectAmbiguousRecovery}
}

func (b *planBuilder) buildPlan(entry string, input any) (*executionPlan, error) {
	if err := b.graph.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	stage, err := b.graph.GetStage(entry)
	if err != nil {
		return nil, errors.Trace(err)
	}

	root, err := b.build(stage)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &executionPlan{entry: entry, input: input, root: root, leaves: b.leaves}, nil
}

func (b *planBuilder) build(stage types.Stage) (planNode, error) {
	log.Debugf("constructing plan subtree based at %s", stage.Name())

	recovery, err := b.recoveryStage(stage)
	if err != nil {
		return nil, errors.Trace(err)
	}

	leaf := &leafNode{id: len(b.leaves), stage: stage, recoverable: recovery != nil}
	b.leaves = append(b.leaves, leaf)

	var task planNode = leaf
	if recovery != nil {
		if task, err = b.attachRecovery(leaf, recovery); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return b.attachSuccessors(task, stage)
}

func (b *planBuilder) recoveryStage(stage types.Stage) (types.Stage, error) {
	recoveries, err := b.graph.NextStages(stage.Name(), types.RecoverableFailure)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch {
	case len(recoveries) == 0:
		return nil, nil
	case len(recoveries) > 1 && b.rejectAmbiguousRecovery:
		return nil, types.NewConstructionError(types.NondeterministicPipeline,
			"stage %s has several recovery stages, which is not supported; they were: %v",
			stage.Name(), stageNames(recoveries))
	}
	return recoveries[0], nil
}

func (b *planBuilder) attachRecovery(leaf *leafNode, recovery types.Stage) (planNode, error) {
	log.Debugf("attaching recovery stage to %s: %s", leaf.stage.Name(), recovery.Name())

	alt, err := b.build(recovery)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &recoverNode{main: leaf, alt: alt, altStage: recovery}, nil
}

func (b *planBuilder) attachSuccessors(task planNode, stage types.Stage) (planNode, error) {
	successors, err := b.graph.NextStages(stage.Name(), types.Success)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(successors) == 0 {
		return task, nil
	}

	trunk := make([]types.Stage, 0, 1)
	sinks := make([]types.Stage, 0, len(successors))
	for _, s := range successors {
		terminal, err := b.graph.IsTerminal(s.Name())
		if err != nil {
			return nil, errors.Trace(err)
		}
		if terminal {
			sinks = append(sinks, s)
		} else {
			trunk = append(trunk, s)
		}
	}
	if len(trunk) > 1 {
		return nil, types.NewConstructionError(types.NondeterministicPipeline,
			"stage %s's output was defined as being used by multiple downstream stages, "+
				"which is not supported; those downstream stages were: %v",
			stage.Name(), stageNames(trunk))
	}

	branches := append(trunk, sinks...)
	if len(branches) == 1 {
		next, err := b.build(branches[0])
		if err != nil {
			return nil, errors.Trace(err)
		}
		return &seqNode{prev: task, next: next}, nil
	}

	par := &parNode{prev: task, branches: make([]planNode, 0, len(branches)), primary: 0}
	for _, branch := range branches {
		node, err := b.build(branch)
		if err != nil {
			return nil, errors.Trace(err)
		}
		par.branches = append(par.branches, node)
	}
	return par, nil
}

func stageNames(stages []types.Stage) []string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.Name())
	}
	return names
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
