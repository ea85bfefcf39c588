package runtime

import (
	"sync"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stageflow/types"
)

var (
	_ types.StageGraph = &stageGraph{}
)

/**
 * stageGraph is an append-only store of stages keyed by name plus
 * a directed multigraph of outcome-labeled routes between them.
 * Insertion order is kept so every query answers deterministically.
 */
type stageGraph struct {
	mu sync.RWMutex

	stages     map[string]types.Stage
	stageOrder []string

	routes   map[types.Route]struct{}
	outgoing map[string][]types.Route
	incoming map[string][]types.Route

	observer types.Observer
}

func NewGraph() types.StageGraph {
	return newStageGraph()
}

func newStageGraph() *stageGraph {
	return &stageGraph{
		stages:   make(map[string]types.Stage),
		routes:   make(map[types.Route]struct{}),
		outgoing: make(map[string][]types.Route),
		incoming: make(map[string][]types.Route),
	}
}

func (g *stageGraph) AddStage(stage types.Stage) error {
	if stage == nil {
		return errors.BadRequestf("stage is nil")
	}
	name := stage.Name()
	log.Debugf("creating stage: %s", name)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.stages[name]; exists {
		return types.NewConstructionError(types.StageAlreadyExists, "stage %s already exists", name)
	}
	g.stages[name] = stage
	g.stageOrder = append(g.stageOrder, name)

	if g.observer != nil {
		stage.RegisterObserver(g.observer)
	}
	log.Debugf("created stage: %s maps %v to %v", name, stage.InputType(), stage.OutputType())
	return nil
}

func (g *stageGraph) AddRoute(source string, outcome types.Outcome, target string) error {
	if !outcome.Valid() {
		return errors.NotValidf("outcome %d", outcome)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.getStage(source)
	if err != nil {
		return errors.Trace(err)
	}
	tgt, err := g.getStage(target)
	if err != nil {
		return errors.Trace(err)
	}
	if err := validateDesiredRoute(src, outcome, tgt); err != nil {
		return errors.Trace(err)
	}

	route := types.Route{Source: source, Target: target, Outcome: outcome}
	if _, exists := g.routes[route]; exists {
		return nil
	}
	log.Debugf("stage %s with outcome %v maps to %s", source, outcome, target)

	g.routes[route] = struct{}{}
	g.outgoing[source] = append(g.outgoing[source], route)
	g.incoming[target] = append(g.incoming[target], route)
	return nil
}

func validateDesiredRoute(source types.Stage, outcome types.Outcome, target types.Stage) error {
	switch outcome {
	case types.Success:
		if source.OutputType() != target.InputType() {
			return types.NewConstructionError(types.InvalidStageInputDataType,
				"stage %s outputs %v but stage %s expects %v",
				source.Name(), source.OutputType(), target.Name(), target.InputType())
		}
	case types.RecoverableFailure:
		// the recovery stage is fed the failing stage's input
		if source.InputType() != target.InputType() {
			return types.NewConstructionError(types.InvalidStageInputDataType,
				"stage %s cannot recover stage %s: it expects %v but the failing stage receives %v",
				target.Name(), source.Name(), target.InputType(), source.InputType())
		}
	}
	return nil
}

func (g *stageGraph) getStage(name string) (types.Stage, error) {
	stage, exists := g.stages[name]
	if !exists {
		return nil, types.NewConstructionError(types.StageNotFound, "stage %s not found", name)
	}
	return stage, nil
}

func (g *stageGraph) GetStage(name string) (types.Stage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.getStage(name)
}

func (g *stageGraph) IsTerminal(name string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, err := g.getStage(name); err != nil {
		return false, errors.Trace(err)
	}
	return len(g.outgoing[name]) == 0, nil
}

func (g *stageGraph) NextStages(name string, outcome types.Outcome) ([]types.Stage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, err := g.getStage(name); err != nil {
		return nil, errors.Trace(err)
	}
	next := make([]types.Stage, 0)
	for _, route := range g.outgoing[name] {
		if route.Outcome == outcome {
			next = append(next, g.stages[route.Target])
		}
	}
	return next, nil
}

func (g *stageGraph) RegisterObserver(observer types.Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.observer = observer
	for _, name := range g.stageOrder {
		g.stages[name].RegisterObserver(observer)
	}
}

func (g *stageGraph) Stages() []types.Stage {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stages := make([]types.Stage, 0, len(g.stageOrder))
	for _, name := range g.stageOrder {
		stages = append(stages, g.stages[name])
	}
	return stages
}

func (g *stageGraph) Routes() []types.Route {
	g.mu.RLock()
	defer g.mu.RUnlock()

	routes := make([]types.Route, 0, len(g.routes))
	for _, name := range g.stageOrder {
		routes = append(routes, g.outgoing[name]...)
	}
	return routes
}

func (g *stageGraph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.stages) == 0 {
		return types.NewConstructionError(types.EmptyPipeline, "pipeline has no stages")
	}
	if isolated := g.findUnconnected(); len(isolated) > 0 {
		return types.NewConstructionError(types.UnreachableStage,
			"stages %v are not connected to stage %s", isolated, g.stageOrder[0])
	}
	for _, name := range g.stageOrder {
		for _, route := range g.outgoing[name] {
			if route.Target == name {
				return types.NewConstructionError(types.InfiniteLoop,
					"stage %s routes to itself on %v", name, route.Outcome)
			}
		}
	}
	if cycle := g.findCycle(); len(cycle) > 0 {
		return types.NewConstructionError(types.InfiniteLoop, "cycle detected: %v", cycle)
	}
	return nil
}

// findUnconnected walks the graph ignoring route direction from the first stage.
func (g *stageGraph) findUnconnected() []string {
	visited := map[string]bool{g.stageOrder[0]: true}
	queue := []string{g.stageOrder[0]}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		neighbors := make([]string, 0, len(g.outgoing[name])+len(g.incoming[name]))
		for _, route := range g.outgoing[name] {
			neighbors = append(neighbors, route.Target)
		}
		for _, route := range g.incoming[name] {
			neighbors = append(neighbors, route.Source)
		}
		for _, n := range neighbors {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}

	unconnected := make([]string, 0)
	for _, name := range g.stageOrder {
		if !visited[name] {
			unconnected = append(unconnected, name)
		}
	}
	return unconnected
}

// findCycle returns one directed cycle as a closed path of stage names, nil if none.
func (g *stageGraph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.stages))
	parent := make(map[string]string, len(g.stages))

	var cycle []string
	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, route := range g.outgoing[u] {
			v := route.Target
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				path := []string{v}
				for cur := u; cur != v; cur = parent[cur] {
					path = append(path, cur)
				}
				for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				cycle = append(path, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, name := range g.stageOrder {
		if color[name] == white && dfs(name) {
			break
		}
	}
	return cycle
}
