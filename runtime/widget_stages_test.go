package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/stageflow/types"
)

const (
	receiveRequest     = "receiveRequest"
	parseRequest       = "parseRequest"
	sendEmail          = "sendEmail"
	logRequest         = "logRequest"
	queryInventory     = "queryInventory"
	queryBackupSystem  = "queryBackupSystem"
	manufactureWidgets = "manufactureWidgets"
	placeOrder         = "placeOrder"
)

type WidgetRequest struct{}

func (WidgetRequest) String() string {
	return "WidgetRequest"
}

type Widgets struct {
	results string
}

func (w Widgets) String() string {
	return "procured " + w.results
}

type sink struct {
	mu    sync.Mutex
	items []string
}

func (s *sink) add(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

func (s *sink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...)
}

// widgetStage is a named stage that sleeps for delay before running fn.
type widgetStage[S, T any] struct {
	types.BaseStage[S, T]

	name  string
	delay time.Duration
	fn    func(input S) (T, error)
	calls []S
	mu    sync.Mutex
}

func newWidgetStage[S, T any](name string, delay time.Duration, fn func(input S) (T, error)) *widgetStage[S, T] {
	return &widgetStage[S, T]{name: name, delay: delay, fn: fn}
}

func (w *widgetStage[S, T]) Name() string {
	return w.name
}

func (w *widgetStage[S, T]) Execute(ctx context.Context, input any) (any, error) {
	s, err := types.CastInput[S](w.name, input)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.calls = append(w.calls, s)
	w.mu.Unlock()

	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	return w.fn(s)
}

func (w *widgetStage[S, T]) inputs() []S {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]S(nil), w.calls...)
}

func receiveRequestStage() types.Stage {
	return newWidgetStage(receiveRequest, 0, func(req WidgetRequest) (string, error) {
		return "received " + req.String(), nil
	})
}

func parseRequestStage() *widgetStage[string, string] {
	return newWidgetStage(parseRequest, 0, func(s string) (string, error) {
		return "parsed " + s, nil
	})
}

func failingParseRequestStage(cause error) *widgetStage[string, string] {
	return newWidgetStage(parseRequest, 0, func(string) (string, error) {
		return "", cause
	})
}

func sendEmailStage(emailServer *sink) types.Stage {
	return newWidgetStage(sendEmail, 50*time.Millisecond, func(s string) (types.Void, error) {
		emailServer.add(s)
		return types.Void{}, nil
	})
}

func logRequestStage(logSink *sink) types.Stage {
	return newWidgetStage(logRequest, 50*time.Millisecond, func(s string) (types.Void, error) {
		logSink.add(s)
		return types.Void{}, nil
	})
}

func failingLogRequestStage(cause error) types.Stage {
	return newWidgetStage(logRequest, 0, func(string) (string, error) {
		return "", cause
	})
}

func queryInventoryStage() *widgetStage[string, Widgets] {
	return newWidgetStage(queryInventory, 200*time.Millisecond, func(s string) (Widgets, error) {
		return Widgets{results: "queried " + s}, nil
	})
}

func failingQueryInventoryStage(cause error) *widgetStage[string, Widgets] {
	return newWidgetStage(queryInventory, 100*time.Millisecond, func(string) (Widgets, error) {
		return Widgets{}, cause
	})
}

func queryBackupSystemStage() *widgetStage[string, Widgets] {
	return newWidgetStage(queryBackupSystem, 0, func(s string) (Widgets, error) {
		return Widgets{results: "re-queried " + s}, nil
	})
}

func failingQueryBackupSystemStage(cause error) *widgetStage[string, Widgets] {
	return newWidgetStage(queryBackupSystem, 100*time.Millisecond, func(string) (Widgets, error) {
		return Widgets{}, cause
	})
}

func manufactureWidgetsStage() *widgetStage[string, Widgets] {
	return newWidgetStage(manufactureWidgets, 0, func(s string) (Widgets, error) {
		return Widgets{results: "basicSearch " + s}, nil
	})
}

func failingManufactureWidgetsStage(cause error) *widgetStage[string, Widgets] {
	return newWidgetStage(manufactureWidgets, 100*time.Millisecond, func(string) (Widgets, error) {
		return Widgets{}, cause
	})
}

func placeOrderStage() types.Stage {
	return newWidgetStage(placeOrder, 0, func(w Widgets) (string, error) {
		return "serialized " + w.String(), nil
	})
}

type widgetPipeline struct {
	parse       types.Stage
	log         types.Stage
	query       types.Stage
	backup      types.Stage
	manufacture types.Stage

	emailServer *sink
	logSink     *sink
}

func newWidgetPipeline() *widgetPipeline {
	logSink := &sink{}
	return &widgetPipeline{
		parse:       parseRequestStage(),
		log:         logRequestStage(logSink),
		query:       queryInventoryStage(),
		backup:      queryBackupSystemStage(),
		manufacture: manufactureWidgetsStage(),
		emailServer: &sink{},
		logSink:     logSink,
	}
}

// build lays out receive -> parse -> {email, log, query} -> order with
// query recovered by backup, itself recovered by manufacture.
func (p *widgetPipeline) build() (types.StageGraph, error) {
	g := NewGraph()
	stages := []types.Stage{
		receiveRequestStage(),
		p.parse,
		sendEmailStage(p.emailServer),
		p.log,
		p.query,
		p.backup,
		p.manufacture,
		placeOrderStage(),
	}
	for _, stage := range stages {
		if err := g.AddStage(stage); err != nil {
			return nil, errors.Trace(err)
		}
	}

	routes := []types.Route{
		{Source: receiveRequest, Outcome: types.Success, Target: parseRequest},
		{Source: parseRequest, Outcome: types.Success, Target: sendEmail},
		{Source: parseRequest, Outcome: types.Success, Target: logRequest},
		{Source: parseRequest, Outcome: types.Success, Target: queryInventory},
		{Source: queryInventory, Outcome: types.Success, Target: placeOrder},
		{Source: queryInventory, Outcome: types.RecoverableFailure, Target: queryBackupSystem},
		{Source: queryBackupSystem, Outcome: types.RecoverableFailure, Target: manufactureWidgets},
	}
	for _, r := range routes {
		if err := g.AddRoute(r.Source, r.Outcome, r.Target); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return g, nil
}
