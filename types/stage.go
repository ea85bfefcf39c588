package types

import (
	"context"
	"reflect"
	"sync"
)

var (
	_ Stage = &FuncStage[string, string]{}
)

// Void is the output type of sink stages whose result is discarded.
type Void struct{}

type Stage interface {
	// Name identifies the stage uniquely within a graph.
	Name() string
	InputType() reflect.Type
	OutputType() reflect.Type
	Execute(ctx context.Context, input any) (any, error)
	RegisterObserver(observer Observer)
}

// TypeOf returns the type token of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SameStage reports whether a and b are of the same concrete type and map the same types.
func SameStage(a, b Stage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b) &&
		a.InputType() == b.InputType() &&
		a.OutputType() == b.OutputType()
}

/**
 * BaseStage supplies the type tokens and observer registration of a stage
 * mapping S to T. Embed it and provide Name and Execute.
 */
type BaseStage[S, T any] struct {
	mu       sync.RWMutex
	observer Observer
}

func (b *BaseStage[S, T]) InputType() reflect.Type {
	return TypeOf[S]()
}

func (b *BaseStage[S, T]) OutputType() reflect.Type {
	return TypeOf[T]()
}

func (b *BaseStage[S, T]) RegisterObserver(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = observer
}

// Observer returns the registered observer, nil if none.
func (b *BaseStage[S, T]) Observer() Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.observer
}

// CastInput asserts input to S. A nil input yields the zero S.
func CastInput[S any](stage string, input any) (S, error) {
	var zero S
	if input == nil {
		return zero, nil
	}
	s, ok := input.(S)
	if !ok {
		return zero, NewConstructionError(InvalidStageInputDataType,
			"stage %s expects input of type %v but received %T", stage, TypeOf[S](), input)
	}
	return s, nil
}

// FuncStage adapts a typed function into a Stage.
type FuncStage[S, T any] struct {
	BaseStage[S, T]

	name string
	fn   func(ctx context.Context, input S) (T, error)
}

func NewFuncStage[S, T any](name string, fn func(ctx context.Context, input S) (T, error)) *FuncStage[S, T] {
	return &FuncStage[S, T]{name: name, fn: fn}
}

func (f *FuncStage[S, T]) Name() string {
	return f.name
}

func (f *FuncStage[S, T]) Execute(ctx context.Context, input any) (any, error) {
	s, err := CastInput[S](f.name, input)
	if err != nil {
		return nil, err
	}
	return f.fn(ctx, s)
}

func (f *FuncStage[S, T]) String() string {
	return f.name
}
