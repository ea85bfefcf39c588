package types

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type upperStage struct {
	BaseStage[string, string]
}

func (s *upperStage) Name() string { return "upper" }

func (s *upperStage) Execute(ctx context.Context, input any) (any, error) {
	in, err := CastInput[string](s.Name(), input)
	if err != nil {
		return nil, err
	}
	return "UPPER " + in, nil
}

type otherUpperStage struct {
	BaseStage[string, string]
}

func (s *otherUpperStage) Name() string { return "upper" }

func (s *otherUpperStage) Execute(ctx context.Context, input any) (any, error) {
	return input, nil
}

func TestBaseStageTypes(t *testing.T) {
	s := &upperStage{}
	assert.Equal(t, TypeOf[string](), s.InputType())
	assert.Equal(t, TypeOf[string](), s.OutputType())

	f := NewFuncStage("count", func(ctx context.Context, in string) (int, error) {
		return len(in), nil
	})
	assert.Equal(t, TypeOf[string](), f.InputType())
	assert.Equal(t, TypeOf[int](), f.OutputType())
	assert.Equal(t, "count", f.Name())
	assert.Equal(t, TypeOf[error](), TypeOf[error]())
}

func TestSameStage(t *testing.T) {
	assert.True(t, SameStage(&upperStage{}, &upperStage{}))
	assert.False(t, SameStage(&upperStage{}, &otherUpperStage{}))

	a := NewFuncStage("a", func(ctx context.Context, in string) (int, error) { return 0, nil })
	b := NewFuncStage("b", func(ctx context.Context, in string) (int, error) { return 1, nil })
	c := NewFuncStage("c", func(ctx context.Context, in string) (string, error) { return "", nil })
	assert.True(t, SameStage(a, b))
	assert.False(t, SameStage(a, c))
	assert.False(t, SameStage(a, nil))
}

func TestFuncStageInput(t *testing.T) {
	f := NewFuncStage("count", func(ctx context.Context, in string) (int, error) {
		return len(in), nil
	})

	out, err := f.Execute(context.Background(), "abcd")
	assert.Nil(t, err)
	assert.Equal(t, 4, out)

	out, err = f.Execute(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, out)

	_, err = f.Execute(context.Background(), 42)
	assert.NotNil(t, err)
	assert.Equal(t, InvalidStageInputDataType, CodeOf(err))
	fmt.Printf("err: %v\n", err)
}

func TestRegisterObserver(t *testing.T) {
	s := &upperStage{}
	assert.Nil(t, s.Observer())

	var got string
	s.RegisterObserver(ObserverFunc(func(name string, d time.Duration) { got = name }))
	s.Observer().ReceiveDuration("parse", time.Millisecond)
	assert.Equal(t, "parse", got)
}

type countingListener struct {
	success, failure, recover int
}

func (c *countingListener) Success(Stage, any, time.Duration)          { c.success++ }
func (c *countingListener) Failure(Stage, error, time.Duration)        { c.failure++ }
func (c *countingListener) Recover(Stage, Stage, error, time.Duration) { c.recover++ }

func TestListeners(t *testing.T) {
	l1, l2 := &countingListener{}, &countingListener{}
	l := Listeners(l1, nil, l2)
	s := &upperStage{}

	l.Success(s, "x", 0)
	l.Failure(s, fmt.Errorf("x"), 0)
	l.Recover(s, s, fmt.Errorf("x"), 0)
	l.Recover(s, s, fmt.Errorf("x"), 0)

	for _, c := range []*countingListener{l1, l2} {
		assert.Equal(t, 1, c.success)
		assert.Equal(t, 1, c.failure)
		assert.Equal(t, 2, c.recover)
	}
}
