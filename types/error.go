package types

import (
	"fmt"
	"time"

	"github.com/juju/errors"
)

var (
	_ error = &ConstructionError{}
	_ error = &ExecutionError{}
	_ error = &StageFailedError{}
)

type ErrorCode string

const (
	InvalidStageInputDataType ErrorCode = "INVALID_STAGE_INPUT_DATA_TYPE"
	NondeterministicPipeline  ErrorCode = "NONDETERMINISTIC_PIPELINE"
	StageFailed               ErrorCode = "STAGE_FAILED"
	StageAlreadyExists        ErrorCode = "STAGE_ALREADY_EXISTS"
	StageNotFound             ErrorCode = "STAGE_NOT_FOUND"
	ObservationError          ErrorCode = "OBSERVATION_ERROR"
	InfiniteLoop              ErrorCode = "INFINITE_LOOP"
	EmptyPipeline             ErrorCode = "EMPTY_PIPELINE"
	UnreachableStage          ErrorCode = "UNREACHABLE_STAGE"
	Unknown                   ErrorCode = "UNKNOWN"
)

func (c ErrorCode) String() string {
	return string(c)
}

/**
 * ConstructionError is raised while building a graph or a plan.
 * The caller recovers from it by fixing the graph.
 */
type ConstructionError struct {
	Code        ErrorCode
	Description string
}

func NewConstructionError(code ErrorCode, format string, args ...any) error {
	return &ConstructionError{Code: code, Description: fmt.Sprintf(format, args...)}
}

func (e *ConstructionError) Error() string {
	return e.Code.String() + ": " + e.Description
}

// ExecutionError carries any cause that escaped the scheduler other than a stage failure.
type ExecutionError struct {
	Code        ErrorCode
	Description string
	Cause       error
}

func NewUnknownExecutionError(cause error) error {
	return &ExecutionError{Code: Unknown, Description: causeMessage(cause), Cause: cause}
}

func (e *ExecutionError) Error() string {
	return e.Code.String() + ": " + e.Description
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

/**
 * StageFailedError is the normal failure surface of an execution.
 * Cause is exactly what the stage's Execute returned; Elapsed is
 * the stage's own running time up to the failure.
 */
type StageFailedError struct {
	Stage   string
	Cause   error
	Elapsed time.Duration
}

func NewStageFailedError(stage string, cause error, elapsed time.Duration) *StageFailedError {
	return &StageFailedError{Stage: stage, Cause: cause, Elapsed: elapsed}
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("%s: Stage %s failed: %s", StageFailed, e.Stage, causeMessage(e.Cause))
}

func (e *StageFailedError) Unwrap() error {
	return e.Cause
}

// CodeOf reports the error code carried by err, looking through any wrapping.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var sf *StageFailedError
	if errors.As(err, &sf) {
		return StageFailed
	}
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return Unknown
}

// IsConstructionError reports whether err was raised while building the graph or plan.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

func causeMessage(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
