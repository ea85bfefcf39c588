package types

import (
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestStageFailedErrorMessage(t *testing.T) {
	cause := fmt.Errorf("failed to parse request")
	err := NewStageFailedError("parseRequest", cause, time.Millisecond)

	assert.Equal(t, "STAGE_FAILED: Stage parseRequest failed: failed to parse request", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, StageFailed, CodeOf(err))
	assert.False(t, IsConstructionError(err))
}

func TestCodeOfThroughTrace(t *testing.T) {
	err := errors.Trace(NewConstructionError(EmptyPipeline, "no stages"))
	assert.Equal(t, EmptyPipeline, CodeOf(err))
	assert.True(t, IsConstructionError(err))
	assert.Contains(t, err.Error(), "EMPTY_PIPELINE: no stages")

	err = errors.Annotatef(NewStageFailedError("a", fmt.Errorf("x"), 0), "while running")
	assert.Equal(t, StageFailed, CodeOf(err))

	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, Unknown, CodeOf(fmt.Errorf("plain")))
}

func TestUnknownExecutionError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewUnknownExecutionError(cause)

	assert.Equal(t, "UNKNOWN: boom", err.Error())
	assert.Equal(t, Unknown, CodeOf(err))
	assert.True(t, errors.Is(err, cause))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "RECOVERABLE_FAILURE", RecoverableFailure.String())
	assert.False(t, Outcome(0).Valid())

	o, err := ParseOutcome("RECOVERABLE_FAILURE")
	assert.Nil(t, err)
	assert.Equal(t, RecoverableFailure, o)

	_, err = ParseOutcome("MAYBE")
	assert.True(t, errors.Is(err, errors.NotValid))
}
