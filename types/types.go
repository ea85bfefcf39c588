package types

import (
	"time"

	"github.com/juju/errors"
)

type Outcome int32

const (
	Success            Outcome = 1
	RecoverableFailure Outcome = 2
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case RecoverableFailure:
		return "RECOVERABLE_FAILURE"
	}
	return "UNKNOWN_OUTCOME"
}

func (o Outcome) Valid() bool {
	return o == Success || o == RecoverableFailure
}

// ParseOutcome accepts the names returned by Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "SUCCESS":
		return Success, nil
	case "RECOVERABLE_FAILURE":
		return RecoverableFailure, nil
	}
	return 0, errors.NotValidf("outcome %q", s)
}

// Route is an outcome-labeled edge between two stages, identified by all three fields.
type Route struct {
	Source  string
	Target  string
	Outcome Outcome
}

// WorkerPool runs submitted tasks; *workerpool.WorkerPool satisfies it.
type WorkerPool interface {
	Submit(task func())
}

// Clock is the time source for stage timings.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func SystemClock() Clock {
	return systemClock{}
}
