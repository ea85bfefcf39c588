package types

import "time"

var (
	_ StageOutcomeListener = NoopListener{}
	_ StageOutcomeListener = multiListener{}
)

/**
 * StageOutcomeListener receives the outcome of every stage execution.
 * Success is emitted once per successful stage execution. Failure is emitted
 * once per failed execution of a stage without a recovery alternate, and
 * Recover once per failed execution of a stage that has one. The cause is
 * what the stage returned, never a *StageFailedError.
 */
type StageOutcomeListener interface {
	Success(stage Stage, output any, elapsed time.Duration)
	Failure(stage Stage, cause error, elapsed time.Duration)
	Recover(failed Stage, recovery Stage, cause error, elapsed time.Duration)
}

type NoopListener struct{}

func (NoopListener) Success(Stage, any, time.Duration)          {}
func (NoopListener) Failure(Stage, error, time.Duration)        {}
func (NoopListener) Recover(Stage, Stage, error, time.Duration) {}

type multiListener []StageOutcomeListener

// Listeners fans every event out to each listener in order.
func Listeners(listeners ...StageOutcomeListener) StageOutcomeListener {
	ls := make(multiListener, 0, len(listeners))
	for _, l := range listeners {
		if l != nil {
			ls = append(ls, l)
		}
	}
	return ls
}

func (m multiListener) Success(stage Stage, output any, elapsed time.Duration) {
	for _, l := range m {
		l.Success(stage, output, elapsed)
	}
}

func (m multiListener) Failure(stage Stage, cause error, elapsed time.Duration) {
	for _, l := range m {
		l.Failure(stage, cause, elapsed)
	}
}

func (m multiListener) Recover(failed Stage, recovery Stage, cause error, elapsed time.Duration) {
	for _, l := range m {
		l.Recover(failed, recovery, cause, elapsed)
	}
}

// Observer receives user-named measurements reported by stopwatches.
type Observer interface {
	ReceiveDuration(name string, duration time.Duration)
}

type ObserverFunc func(name string, duration time.Duration)

func (f ObserverFunc) ReceiveDuration(name string, duration time.Duration) {
	f(name, duration)
}
