package types

import "time"

type StageStatus int32

const (
	StageSucceeded StageStatus = 1
	StageFailedOut StageStatus = 2
	StageRecovered StageStatus = 3
)

func (s StageStatus) String() string {
	switch s {
	case StageSucceeded:
		return "success"
	case StageFailedOut:
		return "failure"
	case StageRecovered:
		return "recovered"
	}
	return "pending"
}

// StageRecord is what the executor remembers about one plan-node execution.
type StageRecord struct {
	NodeID    int
	Stage     string
	Status    StageStatus
	StartTime time.Time
	EndTime   time.Time
	Output    any
	Error     string
	// set when Status is StageRecovered
	RecoveredBy string
}

func (r *StageRecord) Elapsed() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
