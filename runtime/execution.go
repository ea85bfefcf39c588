package runtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stageflow/types"
	"go.opentelemetry.io/otel/trace"
)

type executionStatus int32

const (
	executionPending   executionStatus = 0
	executionRunning   executionStatus = 1
	executionSucceeded executionStatus = 2
	executionFailed    executionStatus = 3
)

func (s executionStatus) String() string {
	switch s {
	case executionRunning:
		return "running"
	case executionSucceeded:
		return "succeeded"
	case executionFailed:
		return "failed"
	}
	return "pending"
}

/**
 * execution holds everything one run of a plan needs: the injected pool
 * and clock, the listener, and the per-leaf records written while the
 * plan runs. Records are keyed by leaf id, so a stage reached through
 * several plan paths keeps one record per path.
 */
type execution struct {
	ctx context.Context

	id       string
	plan     *executionPlan
	pool     types.WorkerPool
	clock    types.Clock
	listener types.StageOutcomeListener
	tracer   trace.Tracer
	logger   *log.Entry

	mu        sync.Mutex
	status    executionStatus
	records   map[int]*types.StageRecord
	startTime time.Time
	endTime   time.Time
	output    any
	err       error
}

func newExecution(ctx context.Context, plan *executionPlan, pool types.WorkerPool, clock types.Clock,
	listener types.StageOutcomeListener, tracer trace.Tracer) *execution {
	id := uuid.NewString()
	return &execution{
		ctx:      ctx,
		id:       id,
		plan:     plan,
		pool:     pool,
		clock:    clock,
		listener: listener,
		tracer:   tracer,
		logger: log.WithFields(log.Fields{
			"execution_id": id,
			"entry":        plan.entry,
		}),
		records: make(map[int]*types.StageRecord, len(plan.leaves)),
	}
}

func (ex *execution) begin() {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	ex.status = executionRunning
	ex.startTime = ex.clock.Now()
	ex.logger.Debugf("execution started")
}

func (ex *execution) finish(output any, err error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	ex.endTime = ex.clock.Now()
	ex.output = output
	ex.err = err
	if err != nil {
		ex.status = executionFailed
		ex.logger.Debugf("execution failed after %v: %v", ex.endTime.Sub(ex.startTime), err)
		return
	}
	ex.status = executionSucceeded
	ex.logger.Debugf("execution succeeded after %v", ex.endTime.Sub(ex.startTime))
}

func (ex *execution) saveRecord(leaf *leafNode, res *stageResult) {
	record := &types.StageRecord{
		NodeID:    leaf.id,
		Stage:     leaf.stage.Name(),
		StartTime: res.start,
		EndTime:   res.end,
	}
	if res.err != nil {
		record.Status = types.StageFailedOut
		record.Error = res.err.Error()
	} else {
		record.Status = types.StageSucceeded
		record.Output = res.output
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.records[leaf.id] = record
}

func (ex *execution) markRecovered(leaf *leafNode, recovery types.Stage) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if record, exists := ex.records[leaf.id]; exists {
		record.Status = types.StageRecovered
		record.RecoveredBy = recovery.Name()
	}
}

func (ex *execution) record(leafID int) (*types.StageRecord, bool) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	record, exists := ex.records[leafID]
	if !exists {
		return nil, false
	}
	copied := *record
	return &copied, true
}

// stageRecords returns a copy of every record ordered by leaf id.
func (ex *execution) stageRecords() []types.StageRecord {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	records := make([]types.StageRecord, 0, len(ex.records))
	for _, record := range ex.records {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].NodeID < records[j].NodeID
	})
	return records
}
