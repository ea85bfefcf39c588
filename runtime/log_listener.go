package runtime

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stageflow/types"
)

var (
	_ types.StageOutcomeListener = &logListener{}
)

// NewLogListener reports every stage outcome to entry, the standard logger when nil.
func NewLogListener(entry *log.Entry) types.StageOutcomeListener {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &logListener{entry: entry}
}

type logListener struct {
	entry *log.Entry
}

func (l *logListener) Success(stage types.Stage, output any, elapsed time.Duration) {
	l.entry.WithFields(log.Fields{
		"stage":   stage.Name(),
		"elapsed": elapsed,
	}).Infof("stage succeeded")
}

func (l *logListener) Failure(stage types.Stage, cause error, elapsed time.Duration) {
	l.entry.WithFields(log.Fields{
		"stage":   stage.Name(),
		"elapsed": elapsed,
	}).WithError(cause).Errorf("stage failed")
}

func (l *logListener) Recover(failed types.Stage, recovery types.Stage, cause error, elapsed time.Duration) {
	l.entry.WithFields(log.Fields{
		"stage":    failed.Name(),
		"recovery": recovery.Name(),
		"elapsed":  elapsed,
	}).WithError(cause).Warnf("stage failed, recovering")
}
