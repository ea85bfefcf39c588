package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/stageflow/types"
)

func newStage(name string) types.Stage {
	return types.NewFuncStage(name, func(ctx context.Context, s string) (string, error) {
		return s, nil
	})
}

func TestListenerCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	l, err := NewListener(reg, "stageflow")
	require.Nil(t, err)

	query, backup := newStage("queryInventory"), newStage("queryBackupSystem")
	l.Success(backup, "ok", 20*time.Millisecond)
	l.Success(backup, "ok", 30*time.Millisecond)
	l.Recover(query, backup, errors.New("down"), 100*time.Millisecond)
	l.Failure(backup, errors.New("down"), time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(l.Executions.WithLabelValues("queryBackupSystem", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(l.Executions.WithLabelValues("queryBackupSystem", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(l.Executions.WithLabelValues("queryInventory", "recovered")))
	assert.Equal(t, float64(1), testutil.ToFloat64(l.Recoveries.WithLabelValues("queryInventory", "queryBackupSystem")))
	assert.Equal(t, 3, testutil.CollectAndCount(l.Duration))
}

func TestListenerSharesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewListener(reg, "stageflow")
	require.Nil(t, err)
	second, err := NewListener(reg, "stageflow")
	require.Nil(t, err)

	first.Success(newStage("a"), nil, 0)
	second.Success(newStage("a"), nil, 0)
	assert.Equal(t, float64(2), testutil.ToFloat64(first.Executions.WithLabelValues("a", "success")))
}

func TestListenerWithoutRegistry(t *testing.T) {
	l, err := NewListener(nil, "")
	require.Nil(t, err)
	l.Failure(newStage("a"), errors.New("x"), time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(l.Executions.WithLabelValues("a", "failure")))
}

func TestListenerConflictingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.Nil(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stageflow",
		Subsystem: "stage",
		Name:      "executions_total",
		Help:      "something else",
	})))

	_, err := NewListener(reg, "stageflow")
	assert.NotNil(t, err)
}
