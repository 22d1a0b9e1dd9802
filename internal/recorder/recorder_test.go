package recorder

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/internal/alerts"
)

func openTemp(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	return r
}

func TestRecordAndHistory(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	observed := -6.5

	require.NoError(t, r.RecordEvaluations(ctx, []alerts.Evaluation{
		{UserID: "alice", AlertID: "a1", Status: "armed", Context: json.RawMessage(`{"checked_assets":[]}`), EvaluatedAt: base},
		{UserID: "bob", AlertID: "b1", Status: "armed", EvaluatedAt: base},
	}))
	require.NoError(t, r.RecordEvaluations(ctx, []alerts.Evaluation{
		{UserID: "alice", AlertID: "a1", Status: "triggered", Observed: &observed, EvaluatedAt: base.Add(5 * time.Minute)},
	}))

	history, err := r.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "triggered", history[0].Status)
	require.NotNil(t, history[0].Observed)
	assert.Equal(t, -6.5, *history[0].Observed)
	assert.Equal(t, "2024-05-01T12:05:00Z", history[0].EvaluatedAt)
	assert.Nil(t, history[0].Context)

	assert.Equal(t, "armed", history[1].Status)
	assert.Nil(t, history[1].Observed)
	assert.JSONEq(t, `{"checked_assets":[]}`, string(history[1].Context))

	limited, err := r.History(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "triggered", limited[0].Status)

	none, err := r.History(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordEmptyIsNoop(t *testing.T) {
	r := openTemp(t)
	require.NoError(t, r.RecordEvaluations(context.Background(), nil))

	var nilRecorder *Recorder
	require.NoError(t, nilRecorder.RecordEvaluations(context.Background(), []alerts.Evaluation{{UserID: "x"}}))
}

func TestMigrateIsIdempotent(t *testing.T) {
	r := openTemp(t)
	require.NoError(t, r.Migrate(context.Background()))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	_, err = Open(context.Background(), DriverSQLite, " ")
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := New(nil, DriverPostgres)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, DriverSQLite)
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}
