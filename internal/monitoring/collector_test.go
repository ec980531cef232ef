package monitoring

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "monitoring_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCollector_Collect_Empty(t *testing.T) {
	c := NewCollector(newTestStore(t))

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.RunsTotal)
	assert.Equal(t, 0.0, snap.RunFailRate)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.WithinDuration(t, time.Now().UTC(), snap.CollectedAt, 5*time.Second)
}

func TestCollector_Collect_AggregatesRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "a.csv")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, r1.ID, model.RunStats{
		Total: 100, Found: 70, Verified: 55, CatchAll: 15, NoDomain: 20,
	}))

	r2, err := st.CreateRun(ctx, "b.csv")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, r2.ID, model.RunStats{
		Total: 50, Found: 30, Verified: 25, CatchAll: 5, NoDomain: 10,
	}))

	r3, err := st.CreateRun(ctx, "c.csv")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, r3.ID, model.RunStatusFailed))

	_, err = st.CreateRun(ctx, "d.csv")
	require.NoError(t, err)

	c := NewCollector(st)
	snap, err := c.Collect(ctx, 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsQueued)
	assert.InDelta(t, 1.0/3.0, snap.RunFailRate, 0.001)

	assert.Equal(t, 150, snap.ContactsProcessed)
	assert.Equal(t, 100, snap.EmailsFound)
	assert.Equal(t, 80, snap.EmailsVerified)
	assert.Equal(t, 20, snap.EmailsCatchAll)
	assert.Equal(t, 30, snap.NoDomainCount)
	assert.InDelta(t, 100.0/150.0, snap.FindRate, 0.001)
}
