package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/config"
	"github.com/leadline-labs/mailscout-cli/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	c := NewChecker(NewCollector(newTestStore(t)), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop after cancel")
	}
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Seed enough failed runs to trip the failure-rate alert.
	for i := 0; i < 6; i++ {
		r, err := st.CreateRun(ctx, "fail.csv")
		require.NoError(t, err)
		require.NoError(t, st.UpdateRunStatus(ctx, r.ID, model.RunStatusFailed))
	}

	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.MonitoringConfig{
		LookbackWindowHours:  24,
		FailureRateThreshold: 0.25,
		WebhookURL:           srv.URL,
	}
	c := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)
	c.check(ctx, zap.NewNop())

	assert.Equal(t, int32(1), received.Load())
}
