//go:build !integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadline-labs/mailscout-cli/internal/config"
	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/pkg/brevo"
	brevomocks "github.com/leadline-labs/mailscout-cli/pkg/brevo/mocks"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Brevo: config.BrevoConfig{
			Key:      "test-key",
			ListName: "LinkedIn Connections",
			FolderID: 1,
		},
	}
	t.Cleanup(func() { cfg = prev })
}

func seedRunWithResults(t *testing.T, env *pipelineEnv, results []model.ContactResult) string {
	t.Helper()
	ctx := context.Background()
	run, err := env.Store.CreateRun(ctx, "sync_test.csv")
	require.NoError(t, err)
	require.NoError(t, env.Store.SaveResults(ctx, run.ID, results))
	return run.ID
}

func foundResult(row int, first, last, company, email string) model.ContactResult {
	return model.ContactResult{
		Contact: model.Contact{
			RowIndex:  row,
			FirstName: first,
			LastName:  last,
			Company:   company,
		},
		Domain:      "acme.com",
		ChosenEmail: email,
		Verdict: model.Verdict{
			Status:     model.StatusValid,
			Confidence: 0.9,
			CheckedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestSyncRun_UpsertsFoundContacts(t *testing.T) {
	setTestConfig(t)
	env := newTestEnv(t)

	noMatch := model.ContactResult{
		Contact: model.Contact{RowIndex: 1, FirstName: "Jane", LastName: "Doe", Company: "Beta"},
		Verdict: model.Verdict{Status: model.StatusUnknown},
	}
	runID := seedRunWithResults(t, env, []model.ContactResult{
		foundResult(0, "John", "Smith", "Acme Corp", "john.smith@acme.com"),
		noMatch,
	})

	client := brevomocks.NewMockClient(t)
	client.On("GetOrCreateList", mock.Anything, "LinkedIn Connections", 1).Return(int64(42), nil)
	client.On("UpsertContact", mock.Anything, brevo.Contact{
		Email: "john.smith@acme.com",
		Attributes: map[string]any{
			"FIRSTNAME": "John",
			"LASTNAME":  "Smith",
			"COMPANY":   "Acme Corp",
		},
		ListIDs: []int64{42},
	}).Return(nil)

	synced, skipped, err := syncRun(context.Background(), env.Store, client, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 1, skipped)
}

func TestSyncRun_CatchAllIsSynced(t *testing.T) {
	setTestConfig(t)
	env := newTestEnv(t)

	r := foundResult(0, "John", "Smith", "Acme Corp", "john.smith@acme.com")
	r.Verdict.Status = model.StatusCatchAll
	r.Verdict.Confidence = 0.5
	runID := seedRunWithResults(t, env, []model.ContactResult{r})

	client := brevomocks.NewMockClient(t)
	client.On("GetOrCreateList", mock.Anything, "LinkedIn Connections", 1).Return(int64(42), nil)
	client.On("UpsertContact", mock.Anything, mock.Anything).Return(nil)

	synced, skipped, err := syncRun(context.Background(), env.Store, client, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 0, skipped)
}

func TestSyncRun_UpsertFailureSkipsContact(t *testing.T) {
	setTestConfig(t)
	env := newTestEnv(t)

	runID := seedRunWithResults(t, env, []model.ContactResult{
		foundResult(0, "John", "Smith", "Acme Corp", "john.smith@acme.com"),
		foundResult(1, "Jane", "Doe", "Acme Corp", "jane.doe@acme.com"),
	})

	client := brevomocks.NewMockClient(t)
	client.On("GetOrCreateList", mock.Anything, "LinkedIn Connections", 1).Return(int64(42), nil)
	client.On("UpsertContact", mock.Anything, mock.MatchedBy(func(c brevo.Contact) bool {
		return c.Email == "john.smith@acme.com"
	})).Return(assert.AnError)
	client.On("UpsertContact", mock.Anything, mock.MatchedBy(func(c brevo.Contact) bool {
		return c.Email == "jane.doe@acme.com"
	})).Return(nil)

	synced, skipped, err := syncRun(context.Background(), env.Store, client, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 1, skipped)
}

func TestSyncRun_NoResults(t *testing.T) {
	setTestConfig(t)
	env := newTestEnv(t)

	run, err := env.Store.CreateRun(context.Background(), "empty.csv")
	require.NoError(t, err)

	client := brevomocks.NewMockClient(t)
	_, _, err = syncRun(context.Background(), env.Store, client, run.ID)
	assert.Error(t, err)
}

func TestSyncRun_RetriesRateLimitedUpsert(t *testing.T) {
	setTestConfig(t)
	env := newTestEnv(t)

	prev := brevoRetry
	brevoRetry.InitialBackoff = time.Millisecond
	brevoRetry.MaxBackoff = time.Millisecond
	t.Cleanup(func() { brevoRetry = prev })

	runID := seedRunWithResults(t, env, []model.ContactResult{
		foundResult(0, "John", "Smith", "Acme Corp", "john.smith@acme.com"),
	})

	client := brevomocks.NewMockClient(t)
	client.On("GetOrCreateList", mock.Anything, "LinkedIn Connections", 1).Return(int64(42), nil)
	client.On("UpsertContact", mock.Anything, mock.Anything).
		Return(&brevo.APIError{StatusCode: 429, Body: "too many requests"}).Once()
	client.On("UpsertContact", mock.Anything, mock.Anything).Return(nil).Once()

	synced, skipped, err := syncRun(context.Background(), env.Store, client, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 0, skipped)
}

func TestSyncRun_ClientErrorNotRetried(t *testing.T) {
	setTestConfig(t)
	env := newTestEnv(t)

	runID := seedRunWithResults(t, env, []model.ContactResult{
		foundResult(0, "John", "Smith", "Acme Corp", "john.smith@acme.com"),
	})

	client := brevomocks.NewMockClient(t)
	client.On("GetOrCreateList", mock.Anything, "LinkedIn Connections", 1).Return(int64(42), nil)
	// A 400 is a payload problem; retrying it would hit the same wall.
	client.On("UpsertContact", mock.Anything, mock.Anything).
		Return(&brevo.APIError{StatusCode: 400, Body: "invalid email"}).Once()

	synced, skipped, err := syncRun(context.Background(), env.Store, client, runID)
	require.NoError(t, err)
	assert.Equal(t, 0, synced)
	assert.Equal(t, 1, skipped)
}
