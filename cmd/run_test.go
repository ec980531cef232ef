//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

func TestExecuteRun_CompletesAndPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contacts := []model.Contact{
		{RowIndex: 0, FirstName: "John", LastName: "Smith", Company: "Acme Corp"},
		{RowIndex: 1, FirstName: "Jane", LastName: "Doe", Company: "Acme Corp"},
	}

	out, runID, err := executeRun(ctx, env, "exports/contacts.csv", contacts)
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	require.Len(t, out.Results, 2)
	assert.Equal(t, 2, out.Stats.Found)

	run, err := env.Store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "contacts.csv", run.Source)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 2, run.Stats.Total)

	results, err := env.Store.ListResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "john.smith@acme.com", results[0].ChosenEmail)
	assert.Equal(t, "jane.doe@acme.com", results[1].ChosenEmail)
}

func TestExecuteRun_CancelledContextMarksFailed(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := executeRun(ctx, env, "contacts.csv", []model.Contact{
		{RowIndex: 0, FirstName: "John", LastName: "Smith", Company: "Acme Corp"},
	})
	assert.Error(t, err)
}
