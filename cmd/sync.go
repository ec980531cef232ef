package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/resilience"
	"github.com/leadline-labs/mailscout-cli/internal/store"
	"github.com/leadline-labs/mailscout-cli/pkg/brevo"
)

var syncCmd = &cobra.Command{
	Use:   "sync <run-id>",
	Short: "Push found emails from a run to a Brevo contact list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Brevo.Key == "" {
			return eris.New("brevo.key is not configured")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := newBrevoClient()
		synced, skipped, err := syncRun(ctx, st, client, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("synced %d contacts (%d skipped)\n", synced, skipped)
		return nil
	},
}

// brevoRetry governs retries of Brevo API calls that hit rate limiting or
// server-side failures.
var brevoRetry = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	MaxBackoff:     15 * time.Second,
	OnRetry:        resilience.RetryLogger("brevo", "upsert_contact"),
}

// upsertWithRetry pushes one contact, retrying 429 and 5xx replies. Client
// errors (bad payload, auth) fail immediately.
func upsertWithRetry(ctx context.Context, client brevo.Client, contact brevo.Contact) error {
	return resilience.Do(ctx, brevoRetry, func(ctx context.Context) error {
		err := client.UpsertContact(ctx, contact)
		if err == nil {
			return nil
		}
		if code := brevo.StatusCode(err); code == http.StatusTooManyRequests || code >= 500 {
			return resilience.NewTransientError(err, 0)
		}
		return err
	})
}

func newBrevoClient() brevo.Client {
	var opts []brevo.Option
	if cfg.Brevo.BaseURL != "" {
		opts = append(opts, brevo.WithBaseURL(cfg.Brevo.BaseURL))
	}
	return brevo.NewClient(cfg.Brevo.Key, opts...)
}

// syncRun upserts every result with an accepted email into the configured
// list. Contacts without a found email are skipped, not failed.
func syncRun(ctx context.Context, st store.Store, client brevo.Client, runID string) (synced, skipped int, err error) {
	results, err := st.ListResults(ctx, runID)
	if err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, eris.Errorf("run %s has no results", runID)
	}

	listID, err := client.GetOrCreateList(ctx, cfg.Brevo.ListName, cfg.Brevo.FolderID)
	if err != nil {
		return 0, 0, eris.Wrap(err, "resolve brevo list")
	}

	for _, r := range results {
		if r.ChosenEmail == "" || !r.Verdict.Status.Accepted() {
			skipped++
			continue
		}
		contact := brevo.Contact{
			Email: r.ChosenEmail,
			Attributes: map[string]any{
				"FIRSTNAME": r.Contact.FirstName,
				"LASTNAME":  r.Contact.LastName,
				"COMPANY":   r.Contact.Company,
			},
			ListIDs: []int64{listID},
		}
		if err := upsertWithRetry(ctx, client, contact); err != nil {
			zap.L().Warn("brevo upsert failed",
				zap.String("email", r.ChosenEmail),
				zap.Error(err),
			)
			skipped++
			continue
		}
		synced++
	}

	zap.L().Info("brevo sync complete",
		zap.String("run_id", runID),
		zap.Int64("list_id", listID),
		zap.Int("synced", synced),
		zap.Int("skipped", skipped),
	)
	return synced, skipped, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
