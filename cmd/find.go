package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/internal/pipeline"
)

var (
	findInput    string
	findOutput   string
	findNoVerify bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Discover and verify emails for a contact file",
	Long:  "Reads a CSV or XLSX contact export, resolves each company to a mail domain, generates candidate addresses, verifies them over SMTP, and writes a results CSV mirroring the input.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := pipeline.Read(findInput)
		if err != nil {
			return err
		}
		zap.L().Info("contacts loaded",
			zap.String("file", findInput),
			zap.Int("contacts", len(in.Contacts)),
		)

		env, err := initPipeline(ctx, !findNoVerify)
		if err != nil {
			return err
		}
		defer env.Close()

		out, runID, err := executeRun(ctx, env, findInput, in.Contacts)
		if err != nil {
			return err
		}

		outPath := findOutput
		if outPath == "" {
			outPath = defaultOutputPath(findInput)
		}
		if err := pipeline.WriteCSVFile(outPath, in.Header, out.Results); err != nil {
			return err
		}
		zap.L().Info("results written", zap.String("file", outPath), zap.String("run_id", runID))

		return printStats(out.Stats)
	},
}

// executeRun records the batch in the store around the pipeline run. A failed
// run is marked failed before the error propagates.
func executeRun(ctx context.Context, env *pipelineEnv, source string, contacts []model.Contact) (*pipeline.Outcome, string, error) {
	run, err := env.Store.CreateRun(ctx, filepath.Base(source))
	if err != nil {
		return nil, "", eris.Wrap(err, "create run")
	}
	if err := env.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		zap.L().Warn("failed to mark run running", zap.Error(err))
	}

	out, err := env.Runner.Run(ctx, contacts)
	if err != nil {
		if statusErr := env.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); statusErr != nil {
			zap.L().Warn("failed to mark run failed", zap.Error(statusErr))
		}
		return nil, "", err
	}

	if err := env.Store.SaveResults(ctx, run.ID, out.Results); err != nil {
		return nil, "", eris.Wrap(err, "save results")
	}
	if err := env.Store.CompleteRun(ctx, run.ID, out.Stats); err != nil {
		return nil, "", eris.Wrap(err, "complete run")
	}

	return out, run.ID, nil
}

// defaultOutputPath derives contacts_results.csv from contacts.csv.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_results.csv"
}

func printStats(stats model.RunStats) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func init() {
	findCmd.Flags().StringVar(&findInput, "input", "", "contact file, CSV or XLSX (required)")
	findCmd.Flags().StringVar(&findOutput, "output", "", "results CSV path (default <input>_results.csv)")
	findCmd.Flags().BoolVar(&findNoVerify, "no-verify", false, "skip SMTP probing; verdicts stop at MX evidence")
	_ = findCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(findCmd)
}
