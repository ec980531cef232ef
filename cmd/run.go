package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/pipeline"
)

var (
	runInput    string
	runOutput   string
	runNoVerify bool
	runNoSync   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: find emails, then sync to Brevo",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := pipeline.Read(runInput)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, !runNoVerify)
		if err != nil {
			return err
		}
		defer env.Close()

		out, runID, err := executeRun(ctx, env, runInput, in.Contacts)
		if err != nil {
			return err
		}

		outPath := runOutput
		if outPath == "" {
			outPath = defaultOutputPath(runInput)
		}
		if err := pipeline.WriteCSVFile(outPath, in.Header, out.Results); err != nil {
			return err
		}
		zap.L().Info("results written", zap.String("file", outPath), zap.String("run_id", runID))

		if runNoSync || cfg.Brevo.Key == "" {
			if cfg.Brevo.Key == "" && !runNoSync {
				zap.L().Warn("brevo.key not configured, skipping sync")
			}
			return printStats(out.Stats)
		}

		synced, skipped, err := syncRun(ctx, env.Store, newBrevoClient(), runID)
		if err != nil {
			return err
		}
		fmt.Printf("synced %d contacts (%d skipped)\n", synced, skipped)

		return printStats(out.Stats)
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "contact file, CSV or XLSX (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "results CSV path (default <input>_results.csv)")
	runCmd.Flags().BoolVar(&runNoVerify, "no-verify", false, "skip SMTP probing; verdicts stop at MX evidence")
	runCmd.Flags().BoolVar(&runNoSync, "no-sync", false, "do not push found emails to Brevo")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
