package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadline-labs/mailscout-cli/internal/domain"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <company>",
	Short: "Resolve a company name to its mail domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver, err := initResolver(st)
		if err != nil {
			return err
		}

		result, err := resolver.Resolve(ctx, args[0])
		if err != nil {
			if domain.IsNoValidDomain(err) {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"company": args[0],
					"domain":  nil,
					"error":   err.Error(),
				})
			}
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
