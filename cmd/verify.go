package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <email>",
	Short: "Verify a single email address over SMTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := strings.TrimSpace(args[0])
		at := strings.LastIndex(addr, "@")
		if at <= 0 || at == len(addr)-1 {
			return eris.Errorf("invalid email address: %q", addr)
		}

		verifier := initVerifier(true)
		verdict := verifier.Verify(cmd.Context(), model.Candidate{
			LocalPart: addr[:at],
			Domain:    strings.ToLower(addr[at+1:]),
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"email":   addr,
			"verdict": verdict,
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
