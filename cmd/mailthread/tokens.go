package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/format"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [text...]",
	Short: "Print the tokens found in text (arguments or stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("io.ReadAll failed: %w", err)
			}
			text = string(raw)
		}

		tokens := extract.NewSet(cfg.Extract.Sites).Extract(format.NormalizeString(text))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(tokens); err != nil {
			return fmt.Errorf("json.Encode failed: %w", err)
		}
		return nil
	},
}
