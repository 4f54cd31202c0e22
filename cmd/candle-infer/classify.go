package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <signals.json|->",
		Short: "Run the attribute engine offline on a vision signals file",
		Long: `Reads vision signals as JSON ({"labels": [...], "objects": [...], "colors": [...]})
and prints the inferred attribute record. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			var signals attributes.Signals
			if err := json.Unmarshal(data, &signals); err != nil {
				return fmt.Errorf("failed to parse signals: %w", err)
			}

			rec, err := attributes.NewEngine().Infer(signals)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
