package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/raine/candle-listing-bot/internal/config"
	"github.com/raine/candle-listing-bot/internal/llm"
	"github.com/raine/candle-listing-bot/internal/storage"
	"github.com/raine/candle-listing-bot/internal/suggest"
	"github.com/raine/candle-listing-bot/internal/vision"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	mode     string
	language string
	dbPath   string
	asJSON   bool
}

// analyzeOutput is the JSON shape of one suggestion.
type analyzeOutput struct {
	Source   string                     `json:"source"`
	Cached   bool                       `json:"cached"`
	Language string                     `json:"language,omitempty"`
	Record   attributes.AttributeRecord `json:"record"`
	Signals  *attributes.Signals        `json:"signals,omitempty"`
	Usage    llm.Usage                  `json:"usage"`
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Run the live vision and/or AI pipelines on a photo",
		Long: `Reads API keys from the environment or the bot's config file
(GOOGLE_VISION_API_KEY, GEMINI_API_KEY) and prints the suggested record(s).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := suggest.ParseMode(opts.mode)
			if err != nil {
				return err
			}
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			config.LoadEnvFile()
			svc, closeFn, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			if !svc.HasMode(mode) {
				return fmt.Errorf("mode %s needs %s", mode, missingKeysFor(mode))
			}

			suggestions, err := svc.Run(cmd.Context(), image, suggest.Options{Mode: mode, Language: opts.language})
			if err != nil {
				return err
			}

			if opts.asJSON {
				out := make([]analyzeOutput, len(suggestions))
				for i, s := range suggestions {
					out[i] = analyzeOutput{
						Source:   s.Source,
						Cached:   s.Cached,
						Language: s.Language,
						Record:   s.Record,
						Signals:  s.Signals,
						Usage:    s.Usage,
					}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, s := range suggestions {
				printSuggestion(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(suggest.ModeVision), "Pipeline: vision, ai or compare")
	cmd.Flags().StringVarP(&opts.language, "lang", "l", "", "Translate title and description (language code, needs GEMINI_API_KEY)")
	cmd.Flags().StringVar(&opts.dbPath, "cache-db", "", "SQLite database for the analysis cache (default: no cache)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// buildService wires whichever pipelines have API keys.
func buildService(cmd *cobra.Command, opts analyzeOptions) (*suggest.Service, func(), error) {
	ctx := cmd.Context()
	cfg := suggest.Config{}
	closeFn := func() {}

	if key := os.Getenv(config.EnvVisionAPIKey); key != "" {
		v, err := vision.NewGoogleVision(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		cfg.Vision = v
	}
	if key := os.Getenv(config.EnvGeminiAPIKey); key != "" {
		g, err := llm.NewGeminiAnalyzer(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		cfg.Analyzer = g
		cfg.Translator = g
	}
	if opts.dbPath != "" {
		store, err := storage.NewSQLiteStore(opts.dbPath)
		if err != nil {
			return nil, nil, err
		}
		cfg.Cache = store
		closeFn = func() { store.Close() }
	}
	if cfg.Vision == nil && cfg.Analyzer == nil {
		return nil, nil, errors.New("no API keys configured, set GOOGLE_VISION_API_KEY and/or GEMINI_API_KEY")
	}
	return suggest.NewService(cfg), closeFn, nil
}

func missingKeysFor(mode suggest.Mode) string {
	switch mode {
	case suggest.ModeVision:
		return config.EnvVisionAPIKey
	case suggest.ModeAI:
		return config.EnvGeminiAPIKey
	}
	return config.EnvVisionAPIKey + " and " + config.EnvGeminiAPIKey
}

func printSuggestion(w io.Writer, s *suggest.Suggestion) {
	r := s.Record
	source := s.Source
	if s.Cached {
		source += " (cached)"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "=== %s ===\n", source)
	fmt.Fprintf(tw, "Title:\t%s\n", r.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", r.Description)
	fmt.Fprintf(tw, "Type:\t%s\n", r.Type)
	fmt.Fprintf(tw, "Color:\t%s\n", r.Color)
	fmt.Fprintf(tw, "Style:\t%s\n", r.Style)
	fmt.Fprintf(tw, "Set:\t%t\n", r.IsSet)
	fmt.Fprintf(tw, "Price:\t%.2f\n", r.Price)
	fmt.Fprintf(tw, "SKU:\t%s\n", r.SKU)
	if s.Language != "" {
		fmt.Fprintf(tw, "Language:\t%s\n", s.Language)
	}
	if s.Usage.TotalTokens > 0 {
		fmt.Fprintf(tw, "Tokens:\t%d in / %d out / %d total\n", s.Usage.InputTokens, s.Usage.OutputTokens, s.Usage.TotalTokens)
		fmt.Fprintf(tw, "Cost:\t$%.6f\n", s.Usage.CostUSD)
	}
	tw.Flush()
	fmt.Fprintln(w)
}
