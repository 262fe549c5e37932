package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/server"
)

var (
	parseBook   string
	parsePage   int
	parseTheory bool
)

// parseOutput is what parse prints.
type parseOutput struct {
	BookID   string                 `json:"book_id"`
	Page     int                    `json:"page"`
	Problems []parser.ParsedProblem `json:"problems"`
	Theory   []parser.TheoryBlock   `json:"theory,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse <text-file>",
	Short: "Parse OCR text into problems locally",
	Long: `Run the problem parser over OCR text without touching storage.

The book id selects the specialized parser (algebra-7 books use the
Algebra 7 rules). When parser.ai_provider is configured the LLM parser is
tried first, falling back to the rule-based parser on error. Use - to read
from stdin.

Examples:
  problembook parse page5.txt --book algebra-7 --page 5
  problembook parse - --theory < page12.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args[0])
		if err != nil {
			return err
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger := newLogger(cfg)

		var registry *providers.Registry
		if cfg.Parser.AIProvider != "" {
			registry = providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig(), logger)
		}
		hp := server.NewParser(cfg, registry, logger)

		res, err := hp.ParseText(cmd.Context(), parseBook, text, parsePage)
		if err != nil {
			return err
		}
		out := parseOutput{BookID: parseBook, Page: parsePage, Problems: res.Problems}
		if parseTheory {
			out.Theory = parser.NewTextbookParser().ParseTheory(text)
		}
		return api.Output(out)
	},
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func init() {
	parseCmd.Flags().StringVar(&parseBook, "book", "", "Book id, selects the specialized parser")
	parseCmd.Flags().IntVar(&parsePage, "page", 1, "Page number used in log output")
	parseCmd.Flags().BoolVar(&parseTheory, "theory", false, "Also extract definitions and theorems")

	rootCmd.AddCommand(parseCmd)
}
