package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evpack/core/analysis"
	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/pkg/report"
)

var analyzeDiagnostics bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarize a healing report (CSV or JSON) or a diagnostics export",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDiagnostics, "diagnostics", false, "treat the file as a diagnostics CSV export")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var summary any
	if analyzeDiagnostics {
		diags, err := report.ReadDiagnosticsCSV(f)
		if err != nil {
			return err
		}
		sum, err := analysis.SummarizeEfficiency(diags)
		if err != nil {
			return err
		}
		summary = sum
	} else {
		var recs []model.HealingRecord
		if strings.EqualFold(filepath.Ext(args[0]), ".json") {
			recs, err = report.LoadHealingJSON(f)
		} else {
			recs, err = report.ParseHealingCSV(f)
		}
		if err != nil {
			return err
		}
		sum, err := analysis.AnalyzeHealing(recs)
		if err != nil {
			return err
		}
		summary = sum
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}
