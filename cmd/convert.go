package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/pkg/report"
)

var (
	convertOut    string
	convertFormat string
)

var convertCmd = &cobra.Command{
	Use:   "convert <log.json>",
	Short: "Convert a BMS or simulation log into healing JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOut, "output", "o", "", "output file (default reports/converted_healing_input_<timestamp>.json)")
	convertCmd.Flags().StringVar(&convertFormat, "format", "bms", "input format: bms or simulation")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	var recs []model.HealingRecord
	skipped := 0
	switch convertFormat {
	case "bms":
		res, err := report.ConvertBMSLog(in)
		if err != nil {
			return err
		}
		recs, skipped = res.Records, res.Skipped
	case "simulation":
		recs, err = report.ConvertSimulationLog(in)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", convertFormat)
	}

	path := convertOut
	if path == "" {
		path = filepath.Join("reports", "converted_healing_input_"+time.Now().Format("20060102-150405")+".json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := writeTo(path, func(w io.Writer) error { return report.WriteHealingJSON(w, recs) }); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Converted %d cells (%d skipped) to %s\n", len(recs), skipped, path)
	return err
}

func writeTo(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
