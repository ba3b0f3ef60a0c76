package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evpack/app"
	"github.com/kilianp07/evpack/config"
	"github.com/kilianp07/evpack/infra/logger"
	"github.com/kilianp07/evpack/infra/metrics"
	"github.com/kilianp07/evpack/infra/monitoring"
)

var (
	runSeed  int64
	runMiles float64
	runServe bool
	runJSON  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a batch of packs and report efficiency",
	RunE:  runBatch,
}

func init() {
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "override simulation.seed")
	runCmd.Flags().Float64Var(&runMiles, "miles", 0, "override simulation.miles_each")
	runCmd.Flags().BoolVar(&runServe, "serve", false, "keep serving Prometheus metrics after the run")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run report as JSON")
	rootCmd.AddCommand(runCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = runSeed
	}
	if cmd.Flags().Changed("miles") {
		cfg.Simulation.MilesEach = runMiles
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logLevel == "" {
		if err := logger.SetLevel(cfg.Logging.Level); err != nil {
			return err
		}
	}
	if cfg.Logging.File != "" {
		closer, err := logger.SetFile(logger.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer func() {
			_, _ = logger.SetFile(logger.FileOptions{})
			_ = closer.Close()
		}()
	}
	log := logger.New("main")

	if cfg.Metrics.PrometheusPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusPort); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	svc, err := app.New(cfg, app.WithMonitor(mon))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	rep, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if err := printReport(cmd, rep); err != nil {
		return err
	}
	if runServe && cfg.Metrics.PrometheusPort != "" {
		log.Infof("serving metrics until interrupted")
		<-ctx.Done()
	}
	return nil
}

func printReport(cmd *cobra.Command, rep *app.Report) error {
	out := cmd.OutOrStdout()
	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	ev := rep.Evaluation
	lines := []string{
		fmt.Sprintf("Run %s (seed %d)", rep.RunID, rep.Seed),
		fmt.Sprintf("  Analyzed Cells: %d", ev.AnalyzedCells),
		fmt.Sprintf("  Healed Cells: %d", ev.HealedCells),
		fmt.Sprintf("  Avg Efficiency: from %.3f to %.3f", ev.EfficiencyStart, ev.EfficiencyEnd),
		fmt.Sprintf("  Miles per Charge: estimated %d to %d mi", ev.MilesPerChargeStart, ev.MilesPerChargeEnd),
	}
	if rep.Efficiency != nil {
		lines = append(lines,
			fmt.Sprintf("  Total Miles Driven: %.1f", rep.Efficiency.TotalMilesDriven),
			fmt.Sprintf("  Total Capacity Loss (kWh): %.3f", rep.Efficiency.TotalCapacityLossKWh))
		if avg := rep.Efficiency.AverageRemainingCapacityKWh; avg != nil {
			lines = append(lines, fmt.Sprintf("  Average Remaining Capacity (kWh): %.3f", *avg))
		}
	}
	if rep.Health != nil {
		lines = append(lines, fmt.Sprintf("  Health Score: %.3f", rep.Health.OverallHealthScore))
	}
	lines = append(lines, fmt.Sprintf("  Rebalancing: %s (gain %.4f)", rep.Adjustment.Protocol, rep.Adjustment.Gain))
	if ev.Signature != "" {
		lines = append(lines, "  Signature: "+ev.Signature)
	}
	for _, p := range rep.Exports {
		lines = append(lines, "  Export: "+p)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}
