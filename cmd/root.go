package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mobility-sim/mobility-sim/sim/trace"
)

var (
	scenarioPath string // Path to the scenario file (YAML or JSON)
	logLevel     string // Log verbosity level
	seedOverride int64  // Master seed override, negative keeps the scenario's
	summaryPath  string // Where to write the KPI summary, "-" for stdout
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mobsim",
	Short: "Discrete-event simulator for on-demand mobility services",
}

// runCmd executes one scenario end to end and emits the KPI summary.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a mobility scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatal("No scenario file provided. Exiting simulation.")
		}
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("Scenario rejected: %v", err)
		}
		if seedOverride >= 0 {
			sc.Seed = seedOverride
		}

		logrus.Infof("Starting scenario %q: horizon=%ds, %d vehicles, seed=%d",
			sc.Name, sc.Horizon, sc.Fleet.Vehicles, sc.Seed)
		startTime := time.Now()

		s, err := sc.Build()
		if err != nil {
			logrus.Fatalf("Could not build simulation: %v", err)
		}
		s.Run()

		summary := trace.Summarize(s.Trace)
		if err := writeSummary(summary); err != nil {
			logrus.Fatalf("Could not write summary: %v", err)
		}
		logrus.Infof("Simulation complete in %v: %d served, %d rejected, %d open",
			time.Since(startTime), summary.ServedRequests, summary.RejectedRequests, summary.OpenRequests)
	},
}

func writeSummary(summary *trace.Summary) error {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if summaryPath == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(summaryPath, out, 0o644)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario file (yaml or json)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int64Var(&seedOverride, "seed", -1, "Master seed override (negative keeps the scenario seed)")
	runCmd.Flags().StringVar(&summaryPath, "summary", "-", "KPI summary output path, - for stdout")

	rootCmd.AddCommand(runCmd)
}
