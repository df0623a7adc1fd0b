package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/factory-sim/factory-sim/sim"
	"github.com/factory-sim/factory-sim/sim/scenario"
)

var (
	// CLI flags for the run command
	scenarioPath string  // Path to the scenario YAML
	seed         int64   // Seed override (0 = use scenario seed)
	horizonMin   float64 // Horizon override in minutes (0 = use scenario horizon)
	logLevel     string  // Log verbosity level
	outDir       string  // Output directory for CSV exports ("" = print only)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "factory-sim",
	Short: "Discrete-event simulator for closed-loop factory lines",
}

// runCmd loads a scenario, runs the simulation, and reports KPIs
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a factory scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("No scenario file provided. Exiting simulation.")
		}
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to load scenario: %v", err)
		}

		cfg := sc.ToEngineConfig()
		if seed != 0 {
			cfg.Seed = seed
		}
		if horizonMin != 0 {
			cfg.HorizonMin = horizonMin
		}

		logrus.Infof("Starting simulation: %d stations, %d buffers, horizon=%.0fmin, seed=%d",
			len(cfg.Stations), len(cfg.Buffers), cfg.HorizonMin, cfg.Seed)
		startTime := time.Now()

		engine, err := sim.NewEngine(&cfg)
		if err != nil {
			logrus.Fatalf("unable to build engine: %v", err)
		}
		engine.Run()
		if err := engine.CheckConservation(); err != nil {
			logrus.Fatalf("part accounting inconsistent after run: %v", err)
		}

		records := sim.Collect(engine)
		PrintRecords(os.Stdout, engine, records, startTime)

		if outDir != "" {
			dir, err := Export(outDir, engine, records)
			if err != nil {
				logrus.Fatalf("unable to export results: %v", err)
			}
			logrus.Infof("Results written to %s", dir)
		}
		logrus.Info("Simulation complete.")
	},
}

// validateCmd checks a scenario file without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a factory scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("No scenario file provided.")
		}
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("scenario invalid: %v", err)
		}
		cfg := sc.ToEngineConfig()
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("scenario invalid: %v", err)
		}
		logrus.Infof("Scenario OK: %d stations, %d buffers", len(cfg.Stations), len(cfg.Buffers))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML file")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed override for random generation (0 = scenario seed)")
	runCmd.Flags().Float64Var(&horizonMin, "horizon", 0, "Horizon override in minutes (0 = scenario horizon)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outDir, "out", "", "Directory for CSV exports (created if missing)")

	validateCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
