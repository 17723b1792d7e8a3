// Command biorithm runs particle swarms that seek a fitness curve in 3D.
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/config"
	"github.com/rwcarlsen/biorithm/logger"
	"github.com/rwcarlsen/biorithm/step"
	"github.com/rwcarlsen/biorithm/swarm"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biorithm",
		Short: "Particle swarms seeking a curve in 3D",
		Long: `biorithm moves a swarm of agents through 3D space toward a fitness
curve, pulled by attractor curves and kept inside a boundary solid.

Scenarios are YAML files; without one a built-in helix scenario is used.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			logger.Setup(cmd.ErrOrStderr(), level)
		},
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringP("scenario", "s", "", "Scenario YAML file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newBenchCmd(),
		newScenarioCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "biorithm version %s\n", version)
		},
	}
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Print the effective scenario as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			data, err := sc.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// loadScenario reads the --scenario file or falls back to the default
// scenario with environment overrides.
func loadScenario(cmd *cobra.Command) (*config.Scenario, error) {
	path, _ := cmd.Flags().GetString("scenario")
	if path != "" {
		return config.Load(path)
	}
	sc := config.Default()
	if err := sc.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// openDB opens the sqlite trace database at path.  An empty path returns a
// nil database.
func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// newController builds a step controller configured from sc.
func newController(sc *config.Scenario, db *sql.DB) (*step.Controller, error) {
	l := log.Logger.With().Str("scenario", sc.Name).Logger()
	opts := []step.Option{
		step.Logger(l),
		step.ResetOnIterationChange(sc.ResetOnIterationChange),
	}
	if db != nil {
		opts = append(opts, step.DB(db))
	}
	if sc.Cache {
		opts = append(opts, step.SwarmOptions(swarm.Eval(biorithm.NewCacheEvaler(nil))))
	}
	if zerolog.GlobalLevel() <= zerolog.TraceLevel {
		opts = append(opts, step.SwarmOptions(swarm.LogObjective(l)))
	}
	return step.New(opts...)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(v)
}
