package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rwcarlsen/biorithm/host"
	"github.com/rwcarlsen/biorithm/step"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario to completion and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, _ := cmd.Flags().GetBool("stream")
			dbPath, _ := cmd.Flags().GetString("db")

			sc, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			if dbPath != "" {
				sc.DB = dbPath
			}
			if sc.Iterations == step.Unbounded && !stream {
				log.Warn().Msg("Unbounded scenario; interrupt to stop")
			}

			in, err := sc.Input()
			if err != nil {
				return err
			}
			db, err := openDB(sc.DB)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}
			ctrl, err := newController(sc, db)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var last step.Output
			var werr error
			err = host.Run(ctx, ctrl, in, func(out step.Output) {
				last = out
				if stream && werr == nil {
					werr = writeJSON(cmd, host.NewEvent(out))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if werr != nil {
				return werr
			}
			if stream {
				return nil
			}
			return writeJSON(cmd, host.NewEvent(last))
		},
	}

	cmd.Flags().Bool("stream", false, "Print every output as a JSON line")
	cmd.Flags().String("db", "", "Record the run to an sqlite trace database (overrides $BIORITHM_DB)")
	return cmd
}
