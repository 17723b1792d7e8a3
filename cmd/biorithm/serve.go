package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rwcarlsen/biorithm/host"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a scenario and stream it to WebSocket clients",
		Long: `serve drives the scenario on its tick interval and broadcasts every
output on /ws.  Clients control the swarm by sending
{"action": "run"}, {"action": "stop"} or {"action": "reset"}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			sc, err := loadScenario(cmd)
			if err != nil {
				return err
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

			hub := host.NewHub()
			mux := http.NewServeMux()
			mux.HandleFunc("/ws", hub.ServeWS)
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			srv := &http.Server{Addr: addr, Handler: mux}

			errc := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("Server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
					stop()
				}
				close(errc)
			}()

			loop := &host.Loop{Ctrl: ctrl, Sink: hub.Publish, Log: log.Logger}
			lerr := loop.Run(ctx, in, host.Inputs(ctx, in, hub.Actions()))

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server shutdown failed")
			}
			if err := <-errc; err != nil {
				return err
			}
			if lerr != nil && !errors.Is(lerr, context.Canceled) {
				return lerr
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", ":8010", "HTTP listen address")
	return cmd
}
