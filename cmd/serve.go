package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/api"
	"github.com/sells-group/prospect-cli/internal/monitoring"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for discovery and profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initDiscovery(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		if cfg.Monitoring.Enabled {
			collector := monitoring.NewCollector(env.Sessions, monitoring.Sources{
				Breakers: env.Researcher.Breakers,
				CostUSD: func() float64 {
					return env.Researcher.Usage().EstimateCost(cfg.Anthropic.Model)
				},
			}, cfg.Monitoring)
			checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			checked := make(chan struct{})
			go func() {
				defer close(checked)
				checker.Run(ctx)
			}()
			defer func() { <-checked }()
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.NewHandler(api.Deps{
				Profiles:    env.Profiles,
				Discovery:   env.Engine,
				Runs:        ctx,
				CORSOrigins: cfg.Server.CORSOrigins,
				Breakers:    env.Researcher.Breakers,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return eris.Wrap(err, "server listen")
		}

		// Discovery runs share ctx, so they are already cancelled; wait for
		// their sessions to be marked.
		env.Engine.Wait()
		env.Researcher.Usage().LogCost(cfg.Anthropic.Model, "serve")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
