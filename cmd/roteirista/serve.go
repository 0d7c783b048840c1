package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"roteirista/internal/api"
	"roteirista/internal/observability"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sobe a API HTTP da interface web e o endpoint de métricas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		observability.Register()
		if cfg.Metrics.Port != "" {
			observability.Start(cfg.Metrics.Port)
		}

		srv := &api.Server{
			Generator:  env.Generator,
			Recorder:   env.Recorder,
			Calibrator: env.Engine,
			Batch:      env.Runner,
			Facts:      env.Fetcher,
			Store:      env.Store,
			Sessions:   env.Sessions,
			Costs:      env.Costs,
			Providers:  env.Resolver,
			Log:        zap.L().With(zap.String("component", "api")),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Routes(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("encerrando servidor")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("servidor iniciado", zap.Int("port", port), zap.String("metrics_port", cfg.Metrics.Port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "porta da API (padrão do config)")
	rootCmd.AddCommand(serveCmd)
}
