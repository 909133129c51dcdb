package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vparse/vparse/internal/api"
	"github.com/vparse/vparse/internal/health"
)

// shutdownGrace bounds how long in-flight resolutions may finish on shutdown
const shutdownGrace = 60 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":5000", "Address to listen on")
	lo.Must0(v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")))

	serveCmd.Flags().String("static-dir", "", "Directory served at /")
	lo.Must0(v.BindPFlag("server.static_dir", serveCmd.Flags().Lookup("static-dir")))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, os.Stdout)
		if err != nil {
			return err
		}
		defer a.Close()

		router := api.NewRouter(&api.RouterConfig{
			Parser: a.parser,
			Health: health.NewHandler(health.NewChecker(&health.CheckerConfig{
				Checks:  a.checks,
				Version: Version,
			})),
			Metrics:        a.metrics,
			Logger:         a.log,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			StaticDir:      cfg.Server.StaticDir,
			SlowRequest:    cfg.Server.SlowRequest.Duration,
		})

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info(ctx, "server starting", map[string]interface{}{
				"addr":       cfg.Server.Addr,
				"candidates": len(cfg.Candidates),
				"platforms":  len(cfg.Platforms),
				"cache":      cfg.Cache.Backend,
			})
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.log.Info(context.Background(), "server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
