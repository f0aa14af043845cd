package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/pipeline"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/web"
	"github.com/spf13/cobra"
)

var (
	srvAddr  string
	srvWatch bool
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis dashboard over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = srvAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := pipeline.NewAnalyzer(cfg, logger)
		s, err := web.NewServer(a, logger)
		if err != nil {
			return fmt.Errorf("load templates: %w", err)
		}

		watchErr := make(chan error, 1)
		if srvWatch {
			w, err := dataset.NewWatcher(a.Provider(), logger)
			if err != nil {
				return err
			}
			defer w.Close()
			go func() { watchErr <- w.Run(ctx) }()
			logger.Info("watching source", "path", a.Provider().SourcePath())
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           web.NewRouter(s),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("dashboard listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case err := <-watchErr:
			if err != nil {
				logger.Error("source watcher stopped", "error", err)
			}
			<-ctx.Done()
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", ":7860", "listen address (default: listen_addr from config)")
	serveCmd.Flags().BoolVar(&srvWatch, "watch", false, "drop the cleaned cache whenever the source file changes")
}
