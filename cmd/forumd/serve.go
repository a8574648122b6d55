package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"forum_go/internal/api"
	"forum_go/internal/core/logger"
	"forum_go/internal/core/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := runtime.Init(&runtime.RuntimeConfig{
		ThreadRepo: a.threads,
		TagSvc:     a.tags,
		Engine:     a.index.Name(),
	}); err != nil {
		logger.Error("init runtime", logger.ErrorField(err))
	}
	logger.Info("runtime warmup: " + runtime.WarmUpLog())

	gin.SetMode(a.cfg.App.Mode)
	router := api.NewRouter(api.Deps{
		Config:  a.cfg,
		Forum:   a.forum,
		Users:   a.users,
		Tags:    a.tags,
		Threads: a.threads,
		DB:      a.db,
		Redis:   a.redis,
		Runtime: runtime.Get(),
	})

	srv := &http.Server{
		Addr:              a.cfg.App.GetServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server exited gracefully")
	return nil
}
