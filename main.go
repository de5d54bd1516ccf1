package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stevemurr/puzzle-level-server/catalog"
	"github.com/stevemurr/puzzle-level-server/config"
	"github.com/stevemurr/puzzle-level-server/handler"
	"github.com/stevemurr/puzzle-level-server/logutil"
	"github.com/stevemurr/puzzle-level-server/schema"
	"github.com/stevemurr/puzzle-level-server/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "puzzle-level-server",
		Short:        "Serve puzzle levels and record the best score per level",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logutil.New(os.Stderr, cfg.LogLevel))
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate every level file and print the level count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return check(cmd, cfg)
		},
	})
	return root
}

func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	c := catalog.New(cfg.LevelsDir)
	if cfg.LevelSchema == "" {
		return c, nil
	}
	data, err := os.ReadFile(cfg.LevelSchema)
	if err != nil {
		return nil, fmt.Errorf("read level schema: %w", err)
	}
	s, err := schema.Load(data)
	if err != nil {
		return nil, err
	}
	return c.WithSchema(s), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	s, err := store.New(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("create store (backend=%s): %w", cfg.StoreBackend, err)
	}
	defer s.Close()

	h := handler.New(cat, s,
		handler.WithLogger(logger),
		handler.WithOrigins(cfg.Origins()),
	)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Puzzle Level Server starting",
		"addr", srv.Addr,
		"levels", cfg.LevelsDir,
		"store", cfg.StoreBackend,
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func check(cmd *cobra.Command, cfg *config.Config) error {
	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	n, err := cat.Count()
	if err != nil {
		return err
	}
	failed := 0
	for i := 1; i <= n; i++ {
		if _, err := cat.Load(i); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "level %d: %v\n", i, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d levels in %s, %d invalid\n", n, cat.Dir(), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d levels failed validation", failed, n)
	}
	return nil
}
