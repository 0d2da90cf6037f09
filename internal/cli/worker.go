package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued notifications",
		Long:  "Consume the Redis notification queue, storing each notification in the recipient's inbox and emailing it when SMTP is configured. Requires EB_REDIS_ADDR.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of notifications delivered in parallel")

	return cmd
}

func runWorker(ctx context.Context, concurrency int) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	if !cfg.QueueEnabled() {
		return fmt.Errorf("EB_REDIS_ADDR is required to run the worker")
	}
	if concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := notify.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("closing redis client", "error", err)
		}
	}()

	deliver := deliveryFanout(cfg, notify.NewInbox(database), profile.NewRepository(database))
	srv, mux := notify.NewWorker(notify.RedisOpt(rdb), deliver, concurrency)
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	slog.Info("worker started", "redis", cfg.RedisAddr, "concurrency", concurrency)

	<-ctx.Done()
	srv.Shutdown()
	return nil
}
