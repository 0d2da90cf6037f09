package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/auth"
	"github.com/evcraddock/estate-bids/internal/bid"
	"github.com/evcraddock/estate-bids/internal/config"
	"github.com/evcraddock/estate-bids/internal/email"
	"github.com/evcraddock/estate-bids/internal/logging"
	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
	"github.com/evcraddock/estate-bids/internal/property"
	"github.com/evcraddock/estate-bids/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the JSON HTTP API.

Configuration is read from the environment (and a .env file if present):
EB_JWT_SECRET is required; EB_PORT, EB_DB_PATH, EB_REDIS_ADDR, EB_SMTP_*
and EB_BID_TTL are optional.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: EB_PORT or 8080)")

	return cmd
}

func runServe(ctx context.Context, port int) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return err
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles := profile.NewRepository(database)
	inbox := notify.NewInbox(database)

	dispatcher, closeQueue, err := newDispatcher(ctx, cfg, inbox, profiles)
	if err != nil {
		return err
	}
	defer closeQueue()

	props := property.NewService(property.NewRepository(database), profiles, dispatcher)
	bids := bid.NewService(bid.NewRepository(database), props, dispatcher)
	bids.SetTTL(cfg.BidTTL)

	srv := web.NewServer(web.Deps{
		Profiles:      profiles,
		Properties:    props,
		Bids:          bids,
		Inbox:         inbox,
		Authenticator: auth.NewAuthenticator(tokens, profiles),
	})

	fmt.Printf("Serving API on http://localhost:%d\n", cfg.Port)
	return srv.ListenAndServe(ctx, cfg.Port)
}

// loadServerConfig reads .env and the environment, then sets up logging.
func loadServerConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	if flagDB == "" && cfg.DBPath != "" {
		flagDB = cfg.DBPath
	}
	logging.Setup(cfg.DevMode, cfg.LogLevel)
	return cfg, nil
}

// newDispatcher picks how the server delivers notifications. With Redis
// configured they are queued for the worker, which owns inbox and mail
// delivery. Otherwise they are written to the inbox in-process.
func newDispatcher(ctx context.Context, cfg config.Config, inbox *notify.Inbox, profiles *profile.Repository) (notify.Dispatcher, func(), error) {
	if cfg.QueueEnabled() {
		rdb, err := notify.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		queue := notify.NewQueueDispatcher(notify.RedisOpt(rdb))
		slog.Info("queueing notifications", "redis", cfg.RedisAddr)
		return queue, func() {
			if err := queue.Close(); err != nil {
				slog.Warn("closing queue client", "error", err)
			}
			if err := rdb.Close(); err != nil {
				slog.Warn("closing redis client", "error", err)
			}
		}, nil
	}

	return deliveryFanout(cfg, inbox, profiles), func() {}, nil
}

// deliveryFanout is the final delivery path: the inbox, the log, and
// email when SMTP is configured.
func deliveryFanout(cfg config.Config, inbox *notify.Inbox, profiles *profile.Repository) notify.Fanout {
	f := notify.Fanout{inbox, notify.LogDispatcher{}}
	if cfg.SMTPEnabled() {
		f = append(f, email.NewMailer(email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}, profiles, nil))
	}
	return f
}
