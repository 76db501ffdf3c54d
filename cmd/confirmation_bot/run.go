package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/bot"
	"github.com/jonathan/penpal-confirmation-bot/internal/db"
	"github.com/jonathan/penpal-confirmation-bot/internal/leader"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process confirmation comments and moderator messages until stopped",
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}

	var ledger bot.Ledger
	if a.cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		ledger = database
	}

	b := bot.New(a.client, a.settings, ledger, a.notifier, logger, bot.Options{
		PollInterval:    a.cfg.PollInterval,
		CommentLimit:    a.cfg.CommentLimit,
		OutageThreshold: a.cfg.OutageThreshold,
	})

	run := b.Run
	if a.cfg.RedisURL != "" {
		client, err := leader.NewClient(a.cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		lease := leader.New(client, a.cfg.SubredditName, a.cfg.LeaseTTL, logger)
		run = func(ctx context.Context) error { return lease.Hold(ctx, b.Run) }
	} else {
		logger.Warn("REDIS_URL not set, running without a leader lease")
	}

	if err := run(ctx); err != nil {
		logger.Error("bot stopped", zap.Error(err))
		notifyCtx := context.WithoutCancel(ctx)
		_ = a.notifier.Notify(notifyCtx, "Bot error for r/"+a.cfg.SubredditName)
		_ = a.notifier.Notify(notifyCtx, err.Error())
		return fmt.Errorf("bot stopped: %w", err)
	}
	logger.Info("bot stopped")
	return nil
}
