package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/config"
	"github.com/jonathan/penpal-confirmation-bot/internal/pushover"
	"github.com/jonathan/penpal-confirmation-bot/internal/reddit"
	"github.com/jonathan/penpal-confirmation-bot/internal/secrets"
	"github.com/jonathan/penpal-confirmation-bot/internal/settings"
)

// app holds the collaborators shared by the platform-facing commands.
type app struct {
	cfg      *config.Config
	client   *reddit.Client
	notifier pushover.Notifier
	settings *settings.Holder
}

// newApp loads config and secrets, then the first settings snapshot.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	src, err := secrets.Select(ctx, cfg.Dev, cfg.Secrets, cfg.AWSRegion, cfg.SubredditName)
	if err != nil {
		return nil, err
	}
	bundle, err := secrets.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	client := reddit.New(reddit.Credentials{
		ClientID:     bundle.RedditClientID,
		ClientSecret: bundle.RedditClientSecret,
		Username:     bundle.RedditUsername,
		Password:     bundle.RedditPassword,
		UserAgent:    bundle.RedditUserAgent,
	}, cfg.SubredditName, nil)

	var notifier pushover.Notifier = pushover.Discard{}
	if bundle.HasPushover() {
		notifier = pushover.New(bundle.PushoverAppToken, bundle.PushoverUserToken, &pushover.Options{Prefix: "r/" + cfg.SubredditName})
	} else {
		logger.Warn("pushover tokens not configured, notifications disabled")
	}

	holder, err := settings.NewHolder(ctx, settings.NewLoader(client, cfg.SubredditName, cfg.WikiPrefix, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	logger.Debug("application initialized",
		zap.String("subreddit", cfg.SubredditName),
		zap.Bool("dev", cfg.Dev))
	return &app{cfg: cfg, client: client, notifier: notifier, settings: holder}, nil
}
