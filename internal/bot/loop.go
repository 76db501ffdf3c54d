package bot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/penpal-confirmation-bot/internal/messages"
)

// OutageSubject is the subject of the recovery message sent to moderators.
const OutageSubject = "Bot Recovered from Extended Outage"

const (
	commentsLoop = "comments"
	inboxLoop    = "inbox"
)

// health counts consecutive failed polls of one loop. Only that loop's goroutine touches it.
type health struct {
	threshold int
	failures  int
	startedAt time.Time
}

// failure records a failed poll at now.
func (h *health) failure(now time.Time) {
	if h.failures == 0 {
		h.startedAt = now
	}
	h.failures++
}

// success resets the counter. recovered is true when the run of failures had reached the
// outage threshold, and startedAt is when that run began.
func (h *health) success() (recovered bool, startedAt time.Time) {
	recovered = h.failures >= h.threshold
	startedAt = h.startedAt
	h.failures = 0
	h.startedAt = time.Time{}
	return recovered, startedAt
}

// Run polls comments and the inbox until ctx is canceled. Poll errors are logged and
// counted; they never stop the loops. A plain cancellation returns nil; a context canceled
// with another cause, such as a lost lease, returns that cause.
func (b *Bot) Run(ctx context.Context) error {
	snap := b.settings.Current()
	b.logger.Info("bot started",
		zap.String("subreddit", snap.Subreddit),
		zap.String("bot", snap.Bot.Name),
		zap.Duration("poll_interval", b.opts.PollInterval))
	b.notify(ctx, "Bot startup for r/"+snap.Subreddit)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.loop(gctx, commentsLoop, b.PollComments) })
	g.Go(func() error { return b.loop(gctx, inboxLoop, b.HandleInbox) })

	err := g.Wait()
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		cause := context.Cause(ctx)
		if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
			return nil
		}
		return cause
	}
	return err
}

func (b *Bot) loop(ctx context.Context, name string, poll func(context.Context) error) error {
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()
	for {
		b.tick(ctx, name, poll)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Bot) tick(ctx context.Context, name string, poll func(context.Context) error) {
	err := poll(ctx)
	if ctx.Err() != nil {
		return
	}
	h := b.health[name]
	if err != nil {
		h.failure(b.now())
		b.logger.Error("poll failed", zap.String("loop", name), zap.Error(err))
		return
	}
	if recovered, startedAt := h.success(); recovered {
		b.reportRecovery(ctx, startedAt)
	}
}

// reportRecovery tells moderators the bot is back after an extended outage.
func (b *Bot) reportRecovery(ctx context.Context, startedAt time.Time) {
	snap := b.settings.Current()
	b.logger.Warn("recovered from outage", zap.Time("started_at", startedAt))
	body := messages.Format(snap.Message(messages.OutageRecovery), map[string]string{
		"subreddit_name": snap.Subreddit,
		"started_at":     startedAt.UTC().Format(time.RFC1123),
	})
	if err := b.platform.MessageModerators(ctx, OutageSubject, body); err != nil {
		b.logger.Warn("failed to send outage recovery message", zap.Error(err))
	}
	b.notify(ctx, "Recovered from outage that started at "+startedAt.UTC().Format(time.RFC3339))
}
