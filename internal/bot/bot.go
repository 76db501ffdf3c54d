// Package bot wires the parser, the flair engine and the reply composer to the platform:
// it handles confirmation comments, moderator inbox commands and the poll loops.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/db"
	"github.com/jonathan/penpal-confirmation-bot/internal/flair"
	"github.com/jonathan/penpal-confirmation-bot/internal/messages"
	"github.com/jonathan/penpal-confirmation-bot/internal/pushover"
	"github.com/jonathan/penpal-confirmation-bot/internal/reply"
	"github.com/jonathan/penpal-confirmation-bot/internal/settings"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

// Platform is the subset of the platform client the bot drives.
type Platform interface {
	flair.BadgeStore
	NewComments(ctx context.Context, limit int) ([]types.Comment, error)
	User(ctx context.Context, name string) (types.Account, bool, error)
	Reply(ctx context.Context, parentFullname, text string) error
	Save(ctx context.Context, fullname string) error
	UnreadMessages(ctx context.Context) ([]types.InboxMessage, error)
	MarkRead(ctx context.Context, fullnames ...string) error
	MessageModerators(ctx context.Context, subject, body string) error
}

// Settings publishes the current settings snapshot.
type Settings interface {
	Current() *settings.Snapshot
	Reload(ctx context.Context) error
}

// Ledger records handled mentions. It is optional.
type Ledger interface {
	RecordUpdate(ctx context.Context, u *db.FlairUpdate) error
	CountCommitted(ctx context.Context, subreddit, commentID string) (int, error)
}

// Options tunes the poll loops.
type Options struct {
	PollInterval    time.Duration
	CommentLimit    int
	OutageThreshold int
}

// Bot processes one community.
type Bot struct {
	platform Platform
	settings Settings
	engine   *flair.Engine
	ledger   Ledger
	notifier pushover.Notifier
	logger   *zap.Logger
	opts     Options
	health   map[string]*health
	now      func() time.Time
}

// New creates a bot. ledger and notifier may be nil.
func New(platform Platform, s Settings, ledger Ledger, notifier pushover.Notifier, logger *zap.Logger, opts Options) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = pushover.Discard{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.CommentLimit <= 0 {
		opts.CommentLimit = 100
	}
	if opts.OutageThreshold <= 0 {
		opts.OutageThreshold = 10
	}
	return &Bot{
		platform: platform,
		settings: s,
		engine:   flair.NewEngine(platform, logger),
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		health: map[string]*health{
			commentsLoop: {threshold: opts.OutageThreshold},
			inboxLoop:    {threshold: opts.OutageThreshold},
		},
		now: time.Now,
	}
}

// ShouldProcess reports whether a comment is an unprocessed, visible, top-level comment left
// by someone else on a thread the bot authored.
func ShouldProcess(c types.Comment, bot types.Account) bool {
	return !c.Saved &&
		!c.Removed &&
		strings.EqualFold(c.LinkAuthor, bot.Name) &&
		c.AuthorFullname != "" &&
		c.AuthorFullname != bot.Fullname &&
		c.IsRoot() &&
		c.BannedBy == ""
}

// HandleComment processes one comment and returns the reply it posted, if any. Each mention
// is handled in order and a failure on one does not stop the others. The comment is saved
// whether or not it contained a confirmation.
func (b *Bot) HandleComment(ctx context.Context, c types.Comment) (string, error) {
	snap := b.settings.Current()
	if !ShouldProcess(c, snap.Bot) {
		return "", nil
	}
	log := b.logger.With(zap.String("comment_id", c.ID), zap.String("author", c.Author))
	log.Info("processing comment", zap.String("permalink", c.Permalink))

	requests := snap.Parser().ExtractRequests(c.Body)
	if len(requests) > 0 && b.alreadyCommitted(ctx, snap, c, log) {
		requests = nil
	}

	fragments := make([]string, 0, len(requests))
	for _, req := range requests {
		if result, ok := b.handleRequest(ctx, snap, c, req, log); ok {
			fragments = append(fragments, snap.Composer().Fragment(result))
		}
	}

	if err := b.platform.Save(ctx, c.Fullname); err != nil {
		return "", fmt.Errorf("failed to save comment %s: %w", c.ID, err)
	}
	body := reply.Join(fragments)
	if body == "" {
		return "", nil
	}
	if err := b.platform.Reply(ctx, c.Fullname, body); err != nil {
		return "", fmt.Errorf("failed to reply to comment %s: %w", c.ID, err)
	}
	return body, nil
}

// alreadyCommitted guards against counting a comment twice when the bot stopped between
// updating flair and saving the comment.
func (b *Bot) alreadyCommitted(ctx context.Context, snap *settings.Snapshot, c types.Comment, log *zap.Logger) bool {
	if b.ledger == nil {
		return false
	}
	n, err := b.ledger.CountCommitted(ctx, snap.Subreddit, c.ID)
	if err != nil {
		log.Warn("failed to check ledger", zap.Error(err))
		return false
	}
	if n > 0 {
		log.Warn("comment already produced confirmations, skipping", zap.Int("committed", n))
		return true
	}
	return false
}

// handleRequest resolves one mention. ok is false when the mention failed unexpectedly; such
// failures are logged and produce no reply fragment.
func (b *Bot) handleRequest(ctx context.Context, snap *settings.Snapshot, c types.Comment, req types.ConfirmationRequest, log *zap.Logger) (result reply.Result, ok bool) {
	log = log.With(zap.String("user", req.TargetUser))
	entry := &db.FlairUpdate{
		Subreddit:  snap.Subreddit,
		CommentID:  c.ID,
		Author:     c.Author,
		TargetUser: req.TargetUser,
		Emails:     req.Emails,
		Letters:    req.Letters,
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling confirmation", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			result, ok = reply.Result{}, false
			b.record(ctx, entry, db.OutcomeFailed, fmt.Errorf("panic: %v", r), log)
		}
	}()

	result.Handle = req.TargetUser
	account, found, err := b.platform.User(ctx, req.TargetUser)
	if err != nil {
		log.Error("failed to look up user", zap.Error(err))
		b.record(ctx, entry, db.OutcomeFailed, err, log)
		return reply.Result{}, false
	}
	if !found {
		result.Kind = reply.UserNotFound
		b.record(ctx, entry, db.OutcomeUserNotFound, nil, log)
		return result, true
	}
	if account.Fullname == c.AuthorFullname {
		result.Kind = reply.SelfUpdate
		b.record(ctx, entry, db.OutcomeSelfUpdate, nil, log)
		return result, true
	}

	out, err := b.engine.Increment(ctx, snap, account.Name, req.Increment())
	entry.OldFlair, entry.NewFlair, entry.TemplateID = out.Prior, out.New, out.TemplateID
	if err != nil {
		log.Error("flair update failed", zap.String("state", string(out.State)), zap.Error(err))
		b.record(ctx, entry, db.OutcomeFailed, err, log)
		return reply.Result{}, false
	}
	if !out.Succeeded() {
		if out.State == flair.StateDecodeFailed {
			b.notify(ctx, fmt.Sprintf("Flair for u/%s does not match the counter pattern; update skipped", account.Name))
		}
		result.Kind = reply.UpdateFailed
		b.record(ctx, entry, db.OutcomeFailed, fmt.Errorf("flair update stopped at %s", out.State), log)
		return result, true
	}

	log.Info("updated flair",
		zap.String("old", out.Prior), zap.String("new", out.New), zap.String("template_id", out.TemplateID))
	result.Kind = reply.Confirmed
	result.Prior, result.New = out.Prior, out.New
	b.record(ctx, entry, db.OutcomeConfirmed, nil, log)
	return result, true
}

func (b *Bot) record(ctx context.Context, entry *db.FlairUpdate, outcome string, cause error, log *zap.Logger) {
	if b.ledger == nil {
		return
	}
	entry.Outcome = outcome
	if cause != nil {
		msg := cause.Error()
		entry.Error = &msg
	}
	if err := b.ledger.RecordUpdate(ctx, entry); err != nil {
		log.Warn("failed to record flair update", zap.Error(err))
	}
}

// HandleInbox marks every unread item read and runs commands from moderators. The only
// command is "reload", which rebuilds the settings snapshot.
func (b *Bot) HandleInbox(ctx context.Context) error {
	items, err := b.platform.UnreadMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	read := make([]string, 0, len(items))
	for _, m := range items {
		read = append(read, m.Fullname)
		if m.WasComment || !b.settings.Current().IsModerator(m.Author) {
			continue
		}
		if !strings.Contains(strings.ToLower(m.Body), "reload") {
			continue
		}

		log := b.logger.With(zap.String("moderator", m.Author))
		log.Info("moderator requested settings reload")
		if err := b.settings.Reload(ctx); err != nil {
			log.Error("settings reload failed", zap.Error(err))
			b.notify(ctx, "Settings reload failed: "+err.Error())
			continue
		}
		if err := b.platform.Reply(ctx, m.Fullname, b.settings.Current().Message(messages.ReloadSuccess)); err != nil {
			log.Warn("failed to confirm reload", zap.Error(err))
		}
	}

	if err := b.platform.MarkRead(ctx, read...); err != nil {
		return fmt.Errorf("failed to mark inbox read: %w", err)
	}
	return nil
}

// PollComments fetches the newest comments and handles them oldest first.
func (b *Bot) PollComments(ctx context.Context) error {
	comments, err := b.platform.NewComments(ctx, b.opts.CommentLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}
	for i := len(comments) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := b.HandleComment(ctx, comments[i]); err != nil {
			b.logger.Error("failed to handle comment", zap.String("comment_id", comments[i].ID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) notify(ctx context.Context, message string) {
	if err := b.notifier.Notify(ctx, message); err != nil {
		b.logger.Warn("failed to send notification", zap.Error(err))
	}
}
