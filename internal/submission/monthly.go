// Package submission maintains the monthly confirmation thread.
package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/messages"
	"github.com/jonathan/penpal-confirmation-bot/internal/pushover"
	"github.com/jonathan/penpal-confirmation-bot/internal/reddit"
	"github.com/jonathan/penpal-confirmation-bot/internal/settings"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

const (
	// currentLookback is how many of the bot's posts are searched for the pinned thread.
	currentLookback = 5
	// lockLookback is how many of the bot's posts are considered for locking.
	lockLookback = 10

	noPreviousTitle = "No Previous Confirmation Thread"
)

// Platform is what the monthly workflow needs from the community.
type Platform interface {
	SubredditFullname(ctx context.Context) (string, error)
	UserSubmissions(ctx context.Context, user string, limit int) ([]types.Submission, error)
	Submit(ctx context.Context, req reddit.SubmitRequest) (types.Submission, error)
	SetSticky(ctx context.Context, fullname string, state bool) error
	SetSuggestedSort(ctx context.Context, fullname, sort string) error
	Lock(ctx context.Context, fullname string) error
}

// Monthly creates the thread for the current month and locks the older ones.
type Monthly struct {
	platform Platform
	snapshot *settings.Snapshot
	notifier pushover.Notifier
	logger   *zap.Logger
	flairID  string
	now      func() time.Time
}

// NewMonthly creates the workflow. flairID overrides the wiki's post flair id when set.
func NewMonthly(platform Platform, snap *settings.Snapshot, notifier pushover.Notifier, logger *zap.Logger, flairID string) *Monthly {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = pushover.Discard{}
	}
	return &Monthly{platform: platform, snapshot: snap, notifier: notifier, logger: logger, flairID: flairID, now: time.Now}
}

// Result summarizes a run.
type Result struct {
	Thread  types.Submission
	Created bool
	Locked  []string
}

// Run creates this month's thread if needed, then locks every other bot thread.
func (m *Monthly) Run(ctx context.Context) (*Result, error) {
	subredditID, err := m.platform.SubredditFullname(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subreddit: %w", err)
	}

	thread, created, err := m.create(ctx, subredditID)
	if err != nil {
		return nil, err
	}
	m.notify(ctx, "Locking previous month's posts for r/"+m.snapshot.Subreddit)
	locked, err := m.lockPrevious(ctx, subredditID, thread.Fullname)
	if err != nil {
		return nil, err
	}
	return &Result{Thread: thread, Created: created, Locked: locked}, nil
}

// current returns the bot's pinned thread in this community.
func (m *Monthly) current(ctx context.Context, subredditID string) (*types.Submission, error) {
	posts, err := m.platform.UserSubmissions(ctx, m.snapshot.Bot.Name, currentLookback)
	if err != nil {
		return nil, fmt.Errorf("failed to list bot submissions: %w", err)
	}
	for i := range posts {
		if posts[i].SubredditID == subredditID && posts[i].Stickied {
			return &posts[i], nil
		}
	}
	return nil, nil
}

func (m *Monthly) create(ctx context.Context, subredditID string) (types.Submission, bool, error) {
	now := m.now().UTC()
	previous, err := m.current(ctx, subredditID)
	if err != nil {
		return types.Submission{}, false, err
	}
	if previous != nil && sameMonth(previous.CreatedAt, now) {
		m.logger.Info("monthly thread already exists", zap.String("permalink", previous.Permalink))
		return *previous, false, nil
	}

	m.notify(ctx, "Creating monthly post for r/"+m.snapshot.Subreddit)
	if previous != nil {
		if err := m.platform.SetSticky(ctx, previous.Fullname, false); err != nil {
			return types.Submission{}, false, fmt.Errorf("failed to unpin previous thread: %w", err)
		}
	}

	prevTitle, prevLink := noPreviousTitle, ""
	if previous != nil {
		prevTitle, prevLink = previous.Title, previous.Permalink
	}
	req := reddit.SubmitRequest{
		Title: strftime.Format(strings.TrimSpace(m.snapshot.Message(messages.MonthlyPostTitle)), now),
		Text: messages.Format(m.snapshot.Message(messages.MonthlyPost), map[string]string{
			"bot_name":           m.snapshot.Bot.Name,
			"subreddit_name":     m.snapshot.Subreddit,
			"previous_title":     prevTitle,
			"previous_permalink": prevLink,
			// Spelling used by older wiki bodies.
			"previous_month_submission.title":     prevTitle,
			"previous_month_submission.permalink": prevLink,
		}),
		FlairID: m.postFlairID(),
	}
	thread, err := m.platform.Submit(ctx, req)
	if err != nil {
		return types.Submission{}, false, fmt.Errorf("failed to submit monthly thread: %w", err)
	}
	thread.SubredditID = subredditID
	thread.Stickied = true
	if err := m.platform.SetSticky(ctx, thread.Fullname, true); err != nil {
		return types.Submission{}, false, fmt.Errorf("failed to pin monthly thread: %w", err)
	}
	if err := m.platform.SetSuggestedSort(ctx, thread.Fullname, "new"); err != nil {
		return types.Submission{}, false, fmt.Errorf("failed to set suggested sort: %w", err)
	}
	m.logger.Info("created monthly thread", zap.String("title", thread.Title), zap.String("permalink", thread.Permalink))
	return thread, true, nil
}

// lockPrevious locks the bot's recent threads in this community except exempt.
func (m *Monthly) lockPrevious(ctx context.Context, subredditID, exempt string) ([]string, error) {
	posts, err := m.platform.UserSubmissions(ctx, m.snapshot.Bot.Name, lockLookback)
	if err != nil {
		return nil, fmt.Errorf("failed to list bot submissions: %w", err)
	}
	var locked []string
	for _, p := range posts {
		if p.SubredditID != subredditID || p.Fullname == exempt || p.Locked {
			continue
		}
		m.logger.Info("locking thread", zap.String("permalink", p.Permalink))
		if err := m.platform.Lock(ctx, p.Fullname); err != nil {
			return locked, fmt.Errorf("failed to lock %s: %w", p.Fullname, err)
		}
		locked = append(locked, p.Fullname)
	}
	return locked, nil
}

func (m *Monthly) postFlairID() string {
	if m.flairID != "" {
		return m.flairID
	}
	return strings.TrimSpace(m.snapshot.Message(messages.MonthlyPostFlairID))
}

func (m *Monthly) notify(ctx context.Context, message string) {
	if err := m.notifier.Notify(ctx, message); err != nil {
		m.logger.Warn("failed to send notification", zap.Error(err))
	}
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
