// Package flair updates a member's badge by decoding the displayed counters, adding an
// increment, selecting the next template and committing the re-rendered text.
package flair

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/badge"
	"github.com/jonathan/penpal-confirmation-bot/internal/catalog"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

// State is a step of a badge update.
type State string

// Badge update states. Committed, DecodeFailed and TemplateMissing are terminal.
const (
	StateFetching         State = "FETCHING"
	StateNoPrior          State = "NO_PRIOR"
	StateDecodeFailed     State = "DECODE_FAILED"
	StateDecoded          State = "DECODED"
	StateTemplateSelected State = "TEMPLATE_SELECTED"
	StateTemplateMissing  State = "TEMPLATE_MISSING"
	StateRendered         State = "RENDERED"
	StateCommitted        State = "COMMITTED"
)

// BadgeStore reads and writes badges on the platform.
type BadgeStore interface {
	FetchBadge(ctx context.Context, user string) (types.BadgeState, error)
	SetBadge(ctx context.Context, user, text, templateID string) error
}

// Rules is the immutable settings snapshot an update runs against.
type Rules interface {
	Catalog() *catalog.Catalog
	Codec() *badge.Codec
	IsModerator(user string) bool
}

// Outcome describes where an update stopped.
//
// DecodeFailed leaves Prior and New empty. TemplateMissing sets only Prior. Rendered and
// Committed set both.
type Outcome struct {
	State      State
	Prior      string
	New        string
	TemplateID string
	Counters   types.Counters
}

// Succeeded reports whether the new badge was committed.
func (o Outcome) Succeeded() bool {
	return o.State == StateCommitted
}

// Engine runs badge updates. It keeps no state between calls.
type Engine struct {
	store  BadgeStore
	logger *zap.Logger
}

// NewEngine creates an engine backed by store.
func NewEngine(store BadgeStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// Increment adds inc to user's badge counters and commits the new badge. Fetch and commit
// errors are returned unchanged in meaning; nothing is retried.
func (e *Engine) Increment(ctx context.Context, rules Rules, user string, inc types.Counters) (Outcome, error) {
	out, err := e.plan(ctx, rules, user, inc)
	if err != nil || out.State != StateRendered {
		return out, err
	}

	if err := e.store.SetBadge(ctx, user, out.New, out.TemplateID); err != nil {
		return out, fmt.Errorf("failed to set flair for %s: %w", user, err)
	}
	out.State = StateCommitted
	return out, nil
}

// plan runs every step of Increment except the commit.
func (e *Engine) plan(ctx context.Context, rules Rules, user string, inc types.Counters) (Outcome, error) {
	current, err := e.store.FetchBadge(ctx, user)
	if err != nil {
		return Outcome{State: StateFetching}, fmt.Errorf("failed to fetch flair for %s: %w", user, err)
	}

	var prior string
	var counters types.Counters
	if current.Empty() {
		prior = types.NoFlairText
	} else {
		decoded, ok := rules.Codec().Decode(current.Text)
		if !ok {
			e.logger.Warn("current flair does not match the counter pattern",
				zap.String("user", user), zap.String("flair_text", current.Text))
			return Outcome{State: StateDecodeFailed}, nil
		}
		prior = current.Text
		counters = decoded
	}

	next := counters.Add(inc)
	out := Outcome{State: StateTemplateMissing, Prior: prior, Counters: next}

	var text string
	if special := rules.Catalog().SelectSpecial(current.CategoryID); special != nil {
		text, err = badge.Encode(special.RawText, special.Layout, next.Emails, next.Letters)
		out.TemplateID = special.CategoryID
	} else if ranged := rules.Catalog().SelectRanged(next.Total(), rules.IsModerator(user)); ranged != nil {
		text, err = badge.Encode(ranged.RawText, ranged.Layout, next.Emails, next.Letters)
		out.TemplateID = ranged.ID
	} else {
		e.logger.Warn("no flair template covers the new total",
			zap.String("user", user), zap.Int("total", next.Total()))
		return out, nil
	}
	out.State = StateTemplateSelected
	if err != nil {
		return out, fmt.Errorf("failed to render flair template %s: %w", out.TemplateID, err)
	}

	out.State = StateRendered
	out.New = text
	return out, nil
}
