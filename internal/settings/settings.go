// Package settings loads the per-community bot settings: reply texts and patterns from the
// wiki, the flair template catalog and the moderator list. A loaded Snapshot is immutable;
// a reload builds a new one and swaps it in whole.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/badge"
	"github.com/jonathan/penpal-confirmation-bot/internal/catalog"
	"github.com/jonathan/penpal-confirmation-bot/internal/confirm"
	"github.com/jonathan/penpal-confirmation-bot/internal/messages"
	"github.com/jonathan/penpal-confirmation-bot/internal/reddit"
	"github.com/jonathan/penpal-confirmation-bot/internal/reply"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

// Wiki page names for the overridable patterns.
const (
	ConfirmationPatternPage = "confirmation_regex_pattern"
	CounterPatternPage      = "flair_regex"
	RangedPatternPage       = "ranged_flair_template_regex"
	SpecialPatternPage      = "special_flair_template_regex"
)

// Platform is what the loader needs from the community.
type Platform interface {
	Me(ctx context.Context) (types.Account, error)
	WikiPage(ctx context.Context, page string) (string, error)
	ListBadgeTemplates(ctx context.Context) ([]types.TemplateDescriptor, error)
	UpdateTemplateCategory(ctx context.Context, templateID, tag string) error
	Moderators(ctx context.Context) ([]string, error)
}

// Snapshot is one consistent set of settings.
type Snapshot struct {
	Bot       types.Account
	Subreddit string
	Messages  map[string]string

	catalog    *catalog.Catalog
	codec      *badge.Codec
	parser     *confirm.Parser
	composer   *reply.Composer
	moderators map[string]bool
}

// Catalog returns the flair template catalog.
func (s *Snapshot) Catalog() *catalog.Catalog { return s.catalog }

// Codec returns the badge codec built from the loaded patterns.
func (s *Snapshot) Codec() *badge.Codec { return s.codec }

// Parser returns the confirmation parser.
func (s *Snapshot) Parser() *confirm.Parser { return s.parser }

// Composer returns the reply composer.
func (s *Snapshot) Composer() *reply.Composer { return s.composer }

// IsModerator reports whether user moderated the community when the snapshot was loaded.
func (s *Snapshot) IsModerator(user string) bool {
	return s.moderators[strings.ToLower(user)]
}

// Moderators returns the moderator count.
func (s *Snapshot) Moderators() int { return len(s.moderators) }

// Message returns a loaded message template.
func (s *Snapshot) Message(name string) string {
	return s.Messages[name]
}

// Loader builds snapshots for one community.
type Loader struct {
	platform   Platform
	subreddit  string
	wikiPrefix string
	logger     *zap.Logger
}

// NewLoader creates a loader. wikiPrefix is the wiki directory holding the overrides.
func NewLoader(platform Platform, subreddit, wikiPrefix string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{platform: platform, subreddit: subreddit, wikiPrefix: strings.Trim(wikiPrefix, "/"), logger: logger}
}

// Load reads every setting and returns a new snapshot. Any failure other than a missing or
// restricted wiki page aborts the load.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	me, err := l.platform.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot account: %w", err)
	}

	patterns := make(map[string]string, 4)
	for _, page := range []string{ConfirmationPatternPage, CounterPatternPage, RangedPatternPage, SpecialPatternPage} {
		text, err := l.page(ctx, page, "")
		if err != nil {
			return nil, err
		}
		patterns[page] = strings.TrimSpace(text)
	}

	codec, err := badge.NewCodec(patterns[CounterPatternPage], patterns[RangedPatternPage], patterns[SpecialPatternPage])
	if err != nil {
		return nil, err
	}
	parser := confirm.DefaultParser()
	if p := patterns[ConfirmationPatternPage]; p != "" {
		if parser, err = confirm.NewParser(p); err != nil {
			return nil, err
		}
	}

	names, err := messages.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list message templates: %w", err)
	}
	texts := make(map[string]string, len(names))
	for _, name := range names {
		text, err := l.page(ctx, name, messages.MustGet(name))
		if err != nil {
			return nil, err
		}
		texts[name] = text
	}

	descriptors, err := l.platform.ListBadgeTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load flair templates: %w", err)
	}
	cat := catalog.Build(ctx, descriptors, codec, l.platform, l.logger)

	mods, err := l.platform.Moderators(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load moderators: %w", err)
	}
	moderators := make(map[string]bool, len(mods))
	for _, m := range mods {
		moderators[strings.ToLower(m)] = true
	}

	snap := &Snapshot{
		Bot:       me,
		Subreddit: l.subreddit,
		Messages:  texts,
		catalog:   cat,
		codec:     codec,
		parser:    parser,
		composer: reply.NewComposer(reply.Templates{
			Confirmation:       texts[messages.ConfirmationMessage],
			UserDoesntExist:    texts[messages.UserDoesntExist],
			CantUpdateYourself: texts[messages.CantUpdateYourself],
			FlairUpdateFailed:  texts[messages.FlairUpdateFailed],
		}),
		moderators: moderators,
	}
	l.logger.Info("loaded settings",
		zap.String("bot", me.Name),
		zap.Int("ranged_templates", len(cat.Ranged())),
		zap.Int("special_templates", len(cat.Special())),
		zap.Int("moderators", len(moderators)))
	return snap, nil
}

// page returns a wiki page under the prefix, or fallback when it is missing or restricted.
func (l *Loader) page(ctx context.Context, name, fallback string) (string, error) {
	full := name
	if l.wikiPrefix != "" {
		full = l.wikiPrefix + "/" + name
	}
	text, err := l.platform.WikiPage(ctx, full)
	if errors.Is(err, reddit.ErrNotFound) || errors.Is(err, reddit.ErrForbidden) {
		l.logger.Debug("using built-in template", zap.String("page", full))
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load wiki page %s: %w", full, err)
	}
	l.logger.Debug("loaded template from wiki", zap.String("page", full))
	return text, nil
}

// Holder publishes the current snapshot. Readers never see a partially reloaded snapshot.
type Holder struct {
	current atomic.Pointer[Snapshot]
	loader  *Loader
}

// NewHolder loads the first snapshot.
func NewHolder(ctx context.Context, loader *Loader) (*Holder, error) {
	h := &Holder{loader: loader}
	if err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Current returns the active snapshot.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Reload builds a new snapshot and swaps it in. On error the old snapshot stays active.
func (h *Holder) Reload(ctx context.Context) error {
	snap, err := h.loader.Load(ctx)
	if err != nil {
		return err
	}
	h.current.Store(snap)
	return nil
}
