// Package catalog classifies the platform's badge templates into ranged and special templates
// and selects the template that applies to a member.
package catalog

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/jonathan/penpal-confirmation-bot/internal/badge"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

// RangedTemplate applies to members whose total lies in [Min, Max].
type RangedTemplate struct {
	Min     int
	Max     int
	ModOnly bool
	ID      string
	RawText string
	Layout  badge.Layout
}

// Covers reports whether total lies inside the template's interval.
func (r RangedTemplate) Covers(total int) bool {
	return r.Min <= total && total <= r.Max
}

// SpecialTemplate is permanently assigned to members carrying its category tag.
type SpecialTemplate struct {
	CategoryID string
	RawText    string
	Layout     badge.Layout
}

// Overlap records two ranged templates with the same moderator flag whose intervals intersect.
type Overlap struct {
	First  RangedTemplate
	Second RangedTemplate
}

// CategoryTagger updates the category tag stored on a platform template.
type CategoryTagger interface {
	UpdateTemplateCategory(ctx context.Context, templateID, tag string) error
}

type rangeKey struct {
	min int
	max int
}

// Catalog is an immutable set of badge templates.
type Catalog struct {
	ranged   []RangedTemplate
	special  map[string]SpecialTemplate
	overlaps []Overlap
}

// Build classifies descriptors in list order. A descriptor matching the ranged pattern is keyed
// by its interval (a later duplicate interval replaces the earlier one in place); otherwise one
// matching the special pattern is keyed by its id and its category tag is repaired to equal the
// id. Everything else is ignored. tagger may be nil.
func Build(ctx context.Context, descriptors []types.TemplateDescriptor, codec *badge.Codec, tagger CategoryTagger, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Catalog{special: make(map[string]SpecialTemplate)}
	positions := make(map[rangeKey]int)

	for _, d := range descriptors {
		if m, ok := codec.MatchRanged(d.Text); ok {
			tmpl := RangedTemplate{
				Min:     m.Min,
				Max:     m.Max,
				ModOnly: d.ModOnly,
				ID:      d.ID,
				RawText: d.Text,
				Layout:  m.Layout,
			}
			key := rangeKey{min: m.Min, max: m.Max}
			if pos, exists := positions[key]; exists {
				logger.Warn("duplicate flair template range, keeping the later one",
					zap.Int("min", m.Min), zap.Int("max", m.Max),
					zap.String("replaced_id", c.ranged[pos].ID), zap.String("template_id", d.ID))
				c.ranged[pos] = tmpl
			} else {
				positions[key] = len(c.ranged)
				c.ranged = append(c.ranged, tmpl)
			}
			logger.Info("loaded ranged flair template",
				zap.Int("min", m.Min), zap.Int("max", m.Max), zap.Bool("mod_only", d.ModOnly), zap.String("text", d.Text))
			continue
		}

		layout, ok := codec.SpecialLayout(d.Text)
		if !ok {
			continue
		}
		if d.CSSClass != d.ID && tagger != nil {
			if err := tagger.UpdateTemplateCategory(ctx, d.ID, d.ID); err != nil {
				logger.Warn("failed to repair flair template category", zap.String("template_id", d.ID), zap.Error(err))
			}
		}
		c.special[d.ID] = SpecialTemplate{CategoryID: d.ID, RawText: d.Text, Layout: layout}
		logger.Info("loaded special flair template", zap.String("template_id", d.ID), zap.String("text", d.Text))
	}

	c.overlaps = findOverlaps(c.ranged)
	for _, o := range c.overlaps {
		logger.Warn("overlapping flair template ranges, the first loaded wins",
			zap.String("first_id", o.First.ID), zap.Int("first_min", o.First.Min), zap.Int("first_max", o.First.Max),
			zap.String("second_id", o.Second.ID), zap.Int("second_min", o.Second.Min), zap.Int("second_max", o.Second.Max),
			zap.Bool("mod_only", o.First.ModOnly))
	}
	return c
}

func findOverlaps(ranged []RangedTemplate) []Overlap {
	var overlaps []Overlap
	for i := range ranged {
		for j := i + 1; j < len(ranged); j++ {
			a, b := ranged[i], ranged[j]
			if a.ModOnly != b.ModOnly {
				continue
			}
			if a.Min <= b.Max && b.Min <= a.Max {
				overlaps = append(overlaps, Overlap{First: a, Second: b})
			}
		}
	}
	return overlaps
}

// SelectRanged returns the first ranged template covering total whose moderator flag equals
// isMod, or nil when no template applies. Callers must not substitute a fallback for nil.
func (c *Catalog) SelectRanged(total int, isMod bool) *RangedTemplate {
	for _, r := range c.ranged {
		if r.Covers(total) && r.ModOnly == isMod {
			tmpl := r
			return &tmpl
		}
	}
	return nil
}

// SelectSpecial returns the special template for a category id, or nil.
func (c *Catalog) SelectSpecial(categoryID string) *SpecialTemplate {
	if categoryID == "" {
		return nil
	}
	tmpl, ok := c.special[categoryID]
	if !ok {
		return nil
	}
	return &tmpl
}

// Ranged returns the ranged templates in selection order.
func (c *Catalog) Ranged() []RangedTemplate {
	return append([]RangedTemplate(nil), c.ranged...)
}

// Special returns the special templates ordered by category id.
func (c *Catalog) Special() []SpecialTemplate {
	out := make([]SpecialTemplate, 0, len(c.special))
	for _, s := range c.special {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// Overlaps returns intersecting ranged intervals found at build time.
func (c *Catalog) Overlaps() []Overlap {
	return append([]Overlap(nil), c.overlaps...)
}
