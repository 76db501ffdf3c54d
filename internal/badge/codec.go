// Package badge reads counters out of rendered badge text and renders counters into badge
// templates. Badge text is the only place the counters are stored, so rendering works on byte
// spans located by pattern matches instead of on structured fields.
package badge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

// Default patterns. Group names are part of the contract with wiki overrides.
const (
	DefaultCounterPattern = `📧 Emails: (?P<emails>\d+|\{E\}) \| 📬 Letters: (?P<letters>\d+|\{L\})`
	DefaultRangedPattern  = `(?P<prefix>(?P<min>\d+)-(?P<max>\d+):)📧 Emails: (?P<emails>\{E\}) \| 📬 Letters: (?P<letters>\{L\})`
	DefaultSpecialPattern = `📧 Emails: (?P<emails>\{E\}) \| 📬 Letters: (?P<letters>\{L\})`
)

// Span is a [Start, End) byte range of template text.
type Span struct {
	Start int
	End   int
}

// Layout lists placeholder spans in text order: [emails, letters] for special templates and
// [prefix, emails, letters] for ranged templates.
type Layout []Span

// RangedMatch is the result of matching a ranged template.
type RangedMatch struct {
	Min    int
	Max    int
	Layout Layout
}

// Codec decodes and encodes badge text with a fixed set of patterns.
type Codec struct {
	counter *pattern
	ranged  *pattern
	special *pattern
}

// pattern maps field names to capture groups. A field without a group is located by its
// {E} or {L} marker inside the match.
type pattern struct {
	re     *regexp.Regexp
	groups map[string]int
}

var markers = map[string]string{"emails": "{E}", "letters": "{L}"}

// NewCodec compiles the three patterns. Empty strings select the defaults.
//
// Patterns without the named groups are read positionally: the counter pattern captures
// emails and letters in groups 1 and 2, the ranged pattern captures the prefix, min and max in
// groups 1 to 3, and both template patterns find their placeholders by the {E} and {L} markers.
func NewCodec(counter, ranged, special string) (*Codec, error) {
	c := &Codec{}
	var err error
	if c.counter, err = compile("counter", counter, DefaultCounterPattern,
		[]string{"emails", "letters"}, "emails", "letters"); err != nil {
		return nil, err
	}
	if c.ranged, err = compile("ranged template", ranged, DefaultRangedPattern,
		[]string{"prefix", "min", "max", "emails", "letters"}, "prefix", "min", "max"); err != nil {
		return nil, err
	}
	if c.special, err = compile("special template", special, DefaultSpecialPattern,
		[]string{"emails", "letters"}); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCodec returns a codec using the built-in patterns.
func DefaultCodec() *Codec {
	c, err := NewCodec("", "", "")
	if err != nil {
		panic(fmt.Sprintf("failed to compile default badge patterns: %v", err))
	}
	return c
}

func compile(kind, expr, fallback string, named []string, positional ...string) (*pattern, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = fallback
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s pattern: %w", kind, err)
	}

	p := &pattern{re: re, groups: make(map[string]int, len(named))}
	missing := ""
	for _, name := range named {
		g := re.SubexpIndex(name)
		if g < 0 {
			missing = name
			break
		}
		p.groups[name] = g
	}
	if missing == "" {
		return p, nil
	}

	if re.NumSubexp() < len(positional) {
		return nil, fmt.Errorf("%s pattern is missing named group %q and has %d of %d positional groups",
			kind, missing, re.NumSubexp(), len(positional))
	}
	clear(p.groups)
	for i, name := range positional {
		p.groups[name] = i + 1
	}
	return p, nil
}

// layout returns the spans of names in order. Marker lookups start after the previous span.
func (p *pattern) layout(text string, idx []int, names ...string) (Layout, bool) {
	layout := make(Layout, 0, len(names))
	pos := idx[0]
	for _, name := range names {
		var s Span
		if g, ok := p.groups[name]; ok {
			if idx[2*g] < 0 {
				return nil, false
			}
			s = Span{Start: idx[2*g], End: idx[2*g+1]}
		} else {
			marker := markers[name]
			i := strings.Index(text[pos:idx[1]], marker)
			if marker == "" || i < 0 {
				return nil, false
			}
			s = Span{Start: pos + i, End: pos + i + len(marker)}
		}
		layout = append(layout, s)
		if s.End > pos {
			pos = s.End
		}
	}
	return layout, true
}

func (p *pattern) group(text string, idx []int, name string) string {
	g, ok := p.groups[name]
	if !ok || idx[2*g] < 0 {
		return ""
	}
	return text[idx[2*g]:idx[2*g+1]]
}

// Decode extracts the counters from displayed badge text. ok is false when the text does not
// match the counter pattern at all, which is different from a badge showing zero.
func (c *Codec) Decode(text string) (counters types.Counters, ok bool) {
	idx := c.counter.re.FindStringSubmatchIndex(text)
	if idx == nil {
		return types.Counters{}, false
	}
	return types.Counters{
		Emails:  parseCount(c.counter.group(text, idx, "emails")),
		Letters: parseCount(c.counter.group(text, idx, "letters")),
	}, true
}

// MatchRanged reports whether text is a ranged template and returns its bounds and layout.
func (c *Codec) MatchRanged(text string) (RangedMatch, bool) {
	idx := c.ranged.re.FindStringSubmatchIndex(text)
	if idx == nil {
		return RangedMatch{}, false
	}
	layout, ok := c.ranged.layout(text, idx, "prefix", "emails", "letters")
	if !ok {
		return RangedMatch{}, false
	}
	return RangedMatch{
		Min:    parseCount(c.ranged.group(text, idx, "min")),
		Max:    parseCount(c.ranged.group(text, idx, "max")),
		Layout: layout,
	}, true
}

// SpecialLayout reports whether text is a special template and returns its layout.
func (c *Codec) SpecialLayout(text string) (Layout, bool) {
	idx := c.special.re.FindStringSubmatchIndex(text)
	if idx == nil {
		return nil, false
	}
	return c.special.layout(text, idx, "emails", "letters")
}

// Encode splices counters into a template. Text outside the layout spans is copied verbatim,
// the prefix span is dropped and the emails and letters spans are replaced by decimal values.
// A two-span layout gets an empty prefix at offset 0.
func Encode(templateText string, layout Layout, emails, letters int) (string, error) {
	if len(layout) == 2 {
		layout = append(Layout{{Start: 0, End: 0}}, layout...)
	}
	if len(layout) != 3 {
		return "", fmt.Errorf("badge layout must have 2 or 3 spans, got %d", len(layout))
	}

	replacements := [3]string{"", strconv.Itoa(emails), strconv.Itoa(letters)}

	var sb strings.Builder
	pos := 0
	for i, s := range layout {
		if s.Start < pos || s.End < s.Start || s.End > len(templateText) {
			return "", fmt.Errorf("badge span %d [%d,%d) is out of order or out of range", i, s.Start, s.End)
		}
		sb.WriteString(templateText[pos:s.Start])
		sb.WriteString(replacements[i])
		pos = s.End
	}
	sb.WriteString(templateText[pos:])
	return sb.String(), nil
}

// parseCount returns 0 for anything that is not a non-negative decimal integer.
func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
