// Package confirm extracts confirmation requests from comment text.
package confirm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

// DefaultPattern matches "u/name 5 5", "u/name 5-5" and "u/name - 5 - 5". Groups are the
// handle, the email count and the letter count.
const DefaultPattern = `u/([a-zA-Z0-9_-]{3,})\s+\\?-?\s*(\d+)(?:\s+|\s*-\s*)(\d+)`

// Parser finds confirmation mentions.
type Parser struct {
	pattern *regexp.Regexp
}

// NewParser compiles pattern, or DefaultPattern when empty. The pattern needs at least three
// capture groups.
func NewParser(pattern string) (*Parser, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile confirmation pattern: %w", err)
	}
	if re.NumSubexp() < 3 {
		return nil, fmt.Errorf("confirmation pattern needs 3 capture groups, has %d", re.NumSubexp())
	}
	return &Parser{pattern: re}, nil
}

// DefaultParser returns a parser for DefaultPattern.
func DefaultParser() *Parser {
	p, err := NewParser("")
	if err != nil {
		panic(fmt.Sprintf("failed to compile default confirmation pattern: %v", err))
	}
	return p
}

// ExtractRequests returns one request per non-overlapping match, in text order. An empty
// result means the comment is not a confirmation.
func (p *Parser) ExtractRequests(body string) []types.ConfirmationRequest {
	matches := p.pattern.FindAllStringSubmatch(body, -1)
	requests := make([]types.ConfirmationRequest, 0, len(matches))
	for _, m := range matches {
		requests = append(requests, types.ConfirmationRequest{
			TargetUser: m[1],
			Emails:     atoi(m[2]),
			Letters:    atoi(m[3]),
		})
	}
	return requests
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
