// Package reply turns per-mention results into the text the bot posts under a comment.
package reply

import (
	"regexp"
	"strings"

	"github.com/jonathan/penpal-confirmation-bot/internal/messages"
)

// Kind is the result of handling one mention.
type Kind int

const (
	// Confirmed means the badge was updated.
	Confirmed Kind = iota
	// UserNotFound means the mentioned account does not exist.
	UserNotFound
	// SelfUpdate means the author mentioned themselves.
	SelfUpdate
	// UpdateFailed means the engine could not decode the badge or found no template.
	UpdateFailed
)

// Result is one handled mention.
type Result struct {
	Kind   Kind
	Handle string
	Prior  string
	New    string
}

// Templates are the four reply texts with {mentioned_name}, {old_flair} and {new_flair}
// placeholders.
type Templates struct {
	Confirmation       string
	UserDoesntExist    string
	CantUpdateYourself string
	FlairUpdateFailed  string
}

// DefaultTemplates returns the embedded reply templates.
func DefaultTemplates() Templates {
	return Templates{
		Confirmation:       messages.MustGet(messages.ConfirmationMessage),
		UserDoesntExist:    messages.MustGet(messages.UserDoesntExist),
		CantUpdateYourself: messages.MustGet(messages.CantUpdateYourself),
		FlairUpdateFailed:  messages.MustGet(messages.FlairUpdateFailed),
	}
}

// Composer renders reply fragments.
type Composer struct {
	templates Templates
}

// NewComposer creates a composer for templates.
func NewComposer(templates Templates) *Composer {
	return &Composer{templates: templates}
}

// Fragment renders the reply text for one result.
func (c *Composer) Fragment(r Result) string {
	switch r.Kind {
	case UserNotFound:
		return messages.Format(c.templates.UserDoesntExist, map[string]string{"mentioned_name": r.Handle})
	case SelfUpdate:
		return c.templates.CantUpdateYourself
	case UpdateFailed:
		return messages.Format(c.templates.FlairUpdateFailed, map[string]string{"mentioned_name": r.Handle})
	default:
		return StripEmoji(messages.Format(c.templates.Confirmation, map[string]string{
			"mentioned_name": r.Handle,
			"old_flair":      r.Prior,
			"new_flair":      r.New,
		}))
	}
}

// Join separates fragments with a blank line. It returns "" when there is nothing to post.
func Join(fragments []string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, "\n\n")
}

var emojiRe = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}]+`)

// StripEmoji removes emoticons, pictographs, transport symbols and flags.
func StripEmoji(text string) string {
	return emojiRe.ReplaceAllString(text, "")
}
