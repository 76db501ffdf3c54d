package types

import "github.com/go-playground/validator/v10"

// NoFlairText is reported as the prior badge text when a member has no badge yet.
const NoFlairText = "No Flair"

// TemplateDescriptor is a badge template as listed by the platform.
type TemplateDescriptor struct {
	ID       string `json:"id" validate:"required"`
	Text     string `json:"text"`
	CSSClass string `json:"css_class"`
	ModOnly  bool   `json:"mod_only"`
}

// BadgeState is the badge currently displayed for a member. The counters live only inside Text.
type BadgeState struct {
	Text       string `json:"flair_text"`
	CategoryID string `json:"flair_css_class"`
}

// Empty reports whether the member has no badge text yet.
func (b BadgeState) Empty() bool {
	return b.Text == ""
}

// Counters holds the two running tallies shown on a badge.
type Counters struct {
	Emails  int `json:"emails"`
	Letters int `json:"letters"`
}

// Total returns emails plus letters.
func (c Counters) Total() int {
	return c.Emails + c.Letters
}

// Add returns the sum of both counter pairs.
func (c Counters) Add(other Counters) Counters {
	return Counters{
		Emails:  c.Emails + other.Emails,
		Letters: c.Letters + other.Letters,
	}
}

// ConfirmationRequest is one "u/name E L" mention found in a comment.
type ConfirmationRequest struct {
	TargetUser string `json:"target_user" validate:"required,min=3"`
	Emails     int    `json:"emails" validate:"gte=0"`
	Letters    int    `json:"letters" validate:"gte=0"`
}

// Increment returns the request's counters.
func (r ConfirmationRequest) Increment() Counters {
	return Counters{Emails: r.Emails, Letters: r.Letters}
}

// Validate validates the ConfirmationRequest using the validator.
func (r *ConfirmationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
