package db

import (
	"time"

	"github.com/google/uuid"
)

// Ledger outcomes. They mirror the reply a mention received.
const (
	OutcomeConfirmed    = "confirmed"
	OutcomeUserNotFound = "user_not_found"
	OutcomeSelfUpdate   = "self_update"
	OutcomeFailed       = "failed"
)

// FlairUpdate is one handled mention.
type FlairUpdate struct {
	ID         uuid.UUID `json:"id"`
	Subreddit  string    `json:"subreddit"`
	CommentID  string    `json:"comment_id"`
	Author     string    `json:"author"`
	TargetUser string    `json:"target_user"`
	Emails     int       `json:"emails"`
	Letters    int       `json:"letters"`
	Outcome    string    `json:"outcome"`
	OldFlair   string    `json:"old_flair"`
	NewFlair   string    `json:"new_flair"`
	TemplateID string    `json:"template_id"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
