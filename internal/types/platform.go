package types

import "time"

// Account identifies a member of the community.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Fullname string `json:"fullname"`
}

// Comment is a comment left on a community thread.
type Comment struct {
	ID             string `json:"id"`
	Fullname       string `json:"name"`
	Body           string `json:"body"`
	Author         string `json:"author"`
	AuthorFullname string `json:"author_fullname"`
	LinkAuthor     string `json:"link_author"`
	LinkID         string `json:"link_id"`
	ParentID       string `json:"parent_id"`
	Permalink      string `json:"permalink"`
	Saved          bool   `json:"saved"`
	Removed        bool   `json:"removed"`
	BannedBy       string `json:"banned_by"`
}

// IsRoot reports whether the comment is a direct reply to its thread.
func (c Comment) IsRoot() bool {
	return c.ParentID == c.LinkID
}

// InboxMessage is a private message in the bot's inbox.
type InboxMessage struct {
	ID       string `json:"id"`
	Fullname string `json:"name"`
	Author   string `json:"author"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	// WasComment is set for comment replies and mentions delivered to the inbox.
	WasComment bool `json:"was_comment"`
}

// Submission is a thread posted to the community.
type Submission struct {
	ID          string    `json:"id"`
	Fullname    string    `json:"name"`
	Title       string    `json:"title"`
	Permalink   string    `json:"permalink"`
	SubredditID string    `json:"subreddit_id"`
	Stickied    bool      `json:"stickied"`
	Locked      bool      `json:"locked"`
	CreatedAt   time.Time `json:"-"`
}
