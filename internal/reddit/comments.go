package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

type commentData struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Body           string `json:"body"`
	Author         string `json:"author"`
	AuthorFullname string `json:"author_fullname"`
	LinkAuthor     string `json:"link_author"`
	LinkID         string `json:"link_id"`
	ParentID       string `json:"parent_id"`
	Permalink      string `json:"permalink"`
	Saved          bool   `json:"saved"`
	Removed        bool   `json:"removed"`
	BannedBy       any    `json:"banned_by"`
}

func (d commentData) comment() types.Comment {
	c := types.Comment{
		ID:             d.ID,
		Fullname:       d.Name,
		Body:           d.Body,
		Author:         d.Author,
		AuthorFullname: d.AuthorFullname,
		LinkAuthor:     d.LinkAuthor,
		LinkID:         d.LinkID,
		ParentID:       d.ParentID,
		Permalink:      d.Permalink,
		Saved:          d.Saved,
		Removed:        d.Removed,
	}
	switch v := d.BannedBy.(type) {
	case nil:
	case string:
		c.BannedBy = v
	default:
		c.BannedBy = fmt.Sprint(v)
	}
	return c
}

// NewComments returns the newest comments in the community, newest first.
func (c *Client) NewComments(ctx context.Context, limit int) ([]types.Comment, error) {
	var resp listing[commentData]
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, c.subPath("/comments"), query, &resp); err != nil {
		return nil, err
	}
	out := make([]types.Comment, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		out = append(out, child.Data.comment())
	}
	return out, nil
}

// Reply posts text as a reply to a comment or private message.
func (c *Client) Reply(ctx context.Context, parentFullname, text string) error {
	_, err := c.postJSON(ctx, "/api/comment", url.Values{"thing_id": {parentFullname}, "text": {text}})
	return err
}

// Save marks a thing as saved by the bot.
func (c *Client) Save(ctx context.Context, fullname string) error {
	return c.post(ctx, "/api/save", url.Values{"id": {fullname}}, nil)
}

type messageData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Author     string `json:"author"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	WasComment bool   `json:"was_comment"`
}

// UnreadMessages returns unread inbox items.
func (c *Client) UnreadMessages(ctx context.Context) ([]types.InboxMessage, error) {
	var resp listing[messageData]
	if err := c.get(ctx, "/message/unread", url.Values{"limit": {"100"}}, &resp); err != nil {
		return nil, err
	}
	out := make([]types.InboxMessage, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		d := child.Data
		out = append(out, types.InboxMessage{
			ID:         d.ID,
			Fullname:   d.Name,
			Author:     d.Author,
			Subject:    d.Subject,
			Body:       d.Body,
			WasComment: d.WasComment || child.Kind == "t1",
		})
	}
	return out, nil
}

// MarkRead marks inbox items as read.
func (c *Client) MarkRead(ctx context.Context, fullnames ...string) error {
	if len(fullnames) == 0 {
		return nil
	}
	return c.post(ctx, "/api/read_message", url.Values{"id": {strings.Join(fullnames, ",")}}, nil)
}

// MessageModerators sends a private message to the community's moderators.
func (c *Client) MessageModerators(ctx context.Context, subject, body string) error {
	form := url.Values{
		"to":      {"/r/" + c.subreddit},
		"subject": {subject},
		"text":    {body},
	}
	_, err := c.postJSON(ctx, "/api/compose", form)
	return err
}
