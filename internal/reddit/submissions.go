package reddit

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

type submissionData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Permalink   string  `json:"permalink"`
	SubredditID string  `json:"subreddit_id"`
	Stickied    bool    `json:"stickied"`
	Locked      bool    `json:"locked"`
	CreatedUTC  float64 `json:"created_utc"`
}

// UserSubmissions returns a user's newest submissions, newest first.
func (c *Client) UserSubmissions(ctx context.Context, user string, limit int) ([]types.Submission, error) {
	var resp listing[submissionData]
	query := url.Values{"limit": {strconv.Itoa(limit)}, "sort": {"new"}}
	if err := c.get(ctx, "/user/"+url.PathEscape(user)+"/submitted", query, &resp); err != nil {
		return nil, err
	}
	out := make([]types.Submission, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		d := child.Data
		out = append(out, types.Submission{
			ID:          d.ID,
			Fullname:    d.Name,
			Title:       d.Title,
			Permalink:   d.Permalink,
			SubredditID: d.SubredditID,
			Stickied:    d.Stickied,
			Locked:      d.Locked,
			CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return out, nil
}

// SubmitRequest describes a new self post.
type SubmitRequest struct {
	Title       string
	Text        string
	FlairID     string
	SendReplies bool
}

// Submit creates a self post in the community.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (types.Submission, error) {
	form := url.Values{
		"sr":          {c.subreddit},
		"kind":        {"self"},
		"title":       {req.Title},
		"text":        {req.Text},
		"sendreplies": {strconv.FormatBool(req.SendReplies)},
	}
	if req.FlairID != "" {
		form.Set("flair_id", req.FlairID)
	}
	resp, err := c.postJSON(ctx, "/api/submit", form)
	if err != nil {
		return types.Submission{}, err
	}

	var data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if resp.JSON.Data != nil {
		if err := json.Unmarshal(*resp.JSON.Data, &data); err != nil {
			return types.Submission{}, &APIError{Method: "POST", Path: "/api/submit", Message: "failed to decode submission", Cause: err}
		}
	}

	permalink := data.URL
	if u, err := url.Parse(data.URL); err == nil && u.Path != "" {
		permalink = u.Path
	}
	return types.Submission{
		ID:        data.ID,
		Fullname:  data.Name,
		Title:     req.Title,
		Permalink: permalink,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetSticky pins or unpins a submission. Pinned submissions go to the top slot.
func (c *Client) SetSticky(ctx context.Context, fullname string, state bool) error {
	form := url.Values{"id": {fullname}, "state": {strconv.FormatBool(state)}}
	if state {
		form.Set("num", "1")
	}
	_, err := c.postJSON(ctx, "/api/set_subreddit_sticky", form)
	return err
}

// SetSuggestedSort sets the default comment sort of a submission.
func (c *Client) SetSuggestedSort(ctx context.Context, fullname, sort string) error {
	_, err := c.postJSON(ctx, "/api/set_suggested_sort", url.Values{"id": {fullname}, "sort": {sort}})
	return err
}

// Lock locks a submission against new comments.
func (c *Client) Lock(ctx context.Context, fullname string) error {
	return c.post(ctx, "/api/lock", url.Values{"id": {fullname}}, nil)
}
