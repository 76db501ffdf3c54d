package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

type accountData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsSuspended bool   `json:"is_suspended"`
}

func (a accountData) account() types.Account {
	return types.Account{ID: a.ID, Name: a.Name, Fullname: "t2_" + a.ID}
}

// Me returns the authenticated bot account.
func (c *Client) Me(ctx context.Context) (types.Account, error) {
	var me accountData
	if err := c.get(ctx, "/api/v1/me", nil, &me); err != nil {
		return types.Account{}, err
	}
	return me.account(), nil
}

// User looks up an account by name. found is false for unknown and suspended accounts.
func (c *Client) User(ctx context.Context, name string) (account types.Account, found bool, err error) {
	var about struct {
		Data accountData `json:"data"`
	}
	err = c.get(ctx, "/user/"+url.PathEscape(name)+"/about", nil, &about)
	if errors.Is(err, ErrNotFound) {
		return types.Account{}, false, nil
	}
	if err != nil {
		return types.Account{}, false, err
	}
	if about.Data.ID == "" || about.Data.IsSuspended {
		return types.Account{}, false, nil
	}
	return about.Data.account(), true, nil
}

// FetchBadge returns the user's current flair text and css class.
func (c *Client) FetchBadge(ctx context.Context, user string) (types.BadgeState, error) {
	var resp struct {
		Users []struct {
			User     string  `json:"user"`
			Text     *string `json:"flair_text"`
			CSSClass *string `json:"flair_css_class"`
		} `json:"users"`
	}
	query := url.Values{"name": {user}, "limit": {"1"}}
	if err := c.get(ctx, c.subPath("/api/flairlist"), query, &resp); err != nil {
		return types.BadgeState{}, err
	}
	for _, u := range resp.Users {
		if !strings.EqualFold(u.User, user) {
			continue
		}
		var state types.BadgeState
		if u.Text != nil {
			state.Text = *u.Text
		}
		if u.CSSClass != nil {
			state.CategoryID = *u.CSSClass
		}
		return state, nil
	}
	return types.BadgeState{}, nil
}

// SetBadge assigns a flair template and text to user.
func (c *Client) SetBadge(ctx context.Context, user, text, templateID string) error {
	form := url.Values{
		"name":              {user},
		"text":              {text},
		"flair_template_id": {templateID},
	}
	_, err := c.postJSON(ctx, c.subPath("/api/selectflair"), form)
	return err
}

type flairTemplate struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	CSSClass        string `json:"css_class"`
	ModOnly         bool   `json:"mod_only"`
	TextEditable    bool   `json:"text_editable"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
}

// ListBadgeTemplates returns the community's user flair templates in platform order.
func (c *Client) ListBadgeTemplates(ctx context.Context) ([]types.TemplateDescriptor, error) {
	var raw []flairTemplate
	if err := c.get(ctx, c.subPath("/api/user_flair_v2"), nil, &raw); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.templates = make(map[string]flairTemplate, len(raw))
	for _, t := range raw {
		c.templates[t.ID] = t
	}
	c.mu.Unlock()

	out := make([]types.TemplateDescriptor, 0, len(raw))
	for _, t := range raw {
		out = append(out, types.TemplateDescriptor{ID: t.ID, Text: t.Text, CSSClass: t.CSSClass, ModOnly: t.ModOnly})
	}
	return out, nil
}

// UpdateTemplateCategory sets a template's css class. The rest of the template is resent
// unchanged because the endpoint replaces the whole template.
func (c *Client) UpdateTemplateCategory(ctx context.Context, templateID, tag string) error {
	c.mu.Lock()
	t, ok := c.templates[templateID]
	c.mu.Unlock()
	if !ok {
		if _, err := c.ListBadgeTemplates(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		t, ok = c.templates[templateID]
		c.mu.Unlock()
		if !ok {
			return fmt.Errorf("flair template %s: %w", templateID, ErrNotFound)
		}
	}

	form := url.Values{
		"flair_template_id": {t.ID},
		"flair_type":        {"USER_FLAIR"},
		"text":              {t.Text},
		"css_class":         {tag},
		"mod_only":          {fmt.Sprint(t.ModOnly)},
		"text_editable":     {fmt.Sprint(t.TextEditable)},
	}
	if t.BackgroundColor != "" {
		form.Set("background_color", t.BackgroundColor)
	}
	if t.TextColor != "" {
		form.Set("text_color", t.TextColor)
	}
	if err := c.post(ctx, c.subPath("/api/flairtemplate_v2"), form, nil); err != nil {
		return err
	}

	c.mu.Lock()
	t.CSSClass = tag
	c.templates[templateID] = t
	c.mu.Unlock()
	return nil
}

// Moderators returns the names of the community's moderators.
func (c *Client) Moderators(ctx context.Context) ([]string, error) {
	var resp struct {
		Data struct {
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := c.get(ctx, c.subPath("/about/moderators"), nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Data.Children))
	for _, m := range resp.Data.Children {
		names = append(names, m.Name)
	}
	return names, nil
}

// WikiPage returns the markdown of a community wiki page. Missing and restricted pages
// return errors matching ErrNotFound and ErrForbidden.
func (c *Client) WikiPage(ctx context.Context, page string) (string, error) {
	var resp struct {
		Data struct {
			ContentMD string `json:"content_md"`
		} `json:"data"`
	}
	if err := c.get(ctx, c.subPath("/wiki/%s", page), nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.ContentMD, nil
}

// SubredditFullname returns the community's "t5_" fullname.
func (c *Client) SubredditFullname(ctx context.Context) (string, error) {
	var about struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := c.get(ctx, c.subPath("/about"), nil, &about); err != nil {
		return "", err
	}
	return about.Data.Name, nil
}
