package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient serves the token endpoint and hands every other request to api.
func newTestClient(t *testing.T, api http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var tokens int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokens, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("username") != "confirmbot" {
			_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		api(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	creds := Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "confirmbot",
		Password:     "hunter2",
		UserAgent:    "test-agent",
	}
	client := New(creds, "penpals", &Options{BaseURL: server.URL, AuthURL: server.URL + "/api/v1/access_token"})
	return client, &tokens
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_TokenIsCached(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.URL.Query().Get("raw_json"))
		writeJSON(t, w, map[string]any{"id": "abc", "name": "confirmbot"})
	})

	ctx := context.Background()
	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "confirmbot", me.Name)
	assert.Equal(t, "t2_abc", me.Fullname)

	_, err = client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(tokens))
}

func TestClient_TokenRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API should not be called without a token")
	})
	client.creds.Username = "someone-else"

	_, err := client.Me(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid_grant")
}

func TestClient_User(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/alice/about":
			writeJSON(t, w, map[string]any{"data": map[string]any{"id": "a1", "name": "alice"}})
		case "/user/banned/about":
			writeJSON(t, w, map[string]any{"data": map[string]any{"name": "banned", "is_suspended": true}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	account, found, err := client.User(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "t2_a1", account.Fullname)

	_, found, err = client.User(ctx, "banned")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = client.User(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_FetchBadge(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/penpals/api/flairlist", r.URL.Path)
		switch r.URL.Query().Get("name") {
		case "Alice":
			writeJSON(t, w, map[string]any{"users": []map[string]any{
				{"user": "alice", "flair_text": "0-49:📧 Emails: 3 | 📬 Letters: 1", "flair_css_class": nil},
			}})
		default:
			writeJSON(t, w, map[string]any{"users": []map[string]any{}})
		}
	})
	ctx := context.Background()

	state, err := client.FetchBadge(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "0-49:📧 Emails: 3 | 📬 Letters: 1", state.Text)
	assert.Empty(t, state.CategoryID)

	state, err = client.FetchBadge(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestClient_SetBadge(t *testing.T) {
	var form map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/penpals/api/selectflair", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		writeJSON(t, w, map[string]any{"json": map[string]any{"errors": []any{}}})
	})

	err := client.SetBadge(context.Background(), "alice", "📧 Emails: 4 | 📬 Letters: 1", "tmpl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, form["name"])
	assert.Equal(t, []string{"tmpl-1"}, form["flair_template_id"])
	assert.Equal(t, []string{"json"}, form["api_type"])
}

func TestClient_SetBadge_ReportedError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"json": map[string]any{
			"errors": [][]any{{"BAD_FLAIR_TARGET", "not a valid user", "name"}},
		}})
	})

	err := client.SetBadge(context.Background(), "alice", "x", "tmpl-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_FLAIR_TARGET")
}

func TestClient_UpdateTemplateCategory(t *testing.T) {
	var posted map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/penpals/api/user_flair_v2":
			writeJSON(t, w, []map[string]any{
				{"id": "sp-1", "text": "Supporter 📧 Emails: {E} | 📬 Letters: {L}", "css_class": "", "mod_only": true, "text_editable": true},
			})
		case "/r/penpals/api/flairtemplate_v2":
			require.NoError(t, r.ParseForm())
			posted = r.PostForm
			writeJSON(t, w, map[string]any{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	descriptors, err := client.ListBadgeTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.True(t, descriptors[0].ModOnly)

	require.NoError(t, client.UpdateTemplateCategory(ctx, "sp-1", "sp-1"))
	assert.Equal(t, []string{"sp-1"}, posted["css_class"])
	assert.Equal(t, []string{"Supporter 📧 Emails: {E} | 📬 Letters: {L}"}, posted["text"])
	assert.Equal(t, []string{"true"}, posted["mod_only"])

	err = client.UpdateTemplateCategory(ctx, "missing", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_WikiPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/penpals/wiki/confirmation-bot/confirmation_message":
			writeJSON(t, w, map[string]any{"data": map[string]any{"content_md": "hello {mentioned_name}"}})
		case "/r/penpals/wiki/confirmation-bot/private":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	content, err := client.WikiPage(ctx, "confirmation-bot/confirmation_message")
	require.NoError(t, err)
	assert.Equal(t, "hello {mentioned_name}", content)

	_, err = client.WikiPage(ctx, "confirmation-bot/private")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = client.WikiPage(ctx, "confirmation-bot/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestClient_NewComments(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/penpals/comments", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		writeJSON(t, w, map[string]any{"data": map[string]any{"children": []map[string]any{
			{"kind": "t1", "data": map[string]any{
				"id": "c1", "name": "t1_c1", "body": "u/bob 1 2", "author": "alice",
				"author_fullname": "t2_a1", "link_author": "confirmbot", "link_id": "t3_p1",
				"parent_id": "t3_p1", "banned_by": nil,
			}},
			{"kind": "t1", "data": map[string]any{
				"id": "c2", "name": "t1_c2", "parent_id": "t1_c1", "link_id": "t3_p1", "banned_by": true,
			}},
			{"kind": "more", "data": map[string]any{"id": "m1"}},
		}}})
	})

	comments, err := client.NewComments(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.True(t, comments[0].IsRoot())
	assert.Empty(t, comments[0].BannedBy)
	assert.False(t, comments[1].IsRoot())
	assert.Equal(t, "true", comments[1].BannedBy)
}

func TestClient_InboxRoundTrip(t *testing.T) {
	var readIDs, compose string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/message/unread":
			writeJSON(t, w, map[string]any{"data": map[string]any{"children": []map[string]any{
				{"kind": "t4", "data": map[string]any{"id": "m1", "name": "t4_m1", "author": "modperson", "subject": "reload", "body": "reload"}},
				{"kind": "t1", "data": map[string]any{"id": "c9", "name": "t1_c9", "author": "alice", "body": "u/confirmbot"}},
			}}})
		case "/api/read_message":
			require.NoError(t, r.ParseForm())
			readIDs = r.PostForm.Get("id")
		case "/api/compose":
			require.NoError(t, r.ParseForm())
			compose = r.PostForm.Get("to")
			writeJSON(t, w, map[string]any{"json": map[string]any{"errors": []any{}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	messages, err := client.UnreadMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.False(t, messages[0].WasComment)
	assert.True(t, messages[1].WasComment)

	require.NoError(t, client.MarkRead(ctx, "t4_m1", "t1_c9"))
	assert.Equal(t, "t4_m1,t1_c9", readIDs)
	require.NoError(t, client.MarkRead(ctx))

	require.NoError(t, client.MessageModerators(ctx, "subject", "body"))
	assert.Equal(t, "/r/penpals", compose)
}

func TestClient_Submit(t *testing.T) {
	var form map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/submit", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		writeJSON(t, w, map[string]any{"json": map[string]any{
			"errors": []any{},
			"data": map[string]any{
				"id": "p2", "name": "t3_p2",
				"url": "https://www.reddit.com/r/penpals/comments/p2/october_2026_confirmation_thread/",
			},
		}})
	})

	post, err := client.Submit(context.Background(), SubmitRequest{Title: "October 2026 Confirmation Thread", Text: "body", FlairID: "flair-1"})
	require.NoError(t, err)
	assert.Equal(t, "t3_p2", post.Fullname)
	assert.Equal(t, "/r/penpals/comments/p2/october_2026_confirmation_thread/", post.Permalink)
	assert.Equal(t, []string{"false"}, form["sendreplies"])
	assert.Equal(t, []string{"flair-1"}, form["flair_id"])
	assert.Equal(t, []string{"self"}, form["kind"])
}

func TestClient_UserSubmissions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/user/confirmbot/submitted"))
		writeJSON(t, w, map[string]any{"data": map[string]any{"children": []map[string]any{
			{"kind": "t3", "data": map[string]any{"id": "p1", "name": "t3_p1", "title": "September", "stickied": true, "created_utc": 1788000000.0}},
		}}})
	})

	posts, err := client.UserSubmissions(context.Background(), "confirmbot", 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].Stickied)
	assert.Equal(t, int64(1788000000), posts[0].CreatedAt.Unix())
}

func TestAPIError_Is(t *testing.T) {
	err := &APIError{Method: "GET", Path: "/x", StatusCode: http.StatusNotFound, Message: "HTTP status 404"}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "GET /x")
}
