package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"subsight/models"
	"subsight/search"
	"subsight/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrchestrator struct {
	searchResult *search.Result
	searchErr    error
	posts        []models.Post
	topics       []string
	comments     []models.Comment
	saved        map[string]bool
	audienceErr  error
}

func (s *stubOrchestrator) Search(ctx context.Context, question string) (*search.Result, error) {
	return s.searchResult, s.searchErr
}

func (s *stubOrchestrator) SearchAudience(ctx context.Context, question, audience string) ([]models.Post, error) {
	if s.audienceErr != nil {
		return nil, s.audienceErr
	}
	return s.posts, nil
}

func (s *stubOrchestrator) FilterPosts(ctx context.Context, topic, audience string) ([]models.Post, error) {
	if s.audienceErr != nil {
		return nil, s.audienceErr
	}
	return s.posts, nil
}

func (s *stubOrchestrator) Topics(ctx context.Context, audience string) ([]string, error) {
	if s.audienceErr != nil {
		return nil, s.audienceErr
	}
	return s.topics, nil
}

func (s *stubOrchestrator) Comments(ctx context.Context, permalink string) ([]models.Comment, error) {
	return s.comments, nil
}

func (s *stubOrchestrator) Save(ctx context.Context, post models.Post) (bool, error) {
	if post.ID == "" || post.Title == "" || post.URL == "" {
		return false, fmt.Errorf("%w: id, title and url are required", models.ErrValidation)
	}
	if s.saved[post.ID] {
		return false, nil
	}
	s.saved[post.ID] = true
	return true, nil
}

type stubAudiences struct {
	audiences map[string]models.Audience
}

func (s *stubAudiences) CreateAudience(ctx context.Context, name string, subreddits []string) (models.Audience, error) {
	if name == "" || len(subreddits) == 0 {
		return models.Audience{}, fmt.Errorf("%w: name and subreddits required", models.ErrValidation)
	}
	if _, ok := s.audiences[name]; ok {
		return models.Audience{}, fmt.Errorf("%w: audience %q", models.ErrConflict, name)
	}
	audience := models.Audience{Name: name, Subreddits: subreddits}
	s.audiences[name] = audience
	return audience, nil
}

func (s *stubAudiences) GetAudience(ctx context.Context, name string) (models.Audience, error) {
	audience, ok := s.audiences[name]
	if !ok {
		return models.Audience{}, fmt.Errorf("%w: audience %q", models.ErrNotFound, name)
	}
	return audience, nil
}

func (s *stubAudiences) ListAudiences(ctx context.Context) ([]models.Audience, error) {
	var all []models.Audience
	for _, audience := range s.audiences {
		all = append(all, audience)
	}
	return all, nil
}

func newTestApp(orchestrator *stubOrchestrator, audiences *stubAudiences) *fiber.App {
	if orchestrator.saved == nil {
		orchestrator.saved = map[string]bool{}
	}
	if audiences == nil {
		audiences = &stubAudiences{audiences: map[string]models.Audience{}}
	}
	return server.Server(&server.ServerConfig{
		CORSOrigin:   "http://localhost:3001",
		Orchestrator: orchestrator,
		Audiences:    audiences,
	})
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(payload, &body))
	return body
}

func TestSearchEndpoint(t *testing.T) {
	orchestrator := &stubOrchestrator{searchResult: &search.Result{
		Posts:      []models.Post{{ID: "a", Title: "t", URL: "u", Subreddit: "golang"}},
		Subreddits: []string{"golang"},
	}}
	app := newTestApp(orchestrator, nil)

	resp := postJSON(t, app, "/api/search", map[string]string{"question": "how do goroutines work"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Len(t, body["posts"], 1)
	assert.Equal(t, []any{"golang"}, body["subreddits"])
}

func TestSearchEndpointMissingQuestion(t *testing.T) {
	app := newTestApp(&stubOrchestrator{}, nil)

	resp := postJSON(t, app, "/api/search", map[string]string{"question": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "No question provided.", body["error"])
}

func TestSearchEndpointExtractionFailure(t *testing.T) {
	orchestrator := &stubOrchestrator{
		searchErr: fmt.Errorf("%w: backend down", models.ErrExtraction),
	}
	app := newTestApp(orchestrator, nil)

	resp := postJSON(t, app, "/api/search", map[string]string{"question": "anything"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestCommentsEndpointMissingPermalink(t *testing.T) {
	app := newTestApp(&stubOrchestrator{}, nil)

	resp := postJSON(t, app, "/api/comments", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveEndpoint(t *testing.T) {
	app := newTestApp(&stubOrchestrator{}, nil)
	post := map[string]any{
		"id":    "abc",
		"title": "a post",
		"url":   "https://example.com",
		"score": 12,
	}

	resp := postJSON(t, app, "/api/save", post)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Post saved successfully.", decodeBody(t, resp)["message"])

	resp = postJSON(t, app, "/api/save", post)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post already saved.", decodeBody(t, resp)["message"])
}

func TestSaveEndpointMissingFields(t *testing.T) {
	app := newTestApp(&stubOrchestrator{}, nil)

	resp := postJSON(t, app, "/api/save", map[string]any{"id": "abc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAudienceEndpoints(t *testing.T) {
	audiences := &stubAudiences{audiences: map[string]models.Audience{}}
	app := newTestApp(&stubOrchestrator{}, audiences)

	resp := postJSON(t, app, "/api/audiences", map[string]any{
		"name":       "tech",
		"subreddits": []string{"golang", "rust"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate name is a 400.
	resp = postJSON(t, app, "/api/audiences", map[string]any{
		"name":       "tech",
		"subreddits": []string{"python"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Empty subreddit list is a 400.
	resp = postJSON(t, app, "/api/audiences", map[string]any{
		"name":       "empty",
		"subreddits": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/audiences", nil)
	getResp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	body := decodeBody(t, getResp)
	assert.Len(t, body["audiences"], 1)
}

func TestSearchAudienceEndpointUnknownAudience(t *testing.T) {
	orchestrator := &stubOrchestrator{
		audienceErr: fmt.Errorf("%w: audience %q", models.ErrNotFound, "ghost"),
	}
	app := newTestApp(orchestrator, nil)

	resp := postJSON(t, app, "/api/search_audience", map[string]string{
		"question": "anything",
		"audience": "ghost",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchAudienceEndpoint(t *testing.T) {
	orchestrator := &stubOrchestrator{posts: []models.Post{{ID: "a", Title: "t", URL: "u"}}}
	app := newTestApp(orchestrator, nil)

	resp := postJSON(t, app, "/api/search_audience", map[string]string{
		"question": "anything",
		"audience": "tech",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Len(t, body["posts"], 1)
	assert.Equal(t, []any{}, body["topics"], "topics come from /api/get_topics")
}

func TestGetTopicsEndpoint(t *testing.T) {
	orchestrator := &stubOrchestrator{topics: []string{"AI", "Music"}}
	app := newTestApp(orchestrator, nil)

	resp := postJSON(t, app, "/api/get_topics", map[string]string{"audience": "tech"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"AI", "Music"}, decodeBody(t, resp)["topics"])

	resp = postJSON(t, app, "/api/get_topics", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFilterPostsEndpoint(t *testing.T) {
	orchestrator := &stubOrchestrator{posts: []models.Post{{ID: "a", Title: "t", URL: "u"}}}
	app := newTestApp(orchestrator, nil)

	resp := postJSON(t, app, "/api/filter_posts", map[string]string{
		"topic":    "AI",
		"audience": "tech",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["posts"], 1)

	resp = postJSON(t, app, "/api/filter_posts", map[string]string{"topic": "AI"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
