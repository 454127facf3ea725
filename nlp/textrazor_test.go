package nlp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subsight/models"
	"subsight/nlp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-TextRazor-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
}

func newExtractor(endpoint string) *nlp.TextRazor {
	return nlp.NewTextRazor(nlp.TextRazorConfig{
		APIKey:   "test-key",
		Endpoint: endpoint,
		Timeout:  2 * time.Second,
	})
}

func TestTextRazorKeywords(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		text     string
		expected []string
	}{
		{
			name: "entities first then topics",
			payload: `{"response": {
				"entities": [{"entityId": "Golang"}, {"entityId": "Concurrency"}],
				"topics": [{"label": "Programming"}]
			}}`,
			text:     "how do goroutines work",
			expected: []string{"Golang", "Concurrency", "Programming"},
		},
		{
			name: "case-insensitive dedup keeps first casing",
			payload: `{"response": {
				"entities": [{"entityId": "Dog"}, {"entityId": "dog"}],
				"topics": [{"label": "Cat"}]
			}}`,
			text:     "dogs and cats",
			expected: []string{"Dog", "Cat"},
		},
		{
			name:     "empty result falls back to trimmed input",
			payload:  `{"response": {"entities": [], "topics": []}}`,
			text:     "  quantum gardening  ",
			expected: []string{"quantum gardening"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := analysisServer(t, tt.payload)
			defer server.Close()

			extractor := newExtractor(server.URL)
			keywords, err := extractor.Keywords(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, keywords)
		})
	}
}

func TestTextRazorKeywordsIdempotent(t *testing.T) {
	server := analysisServer(t, `{"response": {
		"entities": [{"entityId": "AI"}, {"entityId": "ai"}, {"entityId": "Ethics"}],
		"topics": [{"label": "Technology"}, {"label": "technology"}]
	}}`)
	defer server.Close()

	extractor := newExtractor(server.URL)
	first, err := extractor.Keywords(context.Background(), "AI ethics")
	require.NoError(t, err)
	second, err := extractor.Keywords(context.Background(), "AI ethics")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"AI", "Ethics", "Technology"}, first)
}

func TestTextRazorBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := newExtractor(server.URL)
	keywords, err := extractor.Keywords(context.Background(), "anything")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExtraction)
	assert.Nil(t, keywords)
}

func TestTextRazorTopics(t *testing.T) {
	server := analysisServer(t, `{"response": {
		"entities": [{"entityId": "ignored"}],
		"topics": [{"label": "AI"}, {"label": "AI"}, {"label": "Music"}]
	}}`)
	defer server.Close()

	extractor := newExtractor(server.URL)
	labels, err := extractor.Topics(context.Background(), "some titles")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI", "AI", "Music"}, labels)
}
