package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"subsight/models"
)

const DefaultTextRazorEndpoint = "https://api.textrazor.com/"

var textRazorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subsight_textrazor_requests_total",
	Help: "The total number of requests sent to the TextRazor analysis API",
}, []string{"outcome"})

// TextRazorConfig holds configuration for the remote analysis client.
type TextRazorConfig struct {
	APIKey string

	// Endpoint overrides the TextRazor API base URL, mainly for tests.
	Endpoint string

	// Timeout bounds a single analyze call including retries.
	Timeout time.Duration
}

// TextRazor analyzes text with the TextRazor entity and topic extractors.
// It implements both KeywordExtractor and TopicBackend.
type TextRazor struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewTextRazor(config TextRazorConfig) *TextRazor {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultTextRazorEndpoint
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &TextRazor{
		apiKey:   config.APIKey,
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

type textRazorResponse struct {
	Response struct {
		Entities []struct {
			EntityID string `json:"entityId"`
		} `json:"entities"`
		Topics []struct {
			Label string `json:"label"`
		} `json:"topics"`
	} `json:"response"`
	Error string `json:"error"`
}

// Keywords collects all entity identifiers followed by all topic labels from
// one analyze call, deduplicated case-insensitively with first-seen casing.
// If nothing is found for non-empty input the trimmed input text is returned
// as the sole keyword so searching can still proceed.
func (t *TextRazor) Keywords(ctx context.Context, text string) ([]string, error) {
	parsed, err := t.analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	keywords := make([]string, 0, len(parsed.Response.Entities)+len(parsed.Response.Topics))
	for _, entity := range parsed.Response.Entities {
		keywords = append(keywords, entity.EntityID)
	}
	for _, topic := range parsed.Response.Topics {
		keywords = append(keywords, topic.Label)
	}

	keywords = dedupeFold(keywords)
	keywords = fallbackKeywords(keywords, text)

	log.WithFields(log.Fields{
		"keywords": keywords,
	}).Debug("Optimized keywords")

	return keywords, nil
}

// Topics returns the raw topic labels for a text blob, occurrences and all.
// The aggregator is responsible for counting them.
func (t *TextRazor) Topics(ctx context.Context, text string) ([]string, error) {
	parsed, err := t.analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(parsed.Response.Topics))
	for _, topic := range parsed.Response.Topics {
		labels = append(labels, topic.Label)
	}
	return labels, nil
}

func (t *TextRazor) analyze(ctx context.Context, text string) (*textRazorResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("extractors", "entities,topics")
	form.Set("text", text)
	body := form.Encode()

	// Retry transient failures; anything else is permanent.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = t.timeout

	var parsed textRazorResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-TextRazor-Key", t.apiKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("unexpected status %s: %s", resp.Status, payload))
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if parsed.Error != "" {
			return backoff.Permanent(fmt.Errorf("analysis error: %s", parsed.Error))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		textRazorRequests.WithLabelValues("error").Inc()
		log.WithError(err).Error("TextRazor analyze failed")
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	textRazorRequests.WithLabelValues("success").Inc()
	return &parsed, nil
}
