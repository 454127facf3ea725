// Package reddit wraps the Reddit read API behind the post and comment
// record shapes the rest of the service consumes.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"subsight/models"
)

const (
	DefaultAPIHost = "https://oauth.reddit.com"

	// The public host serves the same listings without OAuth, at stricter
	// rate limits.
	PublicAPIHost = "https://www.reddit.com"

	tokenURL         = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent = "subsight/0.1"
	defaultTimeout   = 10 * time.Second
)

var apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subsight_reddit_requests_total",
	Help: "The total number of requests sent to the Reddit API",
}, []string{"endpoint", "outcome"})

// Credentials are the Reddit application credentials used for the OAuth2
// client-credentials flow.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// ClientConfig holds configuration for the Reddit API client.
type ClientConfig struct {
	// Host overrides the API base URL, mainly for tests.
	Host string

	UserAgent string

	// Timeout bounds every individual API call.
	Timeout time.Duration

	// Credentials enable the OAuth2 client-credentials flow. When nil the
	// client talks to the host unauthenticated, which tests rely on.
	Credentials *Credentials
}

// Client is a read-only Reddit API client. It is safe for concurrent use.
type Client struct {
	host      string
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

func NewClient(config ClientConfig) *Client {
	host := config.Host
	if host == "" {
		if config.Credentials != nil {
			host = DefaultAPIHost
		} else {
			host = PublicAPIHost
		}
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if config.Credentials != nil {
		conf := &clientcredentials.Config{
			ClientID:     config.Credentials.ClientID,
			ClientSecret: config.Credentials.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		httpClient = conf.Client(context.Background())
		httpClient.Timeout = timeout
	}

	return &Client{
		host:      host,
		userAgent: userAgent,
		timeout:   timeout,
		http:      httpClient,
	}
}

// SearchPosts runs a relevance search for query in the given scope, either a
// subreddit name or "all". Reddit's own ranking is preserved.
func (c *Client) SearchPosts(ctx context.Context, scope string, query string, limit int) ([]models.Post, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("restrict_sr", "on")
	params.Set("raw_json", "1")

	payload, err := c.get(ctx, "search", fmt.Sprintf("/r/%s/search", url.PathEscape(scope)), params)
	if err != nil {
		return nil, err
	}

	return decodePosts(payload)
}

// RecentTitles returns the titles of the newest posts in a subreddit. Only
// titles are retained; the posts themselves are topic-extraction input.
func (c *Client) RecentTitles(ctx context.Context, subreddit string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	payload, err := c.get(ctx, "recent", fmt.Sprintf("/r/%s/new", url.PathEscape(subreddit)), params)
	if err != nil {
		return nil, err
	}

	posts, err := decodePosts(payload)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(posts))
	for _, post := range posts {
		titles = append(titles, post.Title)
	}
	return titles, nil
}

// Comments fetches the comment tree for a submission permalink and flattens
// every expanded branch into a single slice. Unresolved "more" stubs are
// dropped so no pagination is left to the caller. A missing author becomes
// "Unknown".
func (c *Client) Comments(ctx context.Context, permalink string) ([]models.Comment, error) {
	params := url.Values{}
	params.Set("raw_json", "1")

	payload, err := c.get(ctx, "comments", permalink, params)
	if err != nil {
		return nil, err
	}

	// The comments endpoint returns a two-element array: the submission
	// listing followed by the comment tree listing.
	var listings []json.RawMessage
	if err := json.Unmarshal(payload, &listings); err != nil {
		return nil, fmt.Errorf("decode comments response: %w", err)
	}
	if len(listings) < 2 {
		return []models.Comment{}, nil
	}

	var tree thing
	if err := json.Unmarshal(listings[1], &tree); err != nil {
		return nil, fmt.Errorf("decode comment tree: %w", err)
	}

	comments := []models.Comment{}
	if err := flattenComments(tree, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func flattenComments(node thing, out *[]models.Comment) error {
	if node.Kind != "Listing" {
		return nil
	}

	var listing listingData
	if err := json.Unmarshal(node.Data, &listing); err != nil {
		return fmt.Errorf("decode comment listing: %w", err)
	}

	for _, child := range listing.Children {
		if child.Kind != "t1" {
			continue
		}

		var comment commentData
		if err := json.Unmarshal(child.Data, &comment); err != nil {
			return fmt.Errorf("decode comment: %w", err)
		}

		author := comment.Author
		if author == "" {
			author = "Unknown"
		}
		*out = append(*out, models.Comment{
			ID:         comment.ID,
			Author:     author,
			Body:       comment.Body,
			Score:      comment.Score,
			CreatedUTC: comment.CreatedUTC,
		})

		if len(comment.Replies) > 0 && comment.Replies[0] == '{' {
			var replies thing
			if err := json.Unmarshal(comment.Replies, &replies); err != nil {
				return fmt.Errorf("decode replies: %w", err)
			}
			if err := flattenComments(replies, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodePosts(payload []byte) ([]models.Post, error) {
	var root thing
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	var listing listingData
	if err := json.Unmarshal(root.Data, &listing); err != nil {
		return nil, fmt.Errorf("decode listing data: %w", err)
	}

	posts := make([]models.Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child.Kind != "t3" {
			continue
		}
		var post postData
		if err := json.Unmarshal(child.Data, &post); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		posts = append(posts, models.Post{
			ID:          post.ID,
			Title:       post.Title,
			URL:         post.URL,
			Score:       post.Score,
			NumComments: post.NumComments,
			CreatedUTC:  post.CreatedUTC,
			Subreddit:   post.Subreddit,
			Permalink:   post.Permalink,
		})
	}
	return posts, nil
}

// get performs a GET against the API host with the client's timeout and a
// retry on rate limiting.
func (c *Client) get(ctx context.Context, endpoint string, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestURL := c.host + path + "?" + params.Encode()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = c.timeout

	var payload []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			log.WithFields(log.Fields{
				"endpoint": endpoint,
			}).Warn("Reddit rate limit hit, backing off")
			return fmt.Errorf("rate limited: %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
		}

		payload, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		apiRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("reddit %s request: %w", endpoint, err)
	}

	apiRequests.WithLabelValues(endpoint, "success").Inc()
	return payload, nil
}
