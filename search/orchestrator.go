// Package search coordinates keyword extraction, the Reddit client, topic
// aggregation and the audience store into the per-request use cases.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"subsight/models"
	"subsight/nlp"
)

const (
	searchLimit = 50
	recentLimit = 100
	topTopics   = 10
)

var searches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subsight_searches_total",
	Help: "The total number of search requests handled, by kind",
}, []string{"kind"})

// PostSearcher is the read side of the external post platform.
type PostSearcher interface {
	SearchPosts(ctx context.Context, scope string, query string, limit int) ([]models.Post, error)
	RecentTitles(ctx context.Context, subreddit string, limit int) ([]string, error)
	Comments(ctx context.Context, permalink string) ([]models.Comment, error)
}

// AudienceStore is CRUD over named audiences and their member subreddits.
type AudienceStore interface {
	CreateAudience(ctx context.Context, name string, subreddits []string) (models.Audience, error)
	GetAudience(ctx context.Context, name string) (models.Audience, error)
	ListAudiences(ctx context.Context) ([]models.Audience, error)
}

// PostArchive persists user-selected posts idempotently.
type PostArchive interface {
	SavePost(ctx context.Context, post models.Post) (bool, error)
}

// Result is the outcome of an unscoped search: the posts plus the distinct
// set of subreddits observed in them.
type Result struct {
	Posts      []models.Post `json:"posts"`
	Subreddits []string      `json:"subreddits"`
}

// Orchestrator ties extractor, search client, aggregator and store together.
// It is stateless across requests.
type Orchestrator struct {
	extractor nlp.KeywordExtractor
	searcher  PostSearcher
	topics    *nlp.TopicAggregator
	audiences AudienceStore
	archive   PostArchive
}

func NewOrchestrator(extractor nlp.KeywordExtractor, searcher PostSearcher, topics *nlp.TopicAggregator, audiences AudienceStore, archive PostArchive) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		searcher:  searcher,
		topics:    topics,
		audiences: audiences,
		archive:   archive,
	}
}

// Search derives keywords from the question and runs one relevance search
// across all of Reddit. This is the only path where an extraction failure
// propagates: without keywords there is nothing to search for.
func (o *Orchestrator) Search(ctx context.Context, question string) (*Result, error) {
	searches.WithLabelValues("unscoped").Inc()

	keywords, err := o.extractor.Keywords(ctx, question)
	if err != nil {
		return nil, err
	}
	query := nlp.JoinKeywords(keywords)

	log.WithFields(log.Fields{
		"question": question,
		"query":    query,
	}).Info("Searching with optimized keywords")

	posts, err := o.searcher.SearchPosts(ctx, "all", query, searchLimit)
	if err != nil {
		log.WithError(err).Warn("Unscoped search failed, returning empty result")
		posts = []models.Post{}
	}
	if posts == nil {
		posts = []models.Post{}
	}

	subreddits := lo.Uniq(lo.Map(posts, func(post models.Post, _ int) string {
		return post.Subreddit
	}))

	return &Result{Posts: posts, Subreddits: subreddits}, nil
}

// SearchAudience fans the raw question text out across the audience's
// subreddits and merges the results ranked by score. The question is
// intentionally not keyword-optimized on this path.
func (o *Orchestrator) SearchAudience(ctx context.Context, question string, audience string) ([]models.Post, error) {
	searches.WithLabelValues("audience").Inc()

	resolved, err := o.audiences.GetAudience(ctx, audience)
	if err != nil {
		return nil, err
	}

	return o.fanOutSearch(ctx, "search_audience", resolved.Subreddits, question), nil
}

// FilterPosts searches every subreddit of the audience for a single topic
// label and merges the results ranked by score.
func (o *Orchestrator) FilterPosts(ctx context.Context, topic string, audience string) ([]models.Post, error) {
	searches.WithLabelValues("filter").Inc()

	resolved, err := o.audiences.GetAudience(ctx, audience)
	if err != nil {
		return nil, err
	}

	return o.fanOutSearch(ctx, "filter_posts", resolved.Subreddits, topic), nil
}

// Topics lists the recent post titles of every subreddit in the audience and
// returns the ten most frequent topic labels across them.
func (o *Orchestrator) Topics(ctx context.Context, audience string) ([]string, error) {
	searches.WithLabelValues("topics").Inc()

	resolved, err := o.audiences.GetAudience(ctx, audience)
	if err != nil {
		return nil, err
	}

	results := fanOut(ctx, "topics", resolved.Subreddits, func(ctx context.Context, subreddit string) ([]string, error) {
		return o.searcher.RecentTitles(ctx, subreddit, recentLimit)
	})

	var titles []string
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		titles = append(titles, result.Value...)
	}

	counts := o.topics.ExtractTopics(ctx, titles)
	return counts.Top(topTopics), nil
}

// Comments fetches the flattened comment tree for a post permalink.
func (o *Orchestrator) Comments(ctx context.Context, permalink string) ([]models.Comment, error) {
	comments, err := o.searcher.Comments(ctx, permalink)
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	return comments, nil
}

// Save archives a post. Returns true when the post was newly saved.
func (o *Orchestrator) Save(ctx context.Context, post models.Post) (bool, error) {
	return o.archive.SavePost(ctx, post)
}

// fanOutSearch runs the same query against every subreddit, merges the
// partial results in scope order and sorts by score descending. The sort is
// stable, so ties keep fan-out order.
func (o *Orchestrator) fanOutSearch(ctx context.Context, operation string, subreddits []string, query string) []models.Post {
	results := fanOut(ctx, operation, subreddits, func(ctx context.Context, subreddit string) ([]models.Post, error) {
		return o.searcher.SearchPosts(ctx, subreddit, query, searchLimit)
	})

	merged := []models.Post{}
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		merged = append(merged, result.Value...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ScoreOrZero() > merged[j].ScoreOrZero()
	})

	return merged
}
