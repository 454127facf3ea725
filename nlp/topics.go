package nlp

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"subsight/models"
)

// TopicAggregator extracts a frequency ranking of topics from a batch of
// post titles. Topic display is best-effort: a backend failure yields an
// empty ranking, never an error.
type TopicAggregator struct {
	backend TopicBackend
}

func NewTopicAggregator(backend TopicBackend) *TopicAggregator {
	return &TopicAggregator{backend: backend}
}

// ExtractTopics joins all titles into one blob, runs the topic backend once
// and tallies the returned labels.
func (a *TopicAggregator) ExtractTopics(ctx context.Context, titles []string) *models.TopicCount {
	counts := models.NewTopicCount()
	if len(titles) == 0 {
		return counts
	}

	labels, err := a.backend.Topics(ctx, strings.Join(titles, " "))
	if err != nil {
		log.WithError(err).Warn("Topic extraction failed, returning empty ranking")
		return counts
	}

	for _, label := range labels {
		counts.Add(label)
	}
	return counts
}
