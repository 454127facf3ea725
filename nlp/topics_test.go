package nlp_test

import (
	"context"
	"errors"
	"testing"

	"subsight/nlp"

	"github.com/stretchr/testify/assert"
)

type fakeTopicBackend struct {
	labels []string
	err    error
	calls  int
	blob   string
}

func (f *fakeTopicBackend) Topics(ctx context.Context, text string) ([]string, error) {
	f.calls++
	f.blob = text
	return f.labels, f.err
}

func TestExtractTopicsCountsLabels(t *testing.T) {
	backend := &fakeTopicBackend{labels: []string{"AI", "Sports", "AI", "Music", "AI", "Sports"}}
	aggregator := nlp.NewTopicAggregator(backend)

	counts := aggregator.ExtractTopics(context.Background(), []string{"title one", "title two"})

	assert.Equal(t, 1, backend.calls, "one backend call for the whole batch")
	assert.Equal(t, "title one title two", backend.blob)
	assert.Equal(t, 3, counts.Count("AI"))
	assert.Equal(t, []string{"AI", "Sports", "Music"}, counts.Top(10))
}

func TestExtractTopicsTieBreakByFirstAppearance(t *testing.T) {
	backend := &fakeTopicBackend{labels: []string{
		"AI", "AI", "AI", "AI", "AI",
		"Sports", "Sports", "Sports", "Sports", "Sports",
		"Music", "Music",
	}}
	aggregator := nlp.NewTopicAggregator(backend)

	counts := aggregator.ExtractTopics(context.Background(), []string{"titles"})
	assert.Equal(t, []string{"AI", "Sports"}, counts.Top(2))
}

func TestExtractTopicsBackendFailureIsEmpty(t *testing.T) {
	backend := &fakeTopicBackend{err: errors.New("backend down")}
	aggregator := nlp.NewTopicAggregator(backend)

	counts := aggregator.ExtractTopics(context.Background(), []string{"a title"})
	assert.Equal(t, 0, counts.Len())
}

func TestExtractTopicsEmptyBatchSkipsBackend(t *testing.T) {
	backend := &fakeTopicBackend{labels: []string{"AI"}}
	aggregator := nlp.NewTopicAggregator(backend)

	counts := aggregator.ExtractTopics(context.Background(), nil)
	assert.Equal(t, 0, counts.Len())
	assert.Equal(t, 0, backend.calls)
}
