package models

import "sort"

// TopicCount tallies topic label occurrences while remembering the order in
// which labels were first seen. Ranking is by count descending; ties keep
// first-seen order.
type TopicCount struct {
	counts map[string]int
	order  []string
}

func NewTopicCount() *TopicCount {
	return &TopicCount{counts: make(map[string]int)}
}

// Add records one occurrence of label.
func (tc *TopicCount) Add(label string) {
	if _, ok := tc.counts[label]; !ok {
		tc.order = append(tc.order, label)
	}
	tc.counts[label]++
}

// Count returns the number of occurrences recorded for label.
func (tc *TopicCount) Count(label string) int {
	return tc.counts[label]
}

// Len returns the number of distinct labels.
func (tc *TopicCount) Len() int {
	return len(tc.order)
}

// Top returns up to n labels ranked by count descending. The sort is stable
// over first-seen order, so equal counts keep their original ordering.
func (tc *TopicCount) Top(n int) []string {
	ranked := make([]string, len(tc.order))
	copy(ranked, tc.order)

	sort.SliceStable(ranked, func(i, j int) bool {
		return tc.counts[ranked[i]] > tc.counts[ranked[j]]
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
