package models

// Post is a single Reddit submission as returned by the search API.
// Score and NumComments are pointers because the upstream payload may omit
// them, and a saved post must round-trip that absence as JSON null.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Score       *int64  `json:"score"`
	NumComments *int64  `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
}

// ScoreOrZero returns the post score, treating a missing score as zero so
// ranking never has to care about the distinction.
func (p Post) ScoreOrZero() int64 {
	if p.Score == nil {
		return 0
	}
	return *p.Score
}

// Comment is a single comment from a submission's flattened comment tree.
type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int64   `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// Audience is a named collection of subreddits to search and aggregate over.
type Audience struct {
	Name       string   `json:"name"`
	Subreddits []string `json:"subreddits"`
}
