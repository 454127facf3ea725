package reddit

import "encoding/json"

// Raw JSON shapes of the Reddit listing API. Everything the API returns is a
// "thing" with a kind tag ("Listing", "t1" comment, "t3" submission, "more")
// and a kind-specific data payload.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Score       *int64  `json:"score"`
	NumComments *int64  `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
}

type commentData struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int64   `json:"score"`
	CreatedUTC float64 `json:"created_utc"`

	// Replies is either a nested listing or the empty string, so it has to
	// stay raw until inspected.
	Replies json.RawMessage `json:"replies"`
}
