package niche

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"affkit/internal/httpclient"
)

// RedditPost is the slice of a listing entry the analyzer cares about.
type RedditPost struct {
	Title    string `json:"title"`
	Score    int    `json:"score"`
	Comments int    `json:"num_comments"`
	URL      string `json:"url"`
}

// RedditClient fetches subreddit listings from Reddit's public JSON
// endpoints. Unauthenticated access is throttled hard, so requests go
// through a rate limiter and carry a descriptive User-Agent.
type RedditClient struct {
	baseURL string
	http    *httpclient.Client
	limiter *rate.Limiter
}

func NewRedditClient() *RedditClient {
	return &RedditClient{
		baseURL: "https://www.reddit.com",
		http:    httpclient.New(10*time.Second, "affkit-niche-research/1.0"),
		// One request per second keeps us under Reddit's anonymous limit.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// NewRedditClientWithBase targets a custom endpoint, used by tests.
func NewRedditClientWithBase(baseURL string, client *httpclient.Client) *RedditClient {
	return &RedditClient{
		baseURL: baseURL,
		http:    client,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// SubredditHot returns the hot listing for a subreddit.
func (r *RedditClient) SubredditHot(ctx context.Context, subreddit string, limit int) ([]RedditPost, error) {
	if limit <= 0 {
		limit = 25
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data RedditPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.baseURL, subreddit, limit)
	if err := r.http.GetJSON(ctx, url, &listing); err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", subreddit, err)
	}

	posts := make([]RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
