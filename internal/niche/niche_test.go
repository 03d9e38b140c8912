package niche

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"affkit/internal/httpclient"
)

func redditStub(t *testing.T, titles map[string][]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/r/"), "/hot.json")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"children":[`)
		for i, title := range titles[sub] {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"data":{"title":%q,"score":%d,"num_comments":5,"url":"https://reddit.example/%d"}}`, title, 100+i, i)
		}
		fmt.Fprint(w, `]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testAnalyzer(t *testing.T, titles map[string][]string) *Analyzer {
	t.Helper()
	srv := redditStub(t, titles)
	reddit := NewRedditClientWithBase(srv.URL, httpclient.New(5*time.Second, "test"))
	return NewAnalyzer(reddit, nil, nil)
}

func TestRelevantSubreddits(t *testing.T) {
	subs := RelevantSubreddits("make money with tech")
	require.Contains(t, subs, "personalfinance")
	require.Contains(t, subs, "SaaS")

	// Unknown niches fall back to the defaults.
	require.Equal(t, []string{"Entrepreneur", "sidehustle"}, RelevantSubreddits("underwater basket weaving"))
}

func TestAnalyzeScoring(t *testing.T) {
	a := testAnalyzer(t, map[string][]string{
		"personalfinance": {"passive income with money apps", "money market funds", "unrelated"},
		"sidehustle":      {"money on the side"},
		"beermoney":       {"easy money surveys"},
	})

	res, err := a.Analyze(context.Background(), "money")
	require.NoError(t, err)

	// 4 matching posts across the first three subreddits = 40 reddit
	// points, 5 communities = 30 breadth, plus 30 base.
	require.Len(t, res.RedditActivity, 4)
	require.Equal(t, 100, res.Score)
	require.Contains(t, res.Recommendation, "HIGH POTENTIAL")
	// "money" selects the finance catalog.
	require.NotEmpty(t, res.Programs)
	require.Equal(t, "Webull", res.Programs[0].Name)
}

func TestAnalyzeNoActivity(t *testing.T) {
	a := testAnalyzer(t, map[string][]string{})

	res, err := a.Analyze(context.Background(), "underwater basket weaving")
	require.NoError(t, err)
	require.Empty(t, res.RedditActivity)
	// 0 reddit + 15 breadth (two default subs) + 30 base.
	require.Equal(t, 45, res.Score)
	require.Contains(t, res.Recommendation, "LOW POTENTIAL")
}

func TestMatchProgramsMultipleCategories(t *testing.T) {
	a := NewAnalyzer(nil, nil, nil)

	progs := a.MatchPrograms("ai email tools")
	names := map[string]bool{}
	for _, p := range progs {
		names[p.Name] = true
	}
	require.True(t, names["Jasper"])
	require.True(t, names["ConvertKit"])

	require.Empty(t, a.MatchPrograms("gardening"))
}

func TestPotentialScoreCaps(t *testing.T) {
	// Reddit presence caps at 40 no matter how many posts match.
	require.Equal(t, 100, potentialScore(10, 5))
	require.Equal(t, 70, potentialScore(1, 3))
	require.Equal(t, 55, potentialScore(1, 2))
}

func TestSubredditHotParsesListing(t *testing.T) {
	srv := redditStub(t, map[string][]string{"startups": {"a", "b"}})
	reddit := NewRedditClientWithBase(srv.URL, httpclient.New(5*time.Second, "test"))

	posts, err := reddit.SubredditHot(context.Background(), "startups", 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "a", posts[0].Title)
	require.Equal(t, 100, posts[0].Score)
}
