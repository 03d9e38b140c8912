// Package niche scores affiliate niches from free research signals,
// mainly subreddit activity, and matches niches to affiliate programs.
package niche

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// Program is one affiliate program in the catalog.
type Program struct {
	Name       string `json:"name" yaml:"name"`
	Commission string `json:"commission" yaml:"commission"`
	Cookie     string `json:"cookie" yaml:"cookie"`
	URL        string `json:"url" yaml:"url"`
}

// Analysis is the research result for a single niche keyword.
type Analysis struct {
	Niche          string       `json:"niche"`
	Subreddits     []string     `json:"subreddits"`
	RedditActivity []RedditPost `json:"reddit_activity"`
	Score          int          `json:"score"`
	Recommendation string       `json:"recommendation"`
	Programs       []Program    `json:"programs,omitempty"`
}

// categorySubreddits maps a niche category word to the communities
// worth checking for it.
var categorySubreddits = map[string][]string{
	"money":     {"personalfinance", "sidehustle", "beermoney", "passive_income", "entrepreneur"},
	"tech":      {"technology", "software", "SaaS", "startups"},
	"investing": {"investing", "stocks", "cryptocurrency", "wallstreetbets"},
	"business":  {"smallbusiness", "Entrepreneur", "dropship"},
	"marketing": {"marketing", "affiliatemarketing", "SEO", "socialmedia"},
}

var defaultSubreddits = []string{"Entrepreneur", "sidehustle"}

// programKeywords maps a catalog category to the niche keywords that
// select it.
var programKeywords = map[string][]string{
	"hosting":           {"hosting", "website", "blog", "wordpress"},
	"saas_tools":        {"email", "marketing", "funnel", "automation", "tool"},
	"ai_tools":          {"ai", "writing", "content", "copy", "chatgpt"},
	"courses_education": {"learn", "course", "skill", "education", "training"},
	"finance":           {"invest", "money", "trading", "crypto", "stock", "finance"},
	"ecommerce":         {"shop", "store", "ecommerce", "dropship", "sell"},
}

// Analyzer runs niche research against Reddit and a program catalog.
type Analyzer struct {
	Reddit   *RedditClient
	Programs map[string][]Program
	Logger   *slog.Logger
}

func NewAnalyzer(reddit *RedditClient, programs map[string][]Program, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if programs == nil {
		programs = DefaultPrograms()
	}
	return &Analyzer{Reddit: reddit, Programs: programs, Logger: logger}
}

// Analyze scores the niche 0-100 and attaches matching programs. A
// subreddit that fails to fetch is logged and skipped, it does not
// abort the analysis.
func (a *Analyzer) Analyze(ctx context.Context, niche string) (*Analysis, error) {
	result := &Analysis{
		Niche:      niche,
		Subreddits: RelevantSubreddits(niche),
	}

	checked := result.Subreddits
	if len(checked) > 3 {
		checked = checked[:3]
	}
	lower := strings.ToLower(niche)
	for _, sub := range checked {
		posts, err := a.Reddit.SubredditHot(ctx, sub, 10)
		if err != nil {
			a.Logger.Warn("subreddit fetch failed", "subreddit", sub, "error", err)
			continue
		}
		for _, p := range posts {
			if strings.Contains(strings.ToLower(p.Title), lower) {
				result.RedditActivity = append(result.RedditActivity, p)
			}
		}
	}

	result.Score = potentialScore(len(result.RedditActivity), len(result.Subreddits))
	result.Recommendation = recommendation(result.Score)
	result.Programs = a.MatchPrograms(niche)
	return result, nil
}

// RelevantSubreddits picks the communities to check for a niche keyword.
func RelevantSubreddits(niche string) []string {
	lower := strings.ToLower(niche)
	var subs []string
	seen := map[string]bool{}

	categories := make([]string, 0, len(categorySubreddits))
	for c := range categorySubreddits {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		if strings.Contains(lower, category) {
			for _, s := range categorySubreddits[category] {
				if !seen[s] {
					seen[s] = true
					subs = append(subs, s)
				}
			}
		}
	}
	if len(subs) == 0 {
		subs = append(subs, defaultSubreddits...)
	}
	return subs
}

// potentialScore combines reddit presence (up to 40), community
// breadth (15 or 30), and a base 30 for having been researched.
func potentialScore(matchingPosts, subreddits int) int {
	score := matchingPosts * 10
	if score > 40 {
		score = 40
	}
	if subreddits > 2 {
		score += 30
	} else {
		score += 15
	}
	score += 30
	if score > 100 {
		score = 100
	}
	return score
}

func recommendation(score int) string {
	switch {
	case score >= 70:
		return "HIGH POTENTIAL - Strong signals, pursue aggressively"
	case score >= 50:
		return "MODERATE POTENTIAL - Worth testing with content"
	case score >= 30:
		return "LOW POTENTIAL - May need more specific angle"
	default:
		return "RESEARCH MORE - Insufficient data"
	}
}

// MatchPrograms returns catalog programs whose category keywords appear
// in the niche.
func (a *Analyzer) MatchPrograms(niche string) []Program {
	lower := strings.ToLower(niche)
	var out []Program

	categories := make([]string, 0, len(programKeywords))
	for c := range programKeywords {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for _, kw := range programKeywords[category] {
			if strings.Contains(lower, kw) {
				out = append(out, a.Programs[category]...)
				break
			}
		}
	}
	return out
}

// DefaultPrograms is the built-in catalog, overridable from config.
func DefaultPrograms() map[string][]Program {
	return map[string][]Program{
		"hosting": {
			{Name: "Bluehost", Commission: "$65-130/sale", Cookie: "90 days", URL: "https://www.bluehost.com/affiliates"},
			{Name: "Cloudways", Commission: "$50-125/sale", Cookie: "90 days", URL: "https://www.cloudways.com/en/affiliate.php"},
			{Name: "SiteGround", Commission: "$50-100/sale", Cookie: "60 days", URL: "https://www.siteground.com/affiliates"},
		},
		"saas_tools": {
			{Name: "ConvertKit", Commission: "30% recurring", Cookie: "90 days", URL: "https://convertkit.com/affiliates"},
			{Name: "Kajabi", Commission: "30% recurring", Cookie: "30 days", URL: "https://kajabi.com/affiliates"},
			{Name: "ClickFunnels", Commission: "30% recurring", Cookie: "45 days", URL: "https://www.clickfunnels.com/affiliates"},
			{Name: "Systeme.io", Commission: "50% recurring", Cookie: "lifetime", URL: "https://systeme.io/affiliates"},
		},
		"ai_tools": {
			{Name: "Jasper", Commission: "30% recurring", Cookie: "30 days", URL: "https://www.jasper.ai/affiliates"},
			{Name: "Copy.ai", Commission: "45% first year", Cookie: "60 days", URL: "https://www.copy.ai/affiliates"},
			{Name: "Writesonic", Commission: "30% recurring", Cookie: "60 days", URL: "https://writesonic.com/affiliates"},
		},
		"courses_education": {
			{Name: "Skillshare", Commission: "$7/free trial", Cookie: "30 days", URL: "https://www.skillshare.com/affiliates"},
			{Name: "Coursera", Commission: "10-45%", Cookie: "30 days", URL: "https://about.coursera.org/affiliates"},
			{Name: "Teachable", Commission: "30% recurring", Cookie: "90 days", URL: "https://teachable.com/affiliates"},
		},
		"finance": {
			{Name: "Webull", Commission: "$30-150/referral", Cookie: "varies", URL: "https://www.webull.com/activity"},
			{Name: "Coinbase", Commission: "50% of fees 3mo", Cookie: "30 days", URL: "https://www.coinbase.com/affiliates"},
			{Name: "Acorns", Commission: "$10-30/signup", Cookie: "30 days", URL: "https://www.acorns.com/affiliate/"},
		},
		"ecommerce": {
			{Name: "Shopify", Commission: "$150/paid plan", Cookie: "30 days", URL: "https://www.shopify.com/affiliates"},
			{Name: "BigCommerce", Commission: "200% first payment", Cookie: "90 days", URL: "https://www.bigcommerce.com/affiliates/"},
		},
	}
}
