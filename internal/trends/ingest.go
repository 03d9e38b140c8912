package trends

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	trafilatura "github.com/markusmobius/go-trafilatura"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// skipTTL keeps pages that produced no content out of the fetch loop
// for a while.
const skipTTL = 24 * time.Hour

// Ingestor fetches RSS/Atom feeds and persists extracted article text
// into the trend cache.
type Ingestor struct {
	Client          *http.Client
	Logger          *slog.Logger
	MaxItemsPerFeed int
	parser          *gofeed.Parser
	minInterval     time.Duration
}

// NewIngestor constructs a feed ingestor with sensible defaults.
func NewIngestor(timeoutSec int, maxItemsPerFeed int, logger *slog.Logger) *Ingestor {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	cli := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
	p := gofeed.NewParser()
	p.Client = cli
	return &Ingestor{
		Client:          cli,
		Logger:          logger,
		MaxItemsPerFeed: maxItemsPerFeed,
		parser:          p,
		minInterval:     1500 * time.Millisecond,
	}
}

type fetchTask struct {
	FeedTitle string
	FeedURL   string
	Entry     *gofeed.Item
	Host      string
}

// Ingest fetches all provided feed URLs and stores new items. Returns
// the number of items saved.
func (ing *Ingestor) Ingest(ctx context.Context, db *sql.DB, feeds []string) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("nil db")
	}
	if err := InitSchema(db); err != nil {
		return 0, err
	}

	knownURLs, _ := KnownURLs(ctx, db)

	// Fetch all feeds concurrently.
	type feedResult struct {
		url  string
		host string
		feed *gofeed.Feed
		err  error
	}
	var wgFeeds sync.WaitGroup
	resCh := make(chan feedResult, len(feeds))
	for _, raw := range feeds {
		feedURL := strings.TrimSpace(raw)
		if feedURL == "" {
			continue
		}
		host := ""
		if u, err := neturl.Parse(feedURL); err == nil {
			host = u.Host
		}
		wgFeeds.Add(1)
		go func(feedURL, host string) {
			defer wgFeeds.Done()
			f, err := ing.parser.ParseURLWithContext(feedURL, ctx)
			resCh <- feedResult{url: feedURL, host: host, feed: f, err: err}
		}(feedURL, host)
	}
	go func() { wgFeeds.Wait(); close(resCh) }()

	// Build scrape tasks from the parsed feeds.
	tasks := make([]fetchTask, 0, 128)
	for r := range resCh {
		if r.err != nil || r.feed == nil {
			ing.Logger.Warn("feed fetch failed", "host", r.host, "url", r.url, "error", r.err)
			continue
		}
		skipped := 0
		queued := 0
		for _, it := range r.feed.Items {
			if ing.MaxItemsPerFeed > 0 && queued >= ing.MaxItemsPerFeed {
				break
			}
			if it == nil {
				continue
			}
			if u := strings.TrimSpace(it.Link); u != "" {
				if _, ok := knownURLs[u]; ok {
					skipped++
					continue
				}
			}
			host := r.host
			if u, err := neturl.Parse(it.Link); err == nil && u.Host != "" {
				host = u.Host
			}
			tasks = append(tasks, fetchTask{FeedTitle: r.feed.Title, FeedURL: r.url, Entry: it, Host: host})
			queued++
		}
		ing.Logger.Info("feed parsed", "host", r.host, "items", len(r.feed.Items), "queued", queued, "skipped_existing", skipped)
	}

	// Scrape with one worker per host so no site sees parallel hits.
	tasksByHost := map[string][]fetchTask{}
	for _, t := range tasks {
		h := strings.TrimSpace(t.Host)
		if h == "" {
			h = "__unknown__"
		}
		tasksByHost[h] = append(tasksByHost[h], t)
	}

	var wgScrape sync.WaitGroup
	var mu sync.Mutex
	saved := 0
	for _, list := range tasksByHost {
		items := list
		wgScrape.Add(1)
		go func() {
			defer wgScrape.Done()
			for _, t := range items {
				didFetch, err := ing.processOne(ctx, db, t)
				if err == nil && didFetch {
					mu.Lock()
					saved++
					mu.Unlock()
				}
				if ctx.Err() != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(ing.minInterval):
				}
			}
		}()
	}
	wgScrape.Wait()
	ing.Logger.Info("trend ingest done", "tasks", len(tasks), "saved", saved)
	return saved, nil
}

func (ing *Ingestor) processOne(ctx context.Context, db *sql.DB, t fetchTask) (bool, error) {
	it := t.Entry
	id := firstNonEmpty(it.GUID, it.Link)
	if id == "" {
		return false, nil
	}
	url := it.Link

	if existing, err := GetByID(ctx, db, id); err == nil && existing != nil {
		return false, nil
	}
	if url != "" {
		if byURL, err := GetByURL(ctx, db, url); err == nil && byURL != nil {
			return false, nil
		}
		if skipped, _ := IsURLSkipped(ctx, db, url); skipped {
			return false, nil
		}
	}

	publishedAt := time.Now().UTC()
	if it.PublishedParsed != nil {
		publishedAt = it.PublishedParsed.UTC()
	} else if it.UpdatedParsed != nil {
		publishedAt = it.UpdatedParsed.UTC()
	}

	content := ing.extractMainText(ctx, url)
	if strings.TrimSpace(content) == "" {
		// Fall back to the feed-provided body, stripped to text.
		content = strings.TrimSpace(htmlToText(firstNonEmpty(it.Content, it.Description)))
	}
	if content == "" {
		_ = SkipURL(ctx, db, url, "empty content", skipTTL)
		ing.Logger.Debug("content fetch empty", "url", url)
		return false, nil
	}

	meta := fmt.Sprintf(`{"feed_url":%q,"feed_title":%q}`, t.FeedURL, t.FeedTitle)
	err := UpsertItem(ctx, db, ItemInsert{
		ID:           id,
		FeedTitle:    t.FeedTitle,
		Title:        it.Title,
		Content:      content,
		URL:          url,
		PublishedAt:  publishedAt,
		MetadataJSON: meta,
	})
	if err != nil {
		ing.Logger.Warn("upsert failed", "id", id, "url", url, "error", err)
		return false, err
	}
	return true, nil
}

func (ing *Ingestor) extractMainText(ctx context.Context, url string) string {
	if strings.TrimSpace(url) == "" {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "affkit-trends/1.0")
	resp, err := ing.Client.Do(req)
	if err != nil || resp == nil || resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil || len(bodyBytes) == 0 {
		return ""
	}
	// Very short outputs are likely boilerplate, not the article.
	res, err := trafilatura.Extract(bytes.NewReader(bodyBytes), trafilatura.Options{
		OriginalURL:    func() *neturl.URL { u, _ := neturl.Parse(url); return u }(),
		EnableFallback: true,
		Focus:          trafilatura.Balanced,
	})
	if err == nil && res != nil {
		if txt := strings.TrimSpace(res.ContentText); len(txt) > 100 {
			return txt
		}
	}
	return ""
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// htmlToText converts a small HTML fragment into plain text by walking
// the node tree and joining text nodes with single spaces.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	n, err := html.Parse(strings.NewReader(s))
	if err != nil || n == nil {
		out := tagRe.ReplaceAllString(s, " ")
		return strings.Join(strings.Fields(out), " ")
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
