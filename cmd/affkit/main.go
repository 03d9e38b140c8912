package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"affkit/internal/brief"
	"affkit/internal/config"
	"affkit/internal/niche"
	"affkit/internal/perfdb"
	"affkit/internal/queue"
	"affkit/internal/server"
	"affkit/internal/setup"
	"affkit/internal/trackdb"
	"affkit/internal/trends"
	"affkit/internal/tui"
	"affkit/internal/version"
	"affkit/internal/web"
)

func main() {
	app := &cli.Command{
		Name:  "affkit",
		Usage: "Affiliate link tracking, content performance, and niche research",
		Commands: []*cli.Command{
			linkCommand(),
			clickCommand(),
			convertCommand(),
			statsCommand(),
			revenueCommand(),
			campaignCommand(),
			perfCommand(),
			recommendCommand(),
			abtestCommand(),
			queueCommand(),
			nicheCommand(),
			trendsCommand(),
			serveCommand(),
			briefCommand(),
			{
				Name:  "dashboard",
				Usage: "Browse links and revenue in the terminal",
				Action: func(ctx context.Context, c *cli.Command) error {
					return tui.Run(ctx)
				},
			},
			{
				Name:  "server",
				Usage: "Run MCP server on stdio",
				Action: func(ctx context.Context, c *cli.Command) error {
					return server.Run(ctx)
				},
			},
			{
				Name:  "setup",
				Usage: "Set up affkit's configuration",
				Action: func(ctx context.Context, c *cli.Command) error {
					return setup.Run(ctx)
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Println(version.GetVersion())
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openTracker opens the tracker database and ensures its schema,
// including the shared post queue table.
func openTracker() (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return cfg, nil, err
	}
	db, err := trackdb.Open(cfg.TrackerDBPath())
	if err != nil {
		return cfg, nil, err
	}
	if err := trackdb.InitSchema(db); err != nil {
		db.Close()
		return cfg, nil, err
	}
	if err := queue.InitSchema(db); err != nil {
		db.Close()
		return cfg, nil, err
	}
	return cfg, db, nil
}

func openPerf() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	db, err := perfdb.Open(cfg.PerfDBPath())
	if err != nil {
		return nil, err
	}
	if err := perfdb.InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openTrends() (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return cfg, nil, err
	}
	db, err := trends.Open(cfg.TrendsDBPath())
	if err != nil {
		return cfg, nil, err
	}
	if err := trends.InitSchema(db); err != nil {
		db.Close()
		return cfg, nil, err
	}
	return cfg, db, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Manage tracked affiliate links",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Track a new affiliate link",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Affiliate URL", Required: true},
					&cli.StringFlag{Name: "product", Usage: "Product name", Required: true},
					&cli.StringFlag{Name: "program", Usage: "Affiliate program"},
					&cli.StringFlag{Name: "commission", Usage: "Commission terms, e.g. '30% recurring'"},
					&cli.StringFlag{Name: "notes", Usage: "Free-form notes"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					link, err := trackdb.AddLink(ctx, db, c.String("url"), c.String("product"),
						c.String("program"), c.String("commission"), c.String("notes"))
					if err != nil {
						return err
					}
					fmt.Printf("Tracking %s\n", link.ProductName)
					fmt.Printf("Short code: %s\n", link.ShortCode)
					fmt.Printf("Redirect:   /r/%s\n", link.ShortCode)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List tracked links with click and revenue totals",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum rows", Value: 50},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					links, err := trackdb.ListLinks(ctx, db, c.Int("limit"))
					if err != nil {
						return err
					}
					if len(links) == 0 {
						fmt.Println("No links tracked yet. Add one with: affkit link add")
						return nil
					}
					fmt.Printf("%-10s %-30s %7s %6s %10s\n", "CODE", "PRODUCT", "CLICKS", "CONV", "REVENUE")
					for _, l := range links {
						fmt.Printf("%-10s %-30s %7d %6d %10.2f\n",
							l.ShortCode, clip(l.ProductName, 30), l.TotalClicks, l.TotalConversions, l.TotalRevenue)
					}
					return nil
				},
			},
			{
				Name:  "clicks",
				Usage: "Show recent clicks for a link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "code", UsageText: "short code"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "Time window in days", Value: 30},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					link, err := trackdb.GetLinkByCode(ctx, db, c.StringArg("code"))
					if err != nil {
						return err
					}
					clicks, err := trackdb.ListClicks(ctx, db, link.ID, c.Int("days"))
					if err != nil {
						return err
					}
					if len(clicks) == 0 {
						fmt.Println("No clicks in window.")
						return nil
					}
					for _, cl := range clicks {
						fmt.Printf("%s  %-10s %-12s %s\n",
							cl.ClickedAt.Format("2006-01-02 15:04"),
							cl.Platform.String, cl.Source.String, cl.Campaign.String)
					}
					return nil
				},
			},
			{
				Name:  "conversions",
				Usage: "Show recent conversions for a link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "code", UsageText: "short code"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "Time window in days", Value: 30},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					link, err := trackdb.GetLinkByCode(ctx, db, c.StringArg("code"))
					if err != nil {
						return err
					}
					convs, err := trackdb.ListConversions(ctx, db, link.ID, c.Int("days"))
					if err != nil {
						return err
					}
					if len(convs) == 0 {
						fmt.Println("No conversions in window.")
						return nil
					}
					for _, cv := range convs {
						kind := "one-time"
						if cv.IsRecurring {
							kind = "recurring"
						}
						fmt.Printf("%s  $%.2f  %-9s %s\n",
							cv.ConvertedAt.Format("2006-01-02 15:04"), cv.Amount, kind, cv.Notes.String)
					}
					return nil
				},
			},
		},
	}
}

func clickCommand() *cli.Command {
	return &cli.Command{
		Name:  "click",
		Usage: "Record a click on a tracked link",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "code", UsageText: "short code"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Usage: "Traffic source, e.g. bio, story"},
			&cli.StringFlag{Name: "platform", Usage: "Platform, e.g. tiktok, youtube"},
			&cli.StringFlag{Name: "campaign", Usage: "Campaign tag"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_, db, err := openTracker()
			if err != nil {
				return err
			}
			defer db.Close()
			link, err := trackdb.RecordClick(ctx, db, c.StringArg("code"),
				c.String("source"), c.String("platform"), c.String("campaign"))
			if err != nil {
				return err
			}
			fmt.Printf("Click recorded for %s\n", link.ProductName)
			return nil
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Record a conversion (sale) on a tracked link",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "code", UsageText: "short code"},
			&cli.StringArg{Name: "amount", UsageText: "commission amount in dollars"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "recurring", Usage: "Commission recurs monthly"},
			&cli.StringFlag{Name: "notes", Usage: "Free-form notes"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			amount, err := strconv.ParseFloat(strings.TrimPrefix(c.StringArg("amount"), "$"), 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive dollar value")
			}
			_, db, err := openTracker()
			if err != nil {
				return err
			}
			defer db.Close()
			link, err := trackdb.RecordConversion(ctx, db, c.StringArg("code"), amount,
				c.Bool("recurring"), c.String("notes"))
			if err != nil {
				return err
			}
			fmt.Printf("💰 $%.2f conversion recorded for %s\n", amount, link.ProductName)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show the revenue dashboard",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Usage: "Time window in days", Value: 30},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_, db, err := openTracker()
			if err != nil {
				return err
			}
			defer db.Close()
			stats, err := trackdb.GetDashboardStats(ctx, db, c.Int("days"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(stats)
			}
			fmt.Printf("Last %d days\n", stats.PeriodDays)
			fmt.Printf("  Revenue:     $%.2f\n", stats.TotalRevenue)
			fmt.Printf("  Clicks:      %d\n", stats.TotalClicks)
			fmt.Printf("  Conversions: %d\n", stats.TotalConversions)
			fmt.Printf("  Conv. rate:  %.1f%%\n", stats.ConversionRate)
			if len(stats.TopLinks) > 0 {
				fmt.Println("  Top links:")
				for _, l := range stats.TopLinks {
					fmt.Printf("    %-10s %-25s $%.2f\n", l.ShortCode, clip(l.ProductName, 25), l.Revenue)
				}
			}
			return nil
		},
	}
}

func revenueCommand() *cli.Command {
	return &cli.Command{
		Name:  "revenue",
		Usage: "Project revenue against the weekly and monthly targets",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, db, err := openTracker()
			if err != nil {
				return err
			}
			defer db.Close()
			p, err := trackdb.ProjectRevenue(ctx, db, cfg.Targets.Weekly, cfg.Targets.Monthly)
			if err != nil {
				return err
			}
			fmt.Printf("Last 7 days:  $%.2f of $%.0f weekly target (%.1f%%)\n", p.Last7Days, p.WeeklyTarget, p.WeeklyProgressPercent)
			fmt.Printf("Last 30 days: $%.2f of $%.0f monthly target\n", p.Last30Days, p.MonthlyTarget)
			fmt.Printf("Daily average: $%.2f (7d) / $%.2f (30d)\n", p.DailyAverage7d, p.DailyAverage30d)
			fmt.Printf("Projected month: $%.2f on the 7-day trend\n", p.ProjectedMonthly7d)
			return nil
		},
	}
}

func campaignCommand() *cli.Command {
	return &cli.Command{
		Name:  "campaign",
		Usage: "Group clicks under named campaigns",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a campaign; tag clicks with its name via --campaign",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name", UsageText: "campaign name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "platform", Usage: "Platform the campaign runs on"},
					&cli.FloatFlag{Name: "budget", Usage: "Budget in dollars"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					cp, err := trackdb.AddCampaign(ctx, db, c.StringArg("name"), c.String("platform"), c.Float("budget"), nil, nil)
					if err != nil {
						return err
					}
					fmt.Printf("Campaign %d created: %s\n", cp.ID, cp.Name)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List campaigns with click counts",
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					camps, err := trackdb.ListCampaigns(ctx, db)
					if err != nil {
						return err
					}
					if len(camps) == 0 {
						fmt.Println("No campaigns yet.")
						return nil
					}
					for _, cp := range camps {
						fmt.Printf("%3d  %-20s %-10s %-7s %6d clicks\n",
							cp.ID, clip(cp.Name, 20), cp.Platform.String, cp.Status, cp.Clicks)
					}
					return nil
				},
			},
			{
				Name:  "end",
				Usage: "Mark a campaign as ended",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "campaign id"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := strconv.ParseInt(c.StringArg("id"), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid campaign id")
					}
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					if err := trackdb.SetCampaignStatus(ctx, db, id, "ended"); err != nil {
						return err
					}
					fmt.Println("Campaign ended.")
					return nil
				},
			},
		},
	}
}

func perfCommand() *cli.Command {
	return &cli.Command{
		Name:  "perf",
		Usage: "Track content performance and learn what works",
		Commands: []*cli.Command{
			{
				Name:  "record",
				Usage: "Register a posted piece of content",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Content id, e.g. tiktok-20260825-01", Required: true},
					&cli.StringFlag{Name: "platform", Usage: "Platform", Required: true},
					&cli.StringFlag{Name: "type", Usage: "Content type, e.g. video, post"},
					&cli.StringFlag{Name: "hook", Usage: "Hook style, e.g. tutorial, storytime"},
					&cli.StringFlag{Name: "topic", Usage: "Topic"},
					&cli.StringFlag{Name: "product", Usage: "Promoted product"},
					&cli.StringFlag{Name: "posted", Usage: "Post time (RFC 3339), default now"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					postedAt := time.Now()
					if v := c.String("posted"); v != "" {
						postedAt, err = time.Parse(time.RFC3339, v)
						if err != nil {
							return fmt.Errorf("invalid --posted: %w", err)
						}
					}
					rec := perfdb.ContentRecord{
						ContentID:   c.String("id"),
						Platform:    c.String("platform"),
						ContentType: c.String("type"),
						HookStyle:   c.String("hook"),
						Topic:       c.String("topic"),
						Product:     c.String("product"),
						PostedAt:    postedAt,
					}
					if err := perfdb.RecordContent(ctx, db, rec); err != nil {
						return err
					}
					fmt.Printf("Recorded %s\n", rec.ContentID)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update engagement metrics for a piece of content",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Content id", Required: true},
					&cli.IntFlag{Name: "views", Value: -1},
					&cli.IntFlag{Name: "likes", Value: -1},
					&cli.IntFlag{Name: "comments", Value: -1},
					&cli.IntFlag{Name: "shares", Value: -1},
					&cli.IntFlag{Name: "clicks", Value: -1},
					&cli.IntFlag{Name: "conversions", Value: -1},
					&cli.FloatFlag{Name: "revenue", Value: -1},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					var u perfdb.MetricsUpdate
					setInt := func(dst **int64, name string) {
						if v := c.Int(name); v >= 0 {
							n := int64(v)
							*dst = &n
						}
					}
					setInt(&u.Views, "views")
					setInt(&u.Likes, "likes")
					setInt(&u.Comments, "comments")
					setInt(&u.Shares, "shares")
					setInt(&u.Clicks, "clicks")
					setInt(&u.Conversions, "conversions")
					if v := c.Float("revenue"); v >= 0 {
						u.Revenue = &v
					}
					if err := perfdb.UpdateMetrics(ctx, db, c.String("id"), u); err != nil {
						return err
					}
					rec, err := perfdb.GetContent(ctx, db, c.String("id"))
					if err != nil {
						return err
					}
					fmt.Printf("Updated %s, score %.2f\n", rec.ContentID, rec.Score)
					return nil
				},
			},
			{
				Name:  "patterns",
				Usage: "Show which hooks, topics, and times perform best",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "Time window in days", Value: 30},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					p, err := perfdb.AnalyzePatterns(ctx, db, c.Int("days"))
					if err != nil {
						return err
					}
					return printJSON(p)
				},
			},
			{
				Name:  "report",
				Usage: "Full performance report for the trailing window",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "Time window in days", Value: 30},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					r, err := perfdb.BuildReport(ctx, db, c.Int("days"))
					if err != nil {
						return err
					}
					return printJSON(r)
				},
			},
			{
				Name:  "strategy",
				Usage: "Recompute the preferred hooks and posting times",
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					if err := perfdb.UpdateStrategy(ctx, db); err != nil {
						return err
					}
					fmt.Println("Strategy updated.")
					return nil
				},
			},
		},
	}
}

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Recommend the next content to make",
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openPerf()
			if err != nil {
				return err
			}
			defer db.Close()
			rec, err := perfdb.Recommend(ctx, db, nil)
			if err != nil {
				return err
			}
			if rec.HookStyle != "" {
				fmt.Printf("Hook:    %s\n", rec.HookStyle)
			}
			if rec.Topic != "" {
				fmt.Printf("Topic:   %s\n", rec.Topic)
			}
			if rec.Product != "" {
				fmt.Printf("Product: %s\n", rec.Product)
			}
			if rec.PostHour >= 0 {
				fmt.Printf("Post at: %02d:00\n", rec.PostHour)
			}
			for _, r := range rec.Reasoning {
				fmt.Printf("  - %s\n", r)
			}
			if len(rec.Reasoning) == 0 {
				fmt.Println("Not enough data yet. Record a few posts with 'affkit perf record'.")
			}
			return nil
		},
	}
}

func abtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "abtest",
		Usage: "A/B test hooks, captions, or thumbnails",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a test between two variants",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name", UsageText: "test name"},
					&cli.StringArg{Name: "a", UsageText: "variant A label"},
					&cli.StringArg{Name: "b", UsageText: "variant B label"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					t, err := perfdb.StartABTest(ctx, db, c.StringArg("name"), c.StringArg("a"), c.StringArg("b"))
					if err != nil {
						return err
					}
					fmt.Printf("Test %d started: %q vs %q\n", t.ID, t.VariantA, t.VariantB)
					return nil
				},
			},
			{
				Name:  "record",
				Usage: "Record one impression for a variant",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "test id"},
					&cli.StringArg{Name: "variant", UsageText: "a or b"},
					&cli.StringArg{Name: "score", UsageText: "engagement score"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := strconv.ParseInt(c.StringArg("id"), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid test id")
					}
					score, err := strconv.ParseFloat(c.StringArg("score"), 64)
					if err != nil {
						return fmt.Errorf("invalid score")
					}
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					t, err := perfdb.RecordABResult(ctx, db, id, c.StringArg("variant"), score)
					if err != nil {
						return err
					}
					if t.Status == "completed" {
						if t.Winner == "tie" {
							fmt.Printf("Test %d completed: tie\n", t.ID)
						} else {
							fmt.Printf("Test %d completed: winner %q\n", t.ID, t.Winner)
						}
					} else {
						fmt.Printf("Recorded. %d impressions so far.\n", t.AImpressions+t.BImpressions)
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List tests",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status (running, completed)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openPerf()
					if err != nil {
						return err
					}
					defer db.Close()
					tests, err := perfdb.ListABTests(ctx, db, c.String("status"))
					if err != nil {
						return err
					}
					return printJSON(tests)
				},
			},
		},
	}
}

func queueCommand() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Schedule posts and publish the ones that come due",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Schedule a post",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "platform", Usage: "Platform", Required: true},
					&cli.StringFlag{Name: "caption", Usage: "Post caption", Required: true},
					&cli.StringFlag{Name: "media", Usage: "Media file path"},
					&cli.StringFlag{Name: "link", Usage: "Short code of the tracked link"},
					&cli.StringFlag{Name: "at", Usage: "When to post (RFC 3339), default now"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					at := time.Now()
					if v := c.String("at"); v != "" {
						at, err = time.Parse(time.RFC3339, v)
						if err != nil {
							return fmt.Errorf("invalid --at: %w", err)
						}
					}
					p, err := queue.Enqueue(ctx, db, c.String("platform"), c.String("caption"),
						c.String("media"), c.String("link"), at)
					if err != nil {
						return err
					}
					fmt.Printf("Scheduled %s for %s on %s\n", p.ID, p.ScheduledFor.Format("2006-01-02 15:04"), p.Platform)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List scheduled posts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status (pending, posted, failed)"},
					&cli.IntFlag{Name: "limit", Value: 50},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					posts, err := queue.List(ctx, db, c.String("status"), c.Int("limit"))
					if err != nil {
						return err
					}
					if len(posts) == 0 {
						fmt.Println("Queue is empty.")
						return nil
					}
					for _, p := range posts {
						fmt.Printf("%s  %-8s %-8s %s  %s\n",
							p.ScheduledFor.Format("2006-01-02 15:04"), p.Status, p.Platform, p.ID, clip(p.Caption, 40))
					}
					return nil
				},
			},
			{
				Name:  "work",
				Usage: "Publish due posts via the configured post command",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					return workQueue(ctx, cfg, db)
				},
			},
			{
				Name:  "done",
				Usage: "Mark a pending post as published",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "post id"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					if err := queue.MarkPosted(ctx, db, c.StringArg("id")); err != nil {
						return err
					}
					fmt.Println("Marked as posted.")
					return nil
				},
			},
			{
				Name:  "fail",
				Usage: "Mark a pending post as failed",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "post id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reason", Usage: "Failure reason"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, db, err := openTracker()
					if err != nil {
						return err
					}
					defer db.Close()
					if err := queue.MarkFailed(ctx, db, c.StringArg("id"), c.String("reason")); err != nil {
						return err
					}
					fmt.Println("Marked as failed.")
					return nil
				},
			},
		},
	}
}

// workQueue publishes due posts one at a time until the queue is
// drained or the daily cap is hit.
func workQueue(ctx context.Context, cfg config.Config, db *sql.DB) error {
	logger := newLogger()
	if strings.TrimSpace(cfg.Queue.PostCommand) == "" {
		return fmt.Errorf("queue.post_command is not configured; posts stay pending for manual publishing")
	}
	parts := strings.Fields(cfg.Queue.PostCommand)

	published := 0
	for {
		posted, err := queue.PostedToday(ctx, db, time.Now())
		if err != nil {
			return err
		}
		if cfg.Queue.MaxDailyPosts > 0 && posted >= cfg.Queue.MaxDailyPosts {
			logger.Info("daily post cap reached", "posted", posted, "cap", cfg.Queue.MaxDailyPosts)
			break
		}
		post, err := queue.NextDue(ctx, db, time.Now())
		if errors.Is(err, queue.ErrPostNotFound) {
			break
		}
		if err != nil {
			return err
		}

		args := append(parts[1:], post.Platform, post.Caption)
		if post.MediaPath.Valid {
			args = append(args, post.MediaPath.String)
		}
		cmd := exec.CommandContext(ctx, parts[0], args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			logger.Error("post command failed", "id", post.ID, "error", err)
			if err := queue.MarkFailed(ctx, db, post.ID, err.Error()); err != nil {
				return err
			}
			continue
		}
		if err := queue.MarkPosted(ctx, db, post.ID); err != nil {
			return err
		}
		logger.Info("published", "id", post.ID, "platform", post.Platform)
		published++
	}
	fmt.Printf("Published %d post(s).\n", published)
	return nil
}

func nicheCommand() *cli.Command {
	return &cli.Command{
		Name:  "niche",
		Usage: "Research a niche's earning potential",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "keyword", UsageText: "niche keyword, e.g. 'ai writing tools'"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			keyword := strings.TrimSpace(c.StringArg("keyword"))
			if keyword == "" {
				return fmt.Errorf("niche keyword required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			programs := cfg.Programs
			if len(programs) == 0 {
				programs = niche.DefaultPrograms()
			}
			a := niche.NewAnalyzer(niche.NewRedditClient(), programs, newLogger())
			res, err := a.Analyze(ctx, keyword)
			if err != nil {
				return err
			}
			fmt.Printf("Niche: %s\n", res.Niche)
			fmt.Printf("Score: %d/100 — %s\n", res.Score, res.Recommendation)
			fmt.Printf("Subreddits checked: %s\n", strings.Join(res.Subreddits, ", "))
			if len(res.RedditActivity) > 0 {
				fmt.Println("Hot discussions:")
				for _, p := range res.RedditActivity {
					fmt.Printf("  [%d] %s\n", p.Score, clip(p.Title, 70))
				}
			}
			if len(res.Programs) > 0 {
				fmt.Println("Matching affiliate programs:")
				for _, p := range res.Programs {
					fmt.Printf("  %-14s %-22s cookie %s\n", p.Name, p.Commission, p.Cookie)
				}
			}
			return nil
		},
	}
}

func trendsCommand() *cli.Command {
	return &cli.Command{
		Name:  "trends",
		Usage: "Ingest niche-research feeds into the local cache",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run a single ingest cycle and exit"},
			&cli.IntFlag{Name: "since", Usage: "With no ingest: list items from the last N hours"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, db, err := openTrends()
			if err != nil {
				return err
			}
			defer db.Close()

			if h := c.Int("since"); h > 0 {
				items, err := trends.GetSince(ctx, db, time.Now().Add(-time.Duration(h)*time.Hour), 100)
				if err != nil {
					return err
				}
				for _, it := range items {
					fmt.Printf("%s  %-20s %s\n", it.PublishedAt.Format("2006-01-02 15:04"), clip(it.FeedTitle, 20), it.Title)
				}
				return nil
			}

			if len(cfg.Trends.Feeds) == 0 {
				return fmt.Errorf("no trend feeds configured; add them with 'affkit setup' or in config.yaml")
			}
			logger := newLogger()
			ing := trends.NewIngestor(cfg.Trends.TimeoutSec, cfg.Trends.MaxItemsPerFeed, logger)

			runOnce := func() {
				saved, err := ing.Ingest(ctx, db, cfg.Trends.Feeds)
				if err != nil {
					logger.Error("ingest failed", "error", err)
					return
				}
				logger.Info("ingest complete", "saved", saved)
			}

			runOnce()
			if c.Bool("once") {
				return nil
			}

			interval := time.Duration(cfg.Trends.IntervalMin) * time.Minute
			if interval <= 0 {
				interval = time.Hour
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					runOnce()
				}
			}
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the redirect and stats HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, db, err := openTracker()
			if err != nil {
				return err
			}
			defer db.Close()
			addr := cfg.Server.Addr
			if v := c.String("addr"); v != "" {
				addr = v
			}
			logger := newLogger()
			h := web.NewHandler(db, web.Targets{Weekly: cfg.Targets.Weekly, Monthly: cfg.Targets.Monthly}, logger)
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return web.Serve(ctx, addr, h.Router(), logger)
		},
	}
}

func briefCommand() *cli.Command {
	return &cli.Command{
		Name:  "brief",
		Usage: "Draft a content brief from the recommendation and recent trends",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			gen, err := brief.New(brief.Config{
				BaseURL: cfg.AI.BaseURL,
				Model:   cfg.AI.Model,
				APIKey:  cfg.AI.APIKey,
			})
			if err != nil {
				return err
			}

			pdb, err := openPerf()
			if err != nil {
				return err
			}
			defer pdb.Close()
			rec, err := perfdb.Recommend(ctx, pdb, nil)
			if err != nil {
				return err
			}

			var headlines []string
			if _, tdb, err := openTrends(); err == nil {
				items, err := trends.GetSince(ctx, tdb, time.Now().AddDate(0, 0, -7), 5)
				if err == nil {
					for _, it := range items {
						headlines = append(headlines, it.Title)
					}
				}
				tdb.Close()
			}

			out, err := gen.Generate(ctx, brief.FromRecommendation(rec, headlines))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
