package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"affkit/internal/config"
	"affkit/internal/launchd"
	"affkit/internal/perfdb"
	"affkit/internal/queue"
	"affkit/internal/trackdb"
	"affkit/internal/trends"
)

// Run executes the interactive setup flow:
// 1) greet
// 2) ask for trend feeds
// 3) ask for weekly/monthly revenue targets
// 4) ask for the redirect server address
// 5) ask for the AI model used for content briefs
// 6) write config, bootstrap the databases, install the schedule (macOS)
func Run(ctx context.Context) error {
	cfgPath, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}
	cfgExists := fileExists(cfgPath)

	wiz := newWizardModel(cfgExists)
	p := tea.NewProgram(wiz)
	res, err := p.StartReturningModel()
	if err != nil {
		return err
	}
	wm, ok := res.(*wizardModel)
	if !ok || wm.cancelled {
		return errors.New("setup cancelled")
	}

	if wm.override {
		if cfgExists {
			_ = config.BackupFile(cfgPath)
		}
		uc := config.UserConfig{
			ServerAddr:    wm.serverAddr,
			WeeklyTarget:  wm.weekly,
			MonthlyTarget: wm.monthly,
			TrendFeeds:    wm.feeds,
			AIModel:       wm.aiModel,
			AIBaseURL:     wm.aiBaseURL,
		}
		if err := config.WriteConfig(uc); err != nil {
			return err
		}
		fmt.Printf("\nConfig written to %s\n", cfgPath)
	}

	if err := bootstrapDatabases(ctx); err != nil {
		return err
	}
	fmt.Println("Databases initialized.")

	if runtime.GOOS == "darwin" {
		fmt.Println("\nInstalling launchd agent to run trend ingestion on a schedule…")
		exe, _ := os.Executable()
		interval := wm.intervalMin
		if interval <= 0 {
			if cfg, err := config.Load(); err == nil && cfg.Trends.IntervalMin > 0 {
				interval = cfg.Trends.IntervalMin
			} else {
				interval = 60
			}
		}
		logPath := launchd.DefaultLogPath()
		opt := launchd.InstallOptions{
			Label:           launchd.Label,
			IntervalMinutes: interval,
			ProgramPath:     exe,
			ProgramArgs:     []string{"trends", "--once"},
			StdOutPath:      logPath,
			StdErrPath:      logPath,
		}
		if _, err := launchd.Install(opt); err != nil {
			fmt.Printf("launchd install failed: %v\n", err)
		} else {
			fmt.Println("launchd agent installed and loaded.")
		}
	} else {
		fmt.Println("\nNote: Automatic scheduling is only implemented for macOS (launchd).")
		fmt.Println("On other platforms run './affkit trends --once' from cron or a systemd timer.")
	}

	maybeConfigureMCP()

	fmt.Println("\nSetup complete! 🎉")
	fmt.Println("- Edit ~/.config/affkit/config.yaml to refine settings")
	fmt.Println("- Run './affkit link add' to track your first affiliate link")
	fmt.Println("- Run './affkit serve' to start the redirect server")
	fmt.Println("- Run './affkit server' to expose tracker tools to your LLM via MCP")
	return nil
}

func bootstrapDatabases(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	tdb, err := trackdb.Open(cfg.TrackerDBPath())
	if err != nil {
		return err
	}
	defer tdb.Close()
	if err := trackdb.InitSchema(tdb); err != nil {
		return err
	}
	if err := queue.InitSchema(tdb); err != nil {
		return err
	}

	pdb, err := perfdb.Open(cfg.PerfDBPath())
	if err != nil {
		return err
	}
	defer pdb.Close()
	if err := perfdb.InitSchema(pdb); err != nil {
		return err
	}

	ndb, err := trends.Open(cfg.TrendsDBPath())
	if err != nil {
		return err
	}
	defer ndb.Close()
	return trends.InitSchema(ndb)
}

// -------------- Bubble Tea Wizard --------------
type wizardStep int

const (
	stepIntro wizardStep = iota
	stepConfigChoice
	stepFeeds
	stepTargets
	stepServer
	stepAI
	stepInterval
	stepSummary
	stepDone
)

type wizardModel struct {
	step      wizardStep
	hasCfg    bool
	override  bool
	cancelled bool

	feedsInput textinput.Model
	feeds      []string

	weeklyInput  textinput.Model
	monthlyInput textinput.Model
	weekly       float64
	monthly      float64

	serverInput textinput.Model
	serverAddr  string

	modelInput   textinput.Model
	baseURLInput textinput.Model
	aiModel      string
	aiBaseURL    string

	intervalInput textinput.Model
	intervalMin   int

	errMsg string
}

func newWizardModel(hasCfg bool) *wizardModel {
	feeds := textinput.New()
	feeds.Placeholder = "https://example.com/feed.xml, https://..."

	weekly := textinput.New()
	weekly.Placeholder = "10000"

	monthly := textinput.New()
	monthly.Placeholder = "40000"

	server := textinput.New()
	server.Placeholder = ":8080"

	model := textinput.New()
	model.Placeholder = "gpt-4o-mini"

	baseURL := textinput.New()
	baseURL.Placeholder = "https://api.openai.com/v1 (or a local endpoint)"

	interval := textinput.New()
	interval.Placeholder = "60"

	return &wizardModel{
		step:          stepIntro,
		hasCfg:        hasCfg,
		feedsInput:    feeds,
		weeklyInput:   weekly,
		monthlyInput:  monthly,
		serverInput:   server,
		modelInput:    model,
		baseURLInput:  baseURL,
		intervalInput: interval,
		intervalMin:   60,
	}
}

func (m *wizardModel) Init() tea.Cmd { return nil }

func (m *wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (msg.Type == tea.KeyRunes && strings.ToLower(string(msg.Runes)) == "q" && !m.inputFocused()) {
			m.cancelled = true
			return m, tea.Quit
		}
		switch m.step {
		case stepIntro:
			if msg.Type == tea.KeyEnter {
				if m.hasCfg {
					m.step = stepConfigChoice
				} else {
					m.override = true
					m.step = stepFeeds
					m.feedsInput.Focus()
				}
			}
		case stepConfigChoice:
			// o = override, k = keep
			if msg.Type == tea.KeyRunes {
				s := strings.ToLower(string(msg.Runes))
				if s == "o" {
					m.override = true
					m.step = stepFeeds
					m.feedsInput.Focus()
				} else if s == "k" {
					m.override = false
					// Only the schedule interval is needed when keeping
					m.step = stepInterval
					m.intervalInput.Focus()
				}
			}
		case stepFeeds:
			var cmd tea.Cmd
			m.feedsInput, cmd = m.feedsInput.Update(msg)
			if msg.Type == tea.KeyEnter {
				m.feeds = splitCSV(m.feedsInput.Value())
				m.feedsInput.Blur()
				m.step = stepTargets
				m.weeklyInput.Focus()
				return m, nil
			}
			return m, cmd
		case stepTargets:
			var cmd tea.Cmd
			if m.weeklyInput.Focused() {
				m.weeklyInput, cmd = m.weeklyInput.Update(msg)
				if msg.Type == tea.KeyEnter {
					v, err := parseAmount(m.weeklyInput.Value(), 10000)
					if err != nil {
						m.errMsg = "Please enter a dollar amount."
						return m, cmd
					}
					m.weekly = v
					m.errMsg = ""
					m.weeklyInput.Blur()
					m.monthlyInput.Focus()
				}
				return m, cmd
			}
			m.monthlyInput, cmd = m.monthlyInput.Update(msg)
			if msg.Type == tea.KeyEnter {
				v, err := parseAmount(m.monthlyInput.Value(), 40000)
				if err != nil {
					m.errMsg = "Please enter a dollar amount."
					return m, cmd
				}
				m.monthly = v
				m.errMsg = ""
				m.monthlyInput.Blur()
				m.step = stepServer
				m.serverInput.Focus()
				return m, nil
			}
			return m, cmd
		case stepServer:
			var cmd tea.Cmd
			m.serverInput, cmd = m.serverInput.Update(msg)
			if msg.Type == tea.KeyEnter {
				m.serverAddr = strings.TrimSpace(m.serverInput.Value())
				if m.serverAddr == "" {
					m.serverAddr = ":8080"
				}
				m.serverInput.Blur()
				m.step = stepAI
				m.modelInput.Focus()
				return m, nil
			}
			return m, cmd
		case stepAI:
			var cmd tea.Cmd
			if m.modelInput.Focused() {
				m.modelInput, cmd = m.modelInput.Update(msg)
				if msg.Type == tea.KeyEnter {
					m.aiModel = strings.TrimSpace(m.modelInput.Value())
					m.modelInput.Blur()
					m.baseURLInput.Focus()
				}
				return m, cmd
			}
			m.baseURLInput, cmd = m.baseURLInput.Update(msg)
			if msg.Type == tea.KeyEnter {
				m.aiBaseURL = strings.TrimSpace(m.baseURLInput.Value())
				m.baseURLInput.Blur()
				m.step = stepInterval
				m.intervalInput.Focus()
				return m, nil
			}
			return m, cmd
		case stepInterval:
			var cmd tea.Cmd
			m.intervalInput, cmd = m.intervalInput.Update(msg)
			if msg.Type == tea.KeyEnter {
				v := strings.TrimSpace(m.intervalInput.Value())
				if v == "" {
					m.intervalMin = 60
				} else if n, err := strconv.Atoi(v); err == nil && n > 0 {
					m.intervalMin = n
				} else {
					m.errMsg = "Please enter a positive integer (minutes)."
					return m, cmd
				}
				m.errMsg = ""
				m.intervalInput.Blur()
				m.step = stepSummary
				return m, nil
			}
			return m, cmd
		case stepSummary:
			if msg.Type == tea.KeyEnter {
				m.step = stepDone
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *wizardModel) inputFocused() bool {
	for _, in := range []textinput.Model{
		m.feedsInput, m.weeklyInput, m.monthlyInput,
		m.serverInput, m.modelInput, m.baseURLInput, m.intervalInput,
	} {
		if in.Focused() {
			return true
		}
	}
	return false
}

func (m *wizardModel) View() string {
	b := &strings.Builder{}
	switch m.step {
	case stepIntro:
		fmt.Fprintln(b, "Welcome to affkit setup! 🚀")
		fmt.Fprintln(b, "This wizard sets up link tracking, trend feeds, revenue targets, and the background schedule.")
		fmt.Fprintln(b, "\nPress Enter to begin · q to quit")
	case stepConfigChoice:
		path, _ := config.DefaultConfigPath()
		fmt.Fprintf(b, "Found an existing config at %s\n", path)
		fmt.Fprintln(b, "Override it (will create a .bak) or keep it?")
		fmt.Fprintln(b, "[o] Override    [k] Keep existing")
	case stepFeeds:
		fmt.Fprintln(b, "Step 1 – Trend Feeds")
		fmt.Fprintln(b, "Enter one or more RSS feed URLs for niche research, separated by commas.")
		fmt.Fprintln(b, "You can add more later by editing ~/.config/affkit/config.yaml.")
		fmt.Fprintln(b, "")
		fmt.Fprintln(b, m.feedsInput.View())
		fmt.Fprintln(b, "\nPress Enter to continue")
	case stepTargets:
		fmt.Fprintln(b, "Step 2 – Revenue Targets")
		fmt.Fprintln(b, "Weekly target in dollars [10000]:")
		fmt.Fprintln(b, m.weeklyInput.View())
		fmt.Fprintln(b, "\nMonthly target in dollars [40000]:")
		fmt.Fprintln(b, m.monthlyInput.View())
		if m.errMsg != "" {
			fmt.Fprintf(b, "\n%s\n", m.errMsg)
		}
		fmt.Fprintln(b, "\nPress Enter to continue")
	case stepServer:
		fmt.Fprintln(b, "Step 3 – Redirect Server")
		fmt.Fprintln(b, "Address for the click-tracking redirect server [:8080]:")
		fmt.Fprintln(b, m.serverInput.View())
		fmt.Fprintln(b, "\nPress Enter to continue")
	case stepAI:
		fmt.Fprintln(b, "Step 4 – Content Briefs (optional)")
		fmt.Fprintln(b, "Model used by 'affkit brief' to draft post outlines. Leave empty to skip.")
		fmt.Fprintln(b, "\nModel:")
		fmt.Fprintln(b, m.modelInput.View())
		fmt.Fprintln(b, "\nBase URL (empty for OpenAI):")
		fmt.Fprintln(b, m.baseURLInput.View())
		fmt.Fprintln(b, "\nPress Enter to continue")
	case stepInterval:
		fmt.Fprintln(b, "Step 5 – Trend Ingestion Interval")
		fmt.Fprintln(b, "How often should trend ingestion run? Minutes [60]:")
		fmt.Fprintln(b, m.intervalInput.View())
		if m.errMsg != "" {
			fmt.Fprintf(b, "\n%s\n", m.errMsg)
		}
		fmt.Fprintln(b, "\nPress Enter to continue")
	case stepSummary:
		fmt.Fprintln(b, "Summary")
		if len(m.feeds) > 0 {
			fmt.Fprintln(b, "Trend feeds:")
			for _, u := range m.feeds {
				fmt.Fprintf(b, "  - %s\n", u)
			}
		}
		if m.weekly > 0 {
			fmt.Fprintf(b, "Weekly target: $%.0f\n", m.weekly)
		}
		if m.monthly > 0 {
			fmt.Fprintf(b, "Monthly target: $%.0f\n", m.monthly)
		}
		if m.serverAddr != "" {
			fmt.Fprintf(b, "Server address: %s\n", m.serverAddr)
		}
		if m.aiModel != "" {
			fmt.Fprintf(b, "Brief model: %s\n", m.aiModel)
		}
		fmt.Fprintf(b, "Ingestion interval: %d minutes\n", m.intervalMin)
		if m.override {
			fmt.Fprintln(b, "\nThe configuration file will be written to ~/.config/affkit/config.yaml.")
		} else {
			fmt.Fprintln(b, "\nKeeping existing config. Only the launchd schedule will be installed/updated.")
		}
		fmt.Fprintln(b, "\nPress Enter to finish · q to cancel")
	case stepDone:
		fmt.Fprintln(b, "Finishing…")
	}
	return b.String()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseAmount(s string, fallback float64) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid amount")
	}
	return v, nil
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

func maybeConfigureMCP() {
	exe, _ := os.Executable()
	if _, err := exec.LookPath("claude"); err == nil {
		if askYesNo("\nDetected Claude CLI. Add affkit MCP via 'claude mcp add'? [y/N]: ") {
			cmd := exec.Command("claude", "mcp", "add", "affkit", exe, "server")
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				fmt.Printf("Failed to add MCP via Claude CLI: %v\n", err)
			}
		}
	}

	home, _ := os.UserHomeDir()
	codexPath := filepath.Join(home, ".codex", "config.toml")
	if fileExists(codexPath) {
		b, err := os.ReadFile(codexPath)
		if err == nil && !strings.Contains(string(b), "[mcp_servers.affkit]") {
			if askYesNo("\nDetected ~/.codex/config.toml. Add affkit MCP there? [y/N]: ") {
				_ = config.BackupFile(codexPath)
				if err := appendTomlMCP(codexPath, exe); err == nil {
					fmt.Println("Added MCP server to ~/.codex/config.toml")
				}
			}
		}
	}
}

func askYesNo(prompt string) bool {
	fmt.Print(prompt)
	rdr := bufio.NewReader(os.Stdin)
	s, _ := rdr.ReadString('\n')
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

func appendTomlMCP(path, exe string) error {
	snippet := fmt.Sprintf("\n[mcp_servers.affkit]\ncommand = %q\nargs = [\"server\"]\nenv = {}\n", exe)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(snippet)
	return err
}
