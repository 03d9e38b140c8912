package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type detailPage struct {
	width        int
	height       int
	viewport     viewport.Model
	selectedLink *linkDetail
}

func (m detailPage) Init() tea.Cmd {
	return nil
}

func (m detailPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, func() tea.Msg { return goToTableMsg{} }
		case "k":
			m.viewport.ScrollUp(1)
			return m, nil
		case "j":
			m.viewport.ScrollDown(1)
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width - 4
		m.height = msg.Height - 4
		if m.selectedLink != nil {
			m.viewport = setupViewport(m.width, m.height, m.selectedLink)
		}
		return m, nil
	case goToDetailMsg:
		m.selectedLink = msg.link
		m.viewport = setupViewport(m.width, m.height, m.selectedLink)
		return m, nil
	}

	return m, nil
}

func (m detailPage) View() string {
	if m.selectedLink == nil {
		return "No link selected"
	}
	l := m.selectedLink.link

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(darkGreen())

	titleStyle := lipgloss.NewStyle().
		Foreground(darkGreen()).
		Bold(true).
		MarginBottom(1).
		Width(m.width - 8)

	urlStyle := lipgloss.NewStyle().
		Foreground(lightGreen()).
		Italic(true).
		MarginBottom(1).
		Width(m.width - 8)

	metaStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		MarginBottom(1)

	titleRendered := titleStyle.Render(fmt.Sprintf("%s  [%s]", l.ProductName, l.ShortCode))
	urlRendered := urlStyle.Render("URL: " + l.OriginalURL)
	metaRendered := metaStyle.Render(fmt.Sprintf("Clicks: %d • Conversions: %d • Revenue: $%.2f • Added: %s",
		l.TotalClicks, l.TotalConversions, l.TotalRevenue, formatDate(l.CreatedAt)))

	helpInfo := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		MarginTop(1).
		Render("j/k: scroll • g/G: top/bottom • esc/q: back")

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleRendered,
		urlRendered,
		metaRendered,
		m.viewport.View(),
		helpInfo)

	return pageLayout(borderStyle.Render(content))
}

func setupViewport(width, height int, d *linkDetail) viewport.Model {
	contentWidth := width
	if contentWidth < 20 {
		contentWidth = 20
	}
	viewportHeight := height - 10
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	vp := viewport.New(contentWidth, viewportHeight)
	vp.SetContent(renderActivity(d))
	return vp
}

// renderActivity lists recent conversions then clicks, newest first.
func renderActivity(d *linkDetail) string {
	var sb strings.Builder

	sb.WriteString("Conversions (30d)\n")
	if len(d.conversions) == 0 {
		sb.WriteString("  none yet\n")
	}
	for _, c := range d.conversions {
		kind := "one-time"
		if c.IsRecurring {
			kind = "recurring"
		}
		sb.WriteString(fmt.Sprintf("  %s  $%.2f  %s", c.ConvertedAt.Format("2006-01-02 15:04"), c.Amount, kind))
		if c.Notes.Valid && c.Notes.String != "" {
			sb.WriteString("  " + c.Notes.String)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nClicks (30d)\n")
	if len(d.clicks) == 0 {
		sb.WriteString("  none yet\n")
	}
	for _, c := range d.clicks {
		platform := c.Platform.String
		if platform == "" {
			platform = "unknown"
		}
		sb.WriteString(fmt.Sprintf("  %s  %s", c.ClickedAt.Format("2006-01-02 15:04"), platform))
		if c.Source.Valid && c.Source.String != "" {
			sb.WriteString("  via " + c.Source.String)
		}
		if c.Campaign.Valid && c.Campaign.String != "" {
			sb.WriteString("  #" + c.Campaign.String)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
