package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"affkit/internal/trackdb"
)

type tablePage struct {
	links       []trackdb.LinkSummary
	stats       *trackdb.DashboardStats
	projection  *trackdb.Projection
	clicks      []trackdb.Click
	conversions []trackdb.Conversion

	table    *table.Table
	progress progress.Model

	ready       bool
	cursor      int
	currentPage int
	totalPages  int
	pageSize    int
	tableWidth  int
}

func TablePage(links []trackdb.LinkSummary, stats *trackdb.DashboardStats, projection *trackdb.Projection, clicks []trackdb.Click, conversions []trackdb.Conversion) tablePage {
	return tablePage{
		links:       links,
		stats:       stats,
		projection:  projection,
		clicks:      clicks,
		conversions: conversions,
		progress:    progress.New(progress.WithDefaultGradient()),
		pageSize:    10,
	}
}

func (m tablePage) Init() tea.Cmd {
	return nil
}

func (m tablePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "enter":
			globalCursor := m.currentPage*m.pageSize + m.cursor
			if globalCursor < len(m.links) {
				selected := m.links[globalCursor]
				detail := &linkDetail{
					link:        selected,
					clicks:      filterClicks(m.clicks, selected.ID),
					conversions: filterConversions(m.conversions, selected.ID),
				}
				return m, func() tea.Msg { return goToDetailMsg{link: detail} }
			}
			return m, nil
		case "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.currentPage > 0 {
				m.currentPage--
				m.cursor = m.pageSize - 1
			}
			m.updateTableRows()
			return m, nil
		case "j":
			itemsOnPage := min(m.pageSize, len(m.links)-m.currentPage*m.pageSize)
			if m.cursor < itemsOnPage-1 {
				m.cursor++
			} else if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.cursor = 0
			}
			m.updateTableRows()
			return m, nil
		case "l":
			if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.cursor = 0
				m.updateTableRows()
				return m, tea.ClearScreen
			}
			return m, nil
		case "h":
			if m.currentPage > 0 {
				m.currentPage--
				m.cursor = 0
				m.updateTableRows()
				return m, tea.ClearScreen
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.tableWidth = msg.Width - 2
		m.progress.Width = min(60, msg.Width-20)
		m.configureTable(msg.Height - 4)
		m.ready = true
		return m, tea.ClearScreen
	}

	return m, nil
}

func (m tablePage) View() string {
	if !m.ready {
		return "...Loading"
	}
	if len(m.links) == 0 {
		return "No links tracked yet. Add one with: affkit link add"
	}

	header := m.renderHeader()
	tableContainer := m.table.Render()
	helpInfo := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Render("j/k: move • l/h: page • Space: link detail • q: quit")

	return pageLayout(lipgloss.JoinVertical(lipgloss.Left, header, tableContainer, helpInfo))
}

// renderHeader shows the 30-day aggregate and the weekly goal bar.
func (m tablePage) renderHeader() string {
	statStyle := lipgloss.NewStyle().Foreground(darkGreen()).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	summary := fmt.Sprintf("%s  %s  %s  %s",
		statStyle.Render(fmt.Sprintf("$%.2f", m.stats.TotalRevenue))+labelStyle.Render(" revenue/30d"),
		statStyle.Render(fmt.Sprintf("%d", m.stats.TotalClicks))+labelStyle.Render(" clicks"),
		statStyle.Render(fmt.Sprintf("%d", m.stats.TotalConversions))+labelStyle.Render(" conversions"),
		statStyle.Render(fmt.Sprintf("%.1f%%", m.stats.ConversionRate))+labelStyle.Render(" rate"),
	)

	pct := m.projection.WeeklyProgressPercent / 100
	if pct > 1 {
		pct = 1
	}
	goal := labelStyle.Render(fmt.Sprintf("weekly goal $%.0f: ", m.projection.WeeklyTarget)) +
		m.progress.ViewAs(pct)

	return lipgloss.JoinVertical(lipgloss.Left, summary, goal, "")
}

func (m *tablePage) updateTableRows() {
	if len(m.links) == 0 {
		return
	}

	headers := []string{"Product", "Code", "Clicks", "Conv", "Revenue", "Created"}

	var rows [][]string
	startIdx := m.currentPage * m.pageSize
	endIdx := min(startIdx+m.pageSize, len(m.links))
	for i := startIdx; i < endIdx; i++ {
		l := m.links[i]
		rows = append(rows, []string{
			truncateString(l.ProductName, 30),
			l.ShortCode,
			fmt.Sprintf("%d", l.TotalClicks),
			fmt.Sprintf("%d", l.TotalConversions),
			fmt.Sprintf("$%.2f", l.TotalRevenue),
			formatDate(l.CreatedAt),
		})
	}

	if len(rows) > 0 {
		if m.cursor >= len(rows) {
			m.cursor = len(rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	}

	borderStyle := lipgloss.NewStyle().Foreground(darkGreen())
	headerStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(darkGreen()).
		Align(lipgloss.Center)

	m.table = table.New().
		Width(m.tableWidth).
		Border(lipgloss.ThickBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row == m.cursor {
				return lipgloss.NewStyle().
					Padding(0, 1).
					Background(lightGreen()).
					Foreground(lipgloss.Color("0"))
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func (m *tablePage) configureTable(height int) {
	if len(m.links) == 0 {
		return
	}
	m.pageSize = max(5, height-10)
	m.totalPages = (len(m.links) + m.pageSize - 1) / m.pageSize
	if m.currentPage >= m.totalPages {
		m.currentPage = m.totalPages - 1
	}
	if m.currentPage < 0 {
		m.currentPage = 0
	}
	m.updateTableRows()
}

func filterClicks(clicks []trackdb.Click, linkID int64) []trackdb.Click {
	var out []trackdb.Click
	for _, c := range clicks {
		if c.LinkID == linkID {
			out = append(out, c)
		}
	}
	return out
}

func filterConversions(convs []trackdb.Conversion, linkID int64) []trackdb.Conversion {
	var out []trackdb.Conversion
	for _, c := range convs {
		if c.LinkID == linkID {
			out = append(out, c)
		}
	}
	return out
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 3 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
