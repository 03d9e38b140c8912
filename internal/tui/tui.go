// Package tui renders the earnings dashboard: link table, weekly goal
// progress, and per-link activity detail.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"affkit/internal/config"
	"affkit/internal/trackdb"
)

type viewMode int

const (
	tableView viewMode = iota
	detailView
)

// Navigation messages
type goToDetailMsg struct {
	link *linkDetail
}
type goToTableMsg struct{}

type rootPage struct {
	viewMode   viewMode
	tablePage  tablePage
	detailPage detailPage
	width      int
	height     int
	err        error
}

type linkDetail struct {
	link        trackdb.LinkSummary
	clicks      []trackdb.Click
	conversions []trackdb.Conversion
}

func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := trackdb.Open(cfg.TrackerDBPath())
	if err != nil {
		return fmt.Errorf("failed opening the tracker database: %w", err)
	}
	defer db.Close()
	if err := trackdb.InitSchema(db); err != nil {
		return err
	}

	links, err := trackdb.ListLinks(ctx, db, 0)
	if err != nil {
		return fmt.Errorf("query failed while reading links: %w", err)
	}
	stats, err := trackdb.GetDashboardStats(ctx, db, 30)
	if err != nil {
		return err
	}
	projection, err := trackdb.ProjectRevenue(ctx, db, cfg.Targets.Weekly, cfg.Targets.Monthly)
	if err != nil {
		return err
	}
	clicks, err := trackdb.ListClicks(ctx, db, 0, 30)
	if err != nil {
		return err
	}
	conversions, err := trackdb.ListConversions(ctx, db, 0, 30)
	if err != nil {
		return err
	}

	m := rootPage{
		tablePage: TablePage(links, stats, projection, clicks, conversions),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func (m rootPage) Init() tea.Cmd {
	return nil
}

func (m rootPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.viewMode {
	case tableView:
		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
	case detailView:
		m.detailPage, cmd = update[detailPage](m.detailPage, msg)
	}

	switch msg := msg.(type) {
	case goToTableMsg:
		m.viewMode = tableView
	case goToDetailMsg:
		m.viewMode = detailView
		m.detailPage, cmd = update[detailPage](m.detailPage, msg)
	case tea.WindowSizeMsg:
		var cmds []tea.Cmd

		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
		cmds = append(cmds, cmd)

		m.detailPage, cmd = update[detailPage](m.detailPage, msg)
		cmds = append(cmds, cmd)

		m.width = msg.Width - 4
		m.height = msg.Height - 4

		return m, tea.Batch(cmds...)
	}

	return m, cmd
}

func (m rootPage) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v", m.err)
	}

	switch m.viewMode {
	case detailView:
		return m.detailPage.View()
	case tableView:
		return m.tablePage.View()
	default:
		return "Unknown View"
	}
}

func update[T any](model tea.Model, msg tea.Msg) (T, tea.Cmd) {
	newModel, cmd := model.Update(msg)
	return newModel.(T), cmd
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
