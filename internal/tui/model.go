// Package tui provides the Bubble Tea strategy leaderboard.
package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gridbox/pitwall/internal/optimizer"
	"github.com/gridbox/pitwall/internal/race"
	"github.com/gridbox/pitwall/internal/stats"
)

const (
	viewRanking = iota
	viewDetail
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea leaderboard UI over a ranked batch.
type Model struct {
	conditions race.Conditions
	ranked     []optimizer.Candidate
	skipped    []optimizer.Skip

	activeView int
	rankTable  table.Model
	detail     viewport.Model
	detailFor  int

	width  int
	height int
}

// NewModel constructs the leaderboard for an optimizer result.
func NewModel(conditions race.Conditions, res optimizer.Result) *Model {
	m := &Model{
		conditions: conditions,
		ranked:     res.Ranked,
		skipped:    res.Skipped,
		detailFor:  -1,
	}
	m.rankTable = buildRankTable(res.Ranked, 0, 1)
	m.detail = viewport.New(0, 0)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.activeView == viewRanking && len(m.ranked) > 0 {
				m.activeView = viewDetail
				m.renderDetail()
				return m, tea.ClearScreen
			}
		case "esc", "left", "h":
			if m.activeView == viewDetail {
				m.activeView = viewRanking
				return m, tea.ClearScreen
			}
		case "g", "home":
			if m.activeView == viewRanking {
				m.rankTable.GotoTop()
			} else {
				m.detail.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeView == viewRanking {
				m.rankTable.GotoBottom()
			} else {
				m.detail.GotoBottom()
			}
			return m, nil
		}
		if m.activeView == viewRanking {
			var cmd tea.Cmd
			m.rankTable, cmd = m.rankTable.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = 2
	footerHeight = 1
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.rankTable.SetWidth(m.width)
	m.rankTable.SetHeight(maxInt(1, bodyHeight-1))
	m.detail.Width = m.width
	m.detail.Height = bodyHeight
	if m.activeView == viewDetail {
		m.renderDetail()
	}
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render(fmt.Sprintf("%s, %d laps", m.conditions.Track.Name, m.conditions.RaceLaps))
	summary := fmt.Sprintf("%d strategies ranked, %d skipped", len(m.ranked), len(m.skipped))
	return padLines(title, m.width) + "\n" + padLines(headerStyle.Render(truncateLine(summary, m.width)), m.width)
}

func (m *Model) renderBody() string {
	if m.activeView == viewDetail {
		return m.detail.View()
	}
	if len(m.ranked) == 0 {
		return "No strategies ranked."
	}
	return mutedStyle.Render(m.rankTable.View())
}

func (m *Model) renderFooter() string {
	help := "Detail: enter  Scroll: up/down  Quit: q"
	if m.activeView == viewDetail {
		help = "Back: esc  Scroll: up/down/pgup/pgdn  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderDetail() {
	cursor := m.rankTable.Cursor()
	if cursor < 0 || cursor >= len(m.ranked) {
		m.detail.SetContent("No strategy selected.")
		return
	}
	if cursor != m.detailFor {
		m.detailFor = cursor
		m.detail.GotoTop()
	}
	candidate := m.ranked[cursor]
	width := m.width
	if width <= 0 {
		width = 80
	}
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, candidate.Strategy.Name, candidate.Evaluation, stats.PlotWidthFor(width)); err != nil {
		m.detail.SetContent(fmt.Sprintf("Failed to render detail: %v", err))
		return
	}
	m.detail.SetContent(strings.TrimRight(buf.String(), "\n"))
}

func buildRankTable(ranked []optimizer.Candidate, width, height int) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Strategy", Width: 26},
		{Title: "Utility", Width: 8},
		{Title: "Mean", Width: 10},
		{Title: "Win", Width: 6},
		{Title: "Podium", Width: 7},
		{Title: "DNF", Width: 6},
	}
	rows := make([]table.Row, 0, len(ranked))
	for i, c := range ranked {
		s := c.Evaluation.Summary()
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			c.Strategy.Name,
			fmt.Sprintf("%.4f", c.Utility),
			formatMeanTime(s),
			fmt.Sprintf("%.1f%%", s.WinProb*100),
			fmt.Sprintf("%.1f%%", s.PodiumProb*100),
			fmt.Sprintf("%.1f%%", s.DNFProb*100),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height)),
		table.WithFocused(true),
	)
	t.SetWidth(width)
	t.SetStyles(rankTableStyles())
	return t
}

func rankTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func formatMeanTime(s stats.Summary) string {
	if s.FinishedRuns == 0 {
		return "-"
	}
	minutes := int(s.MeanTime) / 60
	rest := s.MeanTime - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}
