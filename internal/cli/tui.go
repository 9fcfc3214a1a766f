package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dendro/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseMatches opens an interactive list of the cluster matches found
// by a pipeline run.
func browseMatches(ctx context.Context, result *pipeline.Result) error {
	model := NewMatchListModel(result)
	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// MatchListModel is the bubbletea model for browsing cluster matches.
type MatchListModel struct {
	Result *pipeline.Result
	Cursor int
	Height int
	Offset int
}

// NewMatchListModel creates a match list model over a pipeline result.
func NewMatchListModel(result *pipeline.Result) MatchListModel {
	return MatchListModel{
		Result: result,
		Height: 15,
	}
}

func (m MatchListModel) Init() tea.Cmd {
	return nil
}

func (m MatchListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Result.Matches)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m MatchListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Matches: %s vs %s", m.Result.Source.Title, m.Result.Target.Title)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.Result.Matches) == 0 {
		b.WriteString(listDimStyle.Render("  no matching clusters"))
		return b.String()
	}

	end := m.Offset + m.Height
	if end > len(m.Result.Matches) {
		end = len(m.Result.Matches)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		match := m.Result.Matches[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		rows = append(rows, []string{
			cursor,
			truncateLabel(match.Label, 40),
			fmt.Sprintf("%s (%d)", match.Source.ID, match.Source.SubtreeSize),
			fmt.Sprintf("%s (%d)", match.Target.ID, match.Target.SubtreeSize),
			fmt.Sprintf("%d/%d", len(match.SourceEdges), len(match.TargetEdges)),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorDim).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Label", "Source", "Target", "Edges").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Result.Matches))))

	return b.String()
}

// truncateLabel shortens long synthesized labels for display.
func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
