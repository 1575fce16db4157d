package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/openchain/pkg/analysis"
	"github.com/matzehuels/openchain/pkg/graph"
)

var (
	listDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	panelWidth     = 72
	analysisStyle  = StylePanel.Width(panelWidth)
	errorTextStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// ExploreModel - Interactive recommendation browser
// =============================================================================

// analysisMsg carries a controller snapshot into the bubbletea loop.
type analysisMsg analysis.Snapshot

// ExploreModel lists the nodes around a center and shows the analysis for
// the selected one. Requests go through the request and reset callbacks so
// the controller never runs on the event loop.
type ExploreModel struct {
	Center   graph.Node
	Nodes    []graph.Node
	Cursor   int
	Offset   int
	Height   int
	Snapshot analysis.Snapshot

	request func(selected string)
	reset   func()
}

// NewExploreModel creates a model for g. The center node is not listed since
// selecting it never triggers an analysis.
func NewExploreModel(g *graph.Resolved, request func(string), reset func()) ExploreModel {
	center := *g.CenterNode()
	nodes := make([]graph.Node, 0, len(g.Nodes)-1)
	for _, n := range g.Nodes {
		if n.ID != center.ID {
			nodes = append(nodes, n)
		}
	}
	slices.SortStableFunc(nodes, func(a, b graph.Node) int {
		if c := cmp.Compare(tierRank(a.Tier), tierRank(b.Tier)); c != 0 {
			return c
		}
		return cmp.Compare(similarity(b), similarity(a))
	})
	return ExploreModel{
		Center:   center,
		Nodes:    nodes,
		Height:   15,
		Snapshot: analysis.Snapshot{State: analysis.Idle, Phase: analysis.Idle.String()},
		request:  request,
		reset:    reset,
	}
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Nodes) == 0 || m.request == nil {
				return m, nil
			}
			id := m.Nodes[m.Cursor].ID
			request := m.request
			return m, func() tea.Msg {
				request(id)
				return nil
			}
		case "esc":
			if m.reset == nil {
				return m, nil
			}
			reset := m.reset
			return m, func() tea.Msg {
				reset()
				return nil
			}
		}
	case analysisMsg:
		if msg.Generation >= m.Snapshot.Generation {
			m.Snapshot = analysis.Snapshot(msg)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-16, 5)
	}
	return m, nil
}

func (m ExploreModel) View() string {
	var b strings.Builder

	b.WriteString(tierStyle(m.Center.Tier).Render(iconNode) + " " + StyleTitle.Render(m.Center.ID))
	b.WriteString(StyleDim.Render(" (" + m.Center.Type + ")"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ analyze  esc dismiss  q quit"))
	b.WriteString("\n\n")

	if len(m.Nodes) == 0 {
		b.WriteString(listDimStyle.Render(graph.MsgNoResults))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Nodes))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		n := m.Nodes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, tierStyle(n.Tier).Render(iconNode), n.ID, n.Type, string(n.Tier), formatSimilarity(n)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Node", "Type", "Tier", "Similarity").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			switch {
			case idx == m.Cursor && col != 1:
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			case idx < len(m.Nodes) && m.Nodes[idx].ID == m.Snapshot.Selected && col != 1:
				return lipgloss.NewStyle().Foreground(colorGreen)
			case col >= 3:
				return lipgloss.NewStyle().Foreground(colorGray)
			default:
				return lipgloss.NewStyle()
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Nodes))))
	b.WriteString("\n\n")
	b.WriteString(m.analysisView())
	return b.String()
}

// analysisView renders the panel for the current snapshot.
func (m ExploreModel) analysisView() string {
	s := m.Snapshot
	switch s.State {
	case analysis.Loading:
		return styleIconSpinner.Render("⠋") + " " + StyleDim.Render("Analyzing "+s.Center+" and "+s.Selected+"...")
	case analysis.Loaded:
		head := StyleTitle.Render(s.Center) + StyleDim.Render(" "+iconArrow+" ") + StyleTitle.Render(s.Selected)
		return head + "\n" + analysisStyle.Render(s.Analysis)
	case analysis.Error:
		return styleIconError.Render(iconError) + " " + errorTextStyle.Render(s.Message)
	default:
		return listDimStyle.Render("Select a node to see how it relates to " + m.Center.ID)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func tierRank(t graph.Tier) int {
	switch t {
	case graph.TierCenter:
		return 0
	case graph.TierCore:
		return 1
	default:
		return 2
	}
}

func similarity(n graph.Node) float64 {
	if n.Similarity == nil {
		return -1
	}
	return *n.Similarity
}

func formatSimilarity(n graph.Node) string {
	if n.Similarity == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f", *n.Similarity)
}
