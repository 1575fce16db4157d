package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/openchain/pkg/history"
)

// historyCommand creates the history command that lists recent searches.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		Long: `List searches recorded by the server.

Only the mongo history backend outlives the server process, so this command is
useful when [history] backend = "mongo" or OPENCHAIN_MONGO_URI is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistory(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", history.DefaultLimit, "number of entries to show")
	return cmd
}

func (c *CLI) runHistory(ctx context.Context, limit int) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Backend != history.BackendMongo {
		printInfo("History backend is %q; entries are kept by the running server only", cfg.History.Backend)
		return nil
	}

	store, err := history.Open(ctx, history.Options{
		Backend:    cfg.History.Backend,
		MongoURI:   cfg.History.MongoURI,
		Database:   cfg.History.Database,
		Collection: cfg.History.Collection,
	})
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close(context.WithoutCancel(ctx))

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printInfo("No searches recorded")
		return nil
	}
	fmt.Println(historyTable(entries, time.Now()))
	return nil
}

// historyTable renders entries as a bordered table.
func historyTable(entries []history.Entry, now time.Time) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.Type,
			e.Name,
			e.Find,
			fmt.Sprintf("%d", e.Nodes),
			fmt.Sprintf("%d", e.Links),
			formatRelativeTime(e.CreatedAt, now),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Type", "Name", "Find", "Nodes", "Links", "When").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col >= 3:
				return lipgloss.NewStyle().Foreground(colorGray)
			default:
				return lipgloss.NewStyle()
			}
		}).
		Render()
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
