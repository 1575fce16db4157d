package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/openchain/pkg/analysis"
	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/render"
)

// exploreCommand creates the explore command, an interactive browser for one
// recommendation graph.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		q       backend.RecommendQuery
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "explore <user|repo> <name>",
		Short: "Browse recommendations and analyze them interactively",
		Long: `Fetch the recommendations for a user or repository and browse them.

Selecting a node asks the backend why it relates to the searched one. A newer
selection replaces a pending one; esc dismisses the analysis.`,
		Example: `  openchain explore user torvalds
  openchain explore repo spf13/cobra --find user`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Type, q.Name = args[0], args[1]
			return c.runExplore(cmd.Context(), q, noCache)
		},
	}

	cmd.Flags().StringVar(&q.Find, "find", "", "result type: user or repo (default: same as the search type)")
	cmd.Flags().StringVar(&q.Count, "count", "", "number of recommendations")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the recommendation cache")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, q backend.RecommendQuery, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	g, err := c.fetchGraph(ctx, cfg, q, noCache)
	if err != nil {
		return err
	}
	if v := render.Classify(g); v.Kind != render.ViewGraph {
		if v.Kind == render.ViewError {
			printError("%s", v.Message)
		} else {
			printInfo("%s", v.Message)
		}
		return nil
	}
	r, err := graph.Resolve(g)
	if err != nil {
		return err
	}

	client, err := backend.NewClient(cfg.Backend.URL)
	if err != nil {
		return err
	}

	var p *tea.Program
	ctrl := analysis.NewController(client,
		analysis.WithTimeout(cfg.Analysis.Timeout.Duration),
		analysis.WithLogger(c.Logger),
		analysis.WithOnChange(func(s analysis.Snapshot) {
			if p != nil {
				p.Send(analysisMsg(s))
			}
		}),
	)
	defer ctrl.Close()

	center := r.CenterNode().ID
	model := NewExploreModel(r,
		func(selected string) { ctrl.Request(ctx, center, selected) },
		ctrl.Reset,
	)
	p = tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	return nil
}
