package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/errors"
)

// analyzeCommand creates the analyze command that explains a pair of nodes.
func (c *CLI) analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <node-a> <node-b>",
		Short: "Explain why two nodes are related",
		Long: `Ask the backend why two nodes are related.

Nodes are GitHub logins or owner/repo names, usually the center of a search and
one of its recommendations.`,
		Example: `  openchain analyze spf13/cobra spf13`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, a, b string) error {
	q := backend.AnalyzeQuery{NodeA: a, NodeB: b}
	if err := q.Validate(); err != nil {
		return err
	}
	if err := checkNames(a, b); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	client, err := backend.NewClient(cfg.Backend.URL, backend.WithTimeout(cfg.Analysis.Timeout.Duration))
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Analyzing %s and %s...", a, b))
	spinner.Start()
	prog := newProgress(c.Logger)
	text, err := client.Analyze(ctx, a, b)
	if err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return err
	}
	spinner.Stop()
	prog.done("Analysis received")

	fmt.Println(StyleTitle.Render(a) + StyleDim.Render(" "+iconArrow+" ") + StyleTitle.Render(b))
	fmt.Println(StylePanel.Render(text))
	return nil
}
