package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/config"
	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/layout"
	"github.com/matzehuels/openchain/pkg/render"
)

// Output formats accepted by the layout command.
const (
	formatSVG  = render.FormatSVG
	formatPNG  = render.FormatPNG
	formatJPG  = render.FormatJPG
	formatDOT  = "dot"
	formatJSON = "json"
)

// layoutCommand creates the layout command that settles a graph and writes it.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		q        backend.RecommendQuery
		output   string
		format   string
		maxTicks int
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Settle a recommendation graph and write it to a file",
		Long: `Settle a recommendation graph and write it to a file.

The graph is read from a saved /api/recommend response, or fetched from the
backend with --type and --name. The force simulation runs until it cools and
the final frame is written as svg (default), png, jpg, dot or json.

PNG and JPG are rendered by Graphviz with every node pinned at its layout
position.`,
		Example: `  openchain layout saved.json -f png
  openchain layout --type repo --name spf13/cobra --find user -o cobra.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runLayout(cmd.Context(), input, q, output, format, maxTicks, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <name>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", formatSVG, "output format: svg, png, jpg, dot, json")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "simulation step limit (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the recommendation cache")
	addQueryFlags(cmd, &q)

	return cmd
}

// addQueryFlags registers the recommend query flags on cmd.
func addQueryFlags(cmd *cobra.Command, q *backend.RecommendQuery) {
	cmd.Flags().StringVarP(&q.Type, "type", "t", "", "search type: user or repo")
	cmd.Flags().StringVarP(&q.Name, "name", "n", "", "user login or owner/repo")
	cmd.Flags().StringVar(&q.Find, "find", "", "result type: user or repo (default: same as --type)")
	cmd.Flags().StringVar(&q.Count, "count", "", "number of recommendations")
}

// runLayout loads the graph, settles it and writes the requested format.
func (c *CLI) runLayout(ctx context.Context, input string, q backend.RecommendQuery, output, format string, maxTicks int, noCache bool) error {
	format = strings.ToLower(format)
	if !validLayoutFormat(format) {
		return errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if maxTicks <= 0 {
		maxTicks = cfg.Layout.MaxTicks
	}

	g, err := c.loadGraph(ctx, cfg, input, q, noCache)
	if err != nil {
		return err
	}
	if v := render.Classify(g); v.Kind != render.ViewGraph {
		printWarning("%s", v.Message)
		return errors.New(errors.ErrCodeInvalidGraph, "%s", v.Message)
	}

	r, err := graph.Resolve(g)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Settling %d nodes...", len(r.Nodes)))
	spinner.Start()
	prog := newProgress(c.Logger)
	engine := layout.New(r, layoutOptions(cfg))
	steps, err := engine.Settle(ctx, maxTicks)
	engine.Stop()
	if err != nil {
		spinner.StopWithError("Layout cancelled")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Settled %d nodes in %d steps", len(r.Nodes), steps))

	frame := engine.Frame()
	data, err := encodeFrame(ctx, frame, format, r.CenterNode().ID)
	if err != nil {
		return err
	}

	if output == "" {
		output = defaultOutputName(input, r.CenterNode().ID, format)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(len(r.Nodes), len(r.Edges), steps)
	return nil
}

// loadGraph reads input when set, otherwise fetches q from the backend.
func (c *CLI) loadGraph(ctx context.Context, cfg *config.Config, input string, q backend.RecommendQuery, noCache bool) (*graph.GraphData, error) {
	if input != "" {
		if q.Name != "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "give either a file or --name, not both")
		}
		return graph.ReadFile(input)
	}
	if q.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "a graph file or --type and --name are required")
	}
	return c.fetchGraph(ctx, cfg, q, noCache)
}

// fetchGraph runs a recommend query through a cached backend client.
func (c *CLI) fetchGraph(ctx context.Context, cfg *config.Config, q backend.RecommendQuery, noCache bool) (*graph.GraphData, error) {
	if q.Find == "" {
		q.Find = q.Type
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := checkNames(q.Name); err != nil {
		return nil, err
	}

	ch, err := openCache(ctx, cfg, noCache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer ch.Close()

	client, err := newBackend(cfg, ch)
	if err != nil {
		return nil, err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching recommendations for %s...", q.Name))
	spinner.Start()
	body, err := client.Recommend(ctx, q)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return nil, err
	}
	spinner.Stop()
	c.Logger.Debug("recommend response", "bytes", len(body))

	return graph.DecodeRecommend(body)
}

func validLayoutFormat(f string) bool {
	switch f {
	case formatSVG, formatPNG, formatJPG, formatDOT, formatJSON:
		return true
	}
	return false
}

// encodeFrame serializes f in the given format.
func encodeFrame(ctx context.Context, f layout.Frame, format, title string) ([]byte, error) {
	switch format {
	case formatSVG:
		return render.RenderSVG(f, render.WithInteraction(), render.WithTitle(title)), nil
	case formatDOT:
		return []byte(render.ToDOT(f)), nil
	case formatJSON:
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return render.RenderImage(ctx, render.ToDOT(f), format)
	}
}

// defaultOutputName derives the output path from the input file, or from the
// center id when the graph was fetched.
func defaultOutputName(input, center, format string) string {
	if input != "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(center)
	if name == "" {
		name = "graph"
	}
	return name + "." + format
}

// checkNames rejects names that cannot be GitHub logins or owner/repo pairs
// before they are sent upstream.
func checkNames(names ...string) error {
	for _, name := range names {
		if err := errors.ValidateEntityName(name); err != nil {
			return err
		}
	}
	return nil
}
