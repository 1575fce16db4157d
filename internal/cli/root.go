package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Execute runs the openchain CLI with args. Logs go to stderr at info level,
// or debug level with --verbose (-v). The logger is attached to the command
// context and reachable through loggerFromContext.
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Args[1:], os.Stderr); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, args []string, stderr io.Writer) error {
	var verbose bool

	c := New(stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	}

	return root.ExecuteContext(ctx)
}
