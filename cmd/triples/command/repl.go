package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/internal/repl"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func NewReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Load RDF input and drop into an interactive SPARQL shell.",
		Long: "Data piped to stdin is loaded before the prompt starts. Use -i to load\n" +
			"a file instead.",
		Args: cobra.NoArgs,
		PreRunE: bindKeys(map[string]string{
			KeyQueryTimeout: "timeout",
			KeyReplHistory:  "history",
			KeyLoadFormat:   flagLoadFormat,
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := replGraph(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()
			return repl.Run(ctx, g, repl.Config{
				History: viper.GetString(KeyReplHistory),
				Timeout: viper.GetDuration(KeyQueryTimeout),
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			})
		},
	}
	cmd.Flags().DurationP("timeout", "t", 0, "elapsed time until an individual query times out")
	cmd.Flags().String("history", "", "file to keep the line history in")
	registerLoadFlags(cmd, "")
	return cmd
}

// replGraph loads the file given with -i, or stdin when it is not a
// terminal.
func replGraph(cmd *cobra.Command) (*triples.Graph, error) {
	g := triples.NewGraph()
	load, _ := cmd.Flags().GetString(flagLoad)
	if load == "" && stdinIsTerminal() {
		fmt.Fprintln(cmd.ErrOrStderr(), "No input provided. Starting with an empty graph.")
		fmt.Fprintln(cmd.ErrOrStderr(), "Pipe in data (cat data.ttl | triples repl) or use -i.")
		return g, nil
	} else if load == "" {
		load = "-"
	}
	if err := loadInputs(cmd, g, []string{load}); err != nil {
		return nil, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d triples\n", g.Len())
	return g, nil
}
