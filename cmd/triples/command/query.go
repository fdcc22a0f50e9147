package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/internal/format"
)

func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"qu"},
		Short:   "Run a SPARQL query against RDF input and print the results.",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: bindKeys(map[string]string{
			KeyQueryFormat:  "format",
			KeyQueryTimeout: "timeout",
			KeyLoadFormat:   flagLoadFormat,
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("query")
			if text == "" && len(args) == 1 {
				text = args[0]
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("a query must be given with -q")
			}
			out := viper.GetString(KeyQueryFormat)
			if err := format.Check(out); err != nil {
				return err
			}
			if clog.V(1) {
				clog.Infof("Query:\n%s", text)
			}

			load, _ := cmd.Flags().GetString(flagLoad)
			g := triples.NewGraph()
			if err := loadInputs(cmd, g, []string{load}); err != nil {
				return err
			}

			ctx, cancel := getContext()
			defer cancel()
			if timeout := viper.GetDuration(KeyQueryTimeout); timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			res, err := g.Query(ctx, text)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			return format.Write(cmd.OutOrStdout(), res, out)
		},
	}
	cmd.Flags().StringP("query", "q", "", "SPARQL query string")
	cmd.Flags().StringP("format", "f", format.Table, `output format ("`+strings.Join(format.Names(), `", "`)+`")`)
	cmd.Flags().DurationP("timeout", "t", 0, "elapsed time until the query times out")
	registerLoadFlags(cmd, "-")
	return cmd
}
