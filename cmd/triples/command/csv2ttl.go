package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/internal/csvttl"
)

func NewCSV2TTLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv2ttl",
		Short: "Convert a CSV table on stdin to Turtle on stdout.",
		Long: "The first row holds the column names, which become predicates. Every\n" +
			"other row becomes a subject with one triple per non-empty cell.",
		Args:    cobra.NoArgs,
		PreRunE: bindKeys(map[string]string{KeyCSVBase: "base"}),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cmd.Flags().GetInt("subject-column")
			if err != nil {
				return err
			}
			g := triples.NewGraph()
			rows, err := csvttl.Convert(g, cmd.InOrStdin(), csvttl.Options{
				Base:          viper.GetString(KeyCSVBase),
				SubjectColumn: col,
			})
			if err != nil {
				return err
			}
			if clog.V(1) {
				clog.Infof("converted %d rows into %d triples", rows, g.Len())
			}
			return g.WriteTurtle(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringP("base", "b", csvttl.DefaultBase, "base IRI for generated subjects and predicates")
	cmd.Flags().IntP("subject-column", "s", -1, "zero-based column to use as subject; random UUIDs when negative")
	return cmd
}
