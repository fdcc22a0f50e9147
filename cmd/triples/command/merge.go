package command

import (
	"github.com/spf13/cobra"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
)

func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [files...]",
		Short: "Merge RDF documents into one Turtle document.",
		Long: "Every input is parsed on its own, so blank nodes of different inputs\n" +
			"stay distinct. A prefix bound to different namespaces is renamed.\n" +
			"Reads stdin when no file is given.",
		PreRunE: bindKeys(map[string]string{KeyLoadFormat: flagLoadFormat}),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if load, _ := cmd.Flags().GetString(flagLoad); load != "" {
				files = append(files, load)
			}
			files = append(files, args...)
			if len(files) == 0 {
				files = []string{"-"}
			}
			g := triples.NewGraph()
			if err := loadInputs(cmd, g, files); err != nil {
				return err
			}
			if clog.V(1) {
				clog.Infof("merged %d inputs into %d triples", len(files), g.Len())
			}
			return g.WriteTurtle(cmd.OutOrStdout())
		},
	}
	registerLoadFlags(cmd, "")
	return cmd
}
