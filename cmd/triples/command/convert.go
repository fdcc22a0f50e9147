package command

import (
	"errors"
	"fmt"

	"github.com/cayleygraph/quad"
	"github.com/spf13/cobra"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/internal"
)

func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "convert [files...] output",
		Aliases: []string{"conv"},
		Short:   "Convert RDF files between supported formats.",
		Long: "Formats are detected from file extensions unless given explicitly.\n" +
			"All inputs are merged before writing.",
		PreRunE: bindKeys(map[string]string{KeyLoadFormat: flagLoadFormat}),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, _ := cmd.Flags().GetString(flagDump)
			dumpf, _ := cmd.Flags().GetString(flagDumpFormat)
			if dump == "" && len(args) > 0 {
				i := len(args) - 1
				dump, args = args[i], args[:i]
			}

			var files []string
			if load, _ := cmd.Flags().GetString(flagLoad); load != "" {
				files = append(files, load)
			}
			files = append(files, args...)
			if len(files) == 0 || dump == "" {
				return errors.New("both input and output files must be specified")
			}
			f, err := internal.WriterFormat(dump, dumpf)
			if err != nil {
				return err
			}

			g := triples.NewGraph()
			for _, path := range files {
				clog.Infof("reading %q", path)
				if err := loadInputs(cmd, g, []string{path}); err != nil {
					return err
				}
			}
			return writeGraph(cmd, g, dump, f)
		},
	}
	registerLoadFlags(cmd, "")
	registerDumpFlags(cmd)
	return cmd
}

// writeGraph writes g to path, or to the command output for "-".
func writeGraph(cmd *cobra.Command, g *triples.Graph, path string, f *quad.Format) error {
	if path == "-" {
		return internal.Dump(g, cmd.OutOrStdout(), f)
	}
	w, err := internal.Create(path)
	if err != nil {
		return err
	}
	if err := internal.Dump(g, w, f); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d triples were written to %q\n", g.Len(), path)
	return nil
}
