package command

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cayleygraph/triples/clog"
)

// NewRootCmd returns the triples command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "triples",
		Short: "A file-oriented tool for RDF triples.",
		Long: "triples converts CSV to Turtle, merges and converts RDF documents\n" +
			"and runs SPARQL queries against them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			return initConfig(file)
		},
	}
	root.PersistentFlags().StringP("config", "c", "", "path to an explicit configuration file")
	root.AddCommand(
		NewCSV2TTLCmd(),
		NewMergeCmd(),
		NewQueryCmd(),
		NewReplCmd(),
		NewConvertCmd(),
		NewVersionCmd(),
	)
	return root
}

func initConfig(file string) error {
	viper.SetConfigName("triples")
	viper.SetEnvPrefix("triples")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.triples/")
	viper.AddConfigPath("/etc/")
	SetDefaults(viper.GetViper())
	if file != "" {
		viper.SetConfigFile(file)
	}
	err := viper.ReadInConfig()
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) {
		return nil
	} else if err != nil {
		return err
	}
	clog.Infof("using config file: %s", viper.ConfigFileUsed())
	return nil
}
