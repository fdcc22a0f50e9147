// Copyright 2024 The Cayley Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package command implements the subcommands of the triples tool.
package command

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/internal"
	"github.com/cayleygraph/triples/internal/csvttl"
	"github.com/cayleygraph/triples/internal/format"
)

const (
	KeyQueryTimeout = "query.timeout"
	KeyQueryFormat  = "query.format"
	KeyCSVBase      = "csv.base"
	KeyReplHistory  = "repl.history"
	KeyLoadFormat   = "load.format"
)

const (
	flagLoad       = "load"
	flagLoadFormat = "load_format"
	flagDump       = "dump"
	flagDumpFormat = "dump_format"
)

// SetDefaults registers the default value of every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyQueryTimeout, 30*time.Second)
	v.SetDefault(KeyQueryFormat, format.Table)
	v.SetDefault(KeyCSVBase, csvttl.DefaultBase)
	v.SetDefault(KeyReplHistory, ".triples_history")
	v.SetDefault(KeyLoadFormat, "")
}

func formatNames(reader bool) []string {
	var names []string
	for _, f := range quad.Formats() {
		if (reader && f.Reader != nil) || (!reader && f.Writer != nil) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

func registerLoadFlags(cmd *cobra.Command, def string) {
	cmd.Flags().StringP(flagLoad, "i", def, `RDF file to load (".gz" and ".bz2" supported, "-" for stdin)`)
	cmd.Flags().String(flagLoadFormat, "", `input format to use instead of auto-detection ("`+strings.Join(formatNames(true), `", "`)+`")`)
}

func registerDumpFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagDump, "o", "", `file to write to (".gz" supported, "-" for stdout)`)
	cmd.Flags().String(flagDumpFormat, "", `output format to use instead of auto-detection ("`+strings.Join(formatNames(false), `", "`)+`")`)
}

// bindKeys binds configuration keys to flags of the running command. Binding
// happens before the command runs since several commands share a key.
func bindKeys(keys map[string]string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for key, name := range keys {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		return nil
	}
}

// loadInputs reads every path into g. The path "-" reads the command input.
func loadInputs(cmd *cobra.Command, g *triples.Graph, paths []string) error {
	typ := viper.GetString(KeyLoadFormat)
	for _, path := range paths {
		var err error
		if path == "-" {
			err = internal.Read(g, cmd.InOrStdin(), path, typ)
		} else {
			err = internal.Load(g, path, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func getContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		select {
		case <-ch:
		case <-ctx.Done():
		}
		signal.Stop(ch)
		cancel()
	}()
	return ctx, cancel
}
