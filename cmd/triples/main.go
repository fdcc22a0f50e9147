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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cayleygraph/triples/cmd/triples/command"
	"github.com/cayleygraph/triples/version"

	// Log through glog.
	_ "github.com/cayleygraph/triples/clog/glog"
)

func main() {
	root := command.NewRootCmd()
	root.Version = version.Version
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		// glog writes to files by default; keep diagnostics on stderr.
		if f.Name == "logtostderr" {
			f.Value.Set("true")
			f.DefValue = "true"
		}
		root.PersistentFlags().AddGoFlag(f)
	})
	// Silence glog's complaint about flags not being parsed by the flag package.
	flag.CommandLine.Parse([]string{})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
