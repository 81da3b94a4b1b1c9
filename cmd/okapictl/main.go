// Copyright 2025 Tom Barlow
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

// Command okapictl sends requests to FOLIO Okapi, looks up configuration
// entries, classifies MARC records and runs the data import HTTP server.
package main

import (
	"github.com/tombee/dataimport/internal/cli"
	"github.com/tombee/dataimport/internal/commands/completion"
	"github.com/tombee/dataimport/internal/commands/configvalue"
	"github.com/tombee/dataimport/internal/commands/history"
	"github.com/tombee/dataimport/internal/commands/marc"
	"github.com/tombee/dataimport/internal/commands/request"
	"github.com/tombee/dataimport/internal/commands/serve"
	versioncmd "github.com/tombee/dataimport/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Okapi commands
	cli.AddCommand(rootCmd, cli.GroupOkapi, request.NewCommand())
	cli.AddCommand(rootCmd, cli.GroupOkapi, configvalue.NewCommand())

	// Local commands
	cli.AddCommand(rootCmd, cli.GroupLocal, marc.NewCommand())
	cli.AddCommand(rootCmd, cli.GroupLocal, history.NewCommand())

	// Server
	cli.AddCommand(rootCmd, cli.GroupServer, serve.NewCommand())

	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
