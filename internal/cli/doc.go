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

/*
Package cli provides the root command and shared configuration for okapictl.

This package creates the root Cobra command and handles global concerns like
version information, persistent flags and error handling. Individual commands
are implemented in the internal/commands subpackages and added by main.

# Command Tree

	okapictl
	├── request       Send a request to Okapi and classify the response
	├── config-value  Look up a mod-configuration entry
	├── marc          Classify MARC JSON records
	├── history       List recorded Okapi calls
	├── serve         Run the HTTP server
	├── completion    Generate shell completion scripts
	├── version       Show version
	└── help          Show help

# Global Flags

	--verbose, -v    Enable verbose output
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Exit Codes

  - 0: Success, including partial success (a 500 with a JSON body)
  - 1: Local failure
  - 2: Invalid arguments or payload
  - 3: Configuration error
  - 4: Okapi call failed
*/
package cli
