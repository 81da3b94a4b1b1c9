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

// Package marc implements "okapictl marc": classify MARC JSON records
// from files or stdin by their leader.
package marc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tombee/dataimport/internal/commands/completion"
	"github.com/tombee/dataimport/internal/commands/shared"
	"github.com/tombee/dataimport/pkg/marc"
)

// Classification is the result for one record.
type Classification struct {
	File       string          `json:"file"`
	Index      int             `json:"index"`
	RecordType marc.RecordType `json:"record_type"`
}

// Response is the JSON output of the marc command.
type Response struct {
	shared.JSONResponse
	Records []Classification `json:"records"`
	Counts  map[string]int   `json:"counts"`
}

const stdinName = "-"

// NewCommand creates the marc command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "marc [file|glob...]",
		Short: "Classify MARC JSON records by leader",
		Long: `Classify MARC JSON records as BIB, HOLDING, AUTHORITY or NA from the
sixth character of their leader.

Each input holds one or more JSON records, either concatenated (JSON
lines) or as a top-level array. Arguments may be doublestar globs such
as "records/**/*.json". With no arguments, records are read from stdin.`,
		Example: `  okapictl marc record.json
  okapictl marc 'exports/**/*.jsonl' --json
  cat record.json | okapictl marc`,
		ValidArgsFunction: completion.CompleteRecordFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			analyzer := marc.NewMarcAnalyzer(shared.NewLogger(cfg))

			files, err := expandInputs(args)
			if err != nil {
				return err
			}

			var results []Classification
			for _, name := range files {
				got, err := classifyInput(analyzer, name, cmd.InOrStdin())
				if err != nil {
					return err
				}
				results = append(results, got...)
			}

			if shared.GetJSON() {
				counts := make(map[string]int)
				for _, r := range results {
					counts[r.RecordType.String()]++
				}
				if results == nil {
					results = []Classification{}
				}
				return shared.EmitJSON(cmd.OutOrStdout(), Response{
					JSONResponse: shared.NewEnvelope("marc", true),
					Records:      results,
					Counts:       counts,
				})
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				if len(files) > 1 {
					fmt.Fprintf(out, "%s:%d\t%s\n", r.File, r.Index, r.RecordType)
				} else {
					fmt.Fprintln(out, r.RecordType)
				}
			}
			return nil
		},
	}
}

// expandInputs resolves globs into file names. No arguments means stdin.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{stdinName}, nil
	}

	var files []string
	for _, arg := range args {
		if arg == stdinName || !strings.ContainsAny(arg, "*?[{") {
			files = append(files, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, shared.NewInvalidInputError(fmt.Sprintf("invalid glob %q", arg), err)
		}
		if len(matches) == 0 {
			return nil, shared.NewInvalidInputError(fmt.Sprintf("no files match %q", arg), nil)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func classifyInput(analyzer *marc.MarcAnalyzer, name string, stdin io.Reader) ([]Classification, error) {
	var r io.Reader = stdin
	if name != stdinName {
		f, err := os.Open(name)
		if err != nil {
			return nil, shared.NewInvalidInputError(fmt.Sprintf("cannot open %s", name), err)
		}
		defer f.Close()
		r = f
	}

	records, err := decodeRecords(r)
	if err != nil {
		return nil, shared.NewInvalidInputError(fmt.Sprintf("%s is not valid JSON", name), err)
	}

	out := make([]Classification, 0, len(records))
	for i, rec := range records {
		out = append(out, Classification{File: name, Index: i, RecordType: analyzer.ProcessJSON(rec)})
	}
	return out, nil
}

// decodeRecords reads a stream of JSON values. Top-level arrays are
// flattened into their elements.
func decodeRecords(r io.Reader) ([]json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var records []json.RawMessage
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			var elems []json.RawMessage
			if err := json.Unmarshal(trimmed, &elems); err != nil {
				return nil, err
			}
			records = append(records, elems...)
			continue
		}
		records = append(records, raw)
	}
}
