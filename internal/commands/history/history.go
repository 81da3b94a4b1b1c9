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

// Package history implements "okapictl history": list Okapi calls
// recorded in the span store.
package history

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/dataimport/internal/commands/shared"
	"github.com/tombee/dataimport/internal/server"
	"github.com/tombee/dataimport/internal/tracing"
	"github.com/tombee/dataimport/internal/tracing/storage"
)

// Response is the JSON output of the history command.
type Response struct {
	shared.JSONResponse
	Spans  []server.SpanView `json:"spans"`
	Pruned *int64            `json:"pruned,omitempty"`
}

type options struct {
	tenant string
	since  string
	errors bool
	limit  int
	where  string
	prune  bool
}

// NewCommand creates the history command.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded Okapi calls",
		Long: `List spans recorded in the tracing span store, newest first.

Requires tracing.storage.path in the config. --where takes an expression
over name, kind, tenant, status, message, trace_id, span_id, parent_id,
duration_ms and attributes.

--prune deletes spans older than tracing.storage.retention before listing.`,
		Example: `  okapictl history --since 1h --errors
  okapictl history --tenant diku --where 'duration_ms > 500'
  okapictl history --where 'attributes["http.response.status_code"] == 404' --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return run(ctx, cmd.OutOrStdout(), opts, time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Only spans for this tenant")
	cmd.Flags().StringVar(&opts.since, "since", "", "Only spans since a time (RFC 3339) or duration ago (e.g. 2h)")
	cmd.Flags().BoolVar(&opts.errors, "errors", false, "Only failed spans")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum spans to show (0 for all)")
	cmd.Flags().StringVar(&opts.where, "where", "", "Filter expression")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Delete spans past retention first")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts options, now time.Time) error {
	if opts.limit < 0 {
		return shared.NewInvalidInputError("--limit must not be negative", nil)
	}
	since, err := server.ParseSince(opts.since, now)
	if err != nil {
		return shared.NewInvalidInputError("invalid --since", err)
	}
	filter, err := CompileFilter(opts.where)
	if err != nil {
		return shared.NewInvalidInputError("invalid --where", err)
	}

	cfg, _, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Tracing.Storage.Path == "" {
		return shared.NewConfigError("span history needs tracing.storage.path", nil)
	}
	logger := shared.NewLogger(cfg)

	store, err := shared.OpenSpanStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var pruned *int64
	if opts.prune {
		rm := tracing.NewRetentionManager(store, cfg.Tracing.Storage.Retention, cfg.Tracing.Storage.CleanupInterval, logger)
		n, err := rm.CleanupNow(ctx)
		if err != nil {
			return shared.NewExecutionError("failed to prune spans", err)
		}
		pruned = &n
	}

	// The expression runs after the query, so the limit is applied here.
	query := storage.SpanFilter{Tenant: opts.tenant, Since: since, ErrorOnly: opts.errors}
	if opts.where == "" {
		query.Limit = opts.limit
	}
	spans, err := store.ListSpans(ctx, query)
	if err != nil {
		return shared.NewExecutionError("failed to list spans", err)
	}

	views := make([]server.SpanView, 0, len(spans))
	for _, s := range spans {
		if opts.limit > 0 && len(views) == opts.limit {
			break
		}
		v := server.NewSpanView(s)
		ok, err := filter.Match(v)
		if err != nil {
			return shared.NewInvalidInputError("invalid --where", err)
		}
		if ok {
			views = append(views, v)
		}
	}

	if shared.GetJSON() {
		return shared.EmitJSON(out, Response{
			JSONResponse: shared.NewEnvelope("history", true),
			Spans:        views,
			Pruned:       pruned,
		})
	}

	if pruned != nil && !shared.GetQuiet() {
		fmt.Fprintln(out, shared.Muted.Render(fmt.Sprintf("pruned %d spans", *pruned)))
	}
	printTable(out, views)
	return nil
}

func printTable(out io.Writer, views []server.SpanView) {
	if len(views) == 0 {
		fmt.Fprintln(out, shared.Muted.Render("no spans recorded"))
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, shared.Header.Render("START")+"\t"+
		shared.Header.Render("DURATION")+"\t"+
		shared.Header.Render("STATUS")+"\t"+
		shared.Header.Render("TENANT")+"\t"+
		shared.Header.Render("NAME"))
	for _, v := range views {
		status := v.Status
		if status == "error" {
			status = shared.StatusError.Render(status)
		}
		tenant := v.Tenant
		if tenant == "" {
			tenant = "-"
		}
		fmt.Fprintf(tw, "%s\t%dms\t%s\t%s\t%s\n",
			v.StartTime.Local().Format(time.DateTime), v.DurationMS, status, tenant, v.Name)
	}
	tw.Flush()
}
