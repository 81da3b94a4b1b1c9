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

// Package request implements "okapictl request": one call against Okapi,
// classified the way the data import services classify every exchange.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/dataimport/internal/cli/format"
	"github.com/tombee/dataimport/internal/commands/completion"
	"github.com/tombee/dataimport/internal/commands/shared"
	internallog "github.com/tombee/dataimport/internal/log"
	dierrors "github.com/tombee/dataimport/pkg/errors"
	"github.com/tombee/dataimport/pkg/okapi"
	"github.com/tombee/dataimport/pkg/rest"
)

// Options holds the request command flags.
type Options struct {
	URL        string
	Tenant     string
	Token      string
	Timeout    int
	Data       string
	DataFile   string
	Headers    []string
	SystemUser bool
}

// Response is the JSON output of the request command.
type Response struct {
	shared.JSONResponse
	Method  string          `json:"method"`
	Path    string          `json:"path"`
	Outcome string          `json:"outcome"`
	Kind    string          `json:"kind,omitempty"`
	Status  int             `json:"status,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
	Text    string          `json:"text,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewCommand creates the request command.
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send one request to Okapi",
		Long: `Send a single request to Okapi and classify the response.

The target, tenant and token come from flags, falling back to the config
file and the OKAPI_URL, OKAPI_TENANT and OKAPI_TOKEN variables. The path is
appended to the base URL verbatim.

Responses are classified as success (200, 201, 204), partial success (500
with a JSON body) or failure. Failures exit with status 4.

With --system-user the token is dropped when system-user mode is on
(SYSTEM_USER_ENABLED=false or system_user.enabled: false).`,
		Example: `  # Fetch an instance
  okapictl request GET /instance-storage/instances/7fbd5d84

  # Create a record from a file
  okapictl request POST /source-storage/records --data-file record.json

  # Send under system identity with a short timeout
  okapictl request PUT /jobs/1 --data '{"status":"done"}' --system-user --timeout 2000`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completion.CompleteMethods,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, strings.ToUpper(args[0]), args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "Okapi base URL (overrides config)")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "Okapi tenant (overrides config)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "Okapi token (overrides config)")
	cmd.Flags().IntVar(&opts.Timeout, "timeout", 0, "Request timeout in milliseconds (default from config, then 30000)")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVar(&opts.DataFile, "data-file", "", "Read the JSON request body from a file (- for stdin)")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	cmd.Flags().BoolVar(&opts.SystemUser, "system-user", false, "Call under system identity")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")

	return cmd
}

func run(cmd *cobra.Command, method, path string, opts Options) error {
	if !slices.Contains(completion.Methods, method) {
		return shared.NewInvalidInputError("unsupported method", &dierrors.ValidationError{
			Field:      "method",
			Message:    fmt.Sprintf("%q is not supported", method),
			Suggestion: "use one of " + strings.Join(completion.Methods, ", "),
		})
	}

	payload, err := readPayload(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	params := rt.Params(opts.URL, opts.Tenant, opts.Token, opts.Timeout)
	if len(opts.Headers) > 0 {
		headers, err := withExtraHeaders(params.Headers(), opts.Headers)
		if err != nil {
			return err
		}
		params = params.WithHeaders(headers)
	}
	rt.Logger.Debug("okapi connection",
		internallog.URLKey, params.URL(),
		internallog.TenantKey, params.Tenant(),
		"token", internallog.SanitizeToken(params.Token()),
		"token_subject", params.Claims().Subject,
		"timeout_ms", params.TimeoutMillis(),
	)

	exec := rt.Executor.Do
	if opts.SystemUser {
		exec = rt.Executor.DoWithSystemUser
	}
	resp, err := exec(ctx, params, path, method, payload).Await(ctx)
	result := rest.NewClassifier(rt.Logger).Classify(resp, err)

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), newResponse(method, path, result)); err != nil {
			return shared.NewExecutionError("failed to write output", err)
		}
	} else {
		if err := printResult(cmd, result); err != nil {
			return err
		}
	}

	if !result.OK() {
		return shared.NewRemoteError(fmt.Sprintf("%s %s failed", method, path), result.Err)
	}
	return nil
}

func readPayload(stdin io.Reader, opts Options) (rest.Body, error) {
	var data []byte
	switch {
	case opts.Data != "":
		data = []byte(opts.Data)
	case opts.DataFile == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, shared.NewInvalidInputError("failed to read body from stdin", err)
		}
		data = b
	case opts.DataFile != "":
		b, err := os.ReadFile(opts.DataFile)
		if err != nil {
			return nil, shared.NewInvalidInputError("failed to read body file", err)
		}
		data = b
	default:
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, shared.NewInvalidInputError("invalid request body", &dierrors.ValidationError{
			Field:      "data",
			Message:    "body is not valid JSON",
			Suggestion: "quote the payload for your shell, e.g. --data '{\"a\":1}'",
		})
	}
	return rest.RawJSON(data), nil
}

func withExtraHeaders(h *okapi.Headers, raw []string) (*okapi.Headers, error) {
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, shared.NewInvalidInputError("invalid header", &dierrors.ValidationError{
				Field:   "header",
				Message: fmt.Sprintf("%q is not 'Name: value'", line),
			})
		}
		h.Set(name, strings.TrimSpace(value))
	}
	return h, nil
}

func newResponse(method, path string, r rest.Result) Response {
	out := Response{
		JSONResponse: shared.NewEnvelope("request", r.OK()),
		Method:       method,
		Path:         path,
		Outcome:      r.Outcome.String(),
	}
	if !r.OK() {
		out.Kind = r.Kind.String()
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if r.Response != nil {
		out.Status = r.Response.Code()
		if _, ok := r.Response.JSON(); ok {
			out.Body = json.RawMessage(r.Response.Body())
		} else {
			out.Text = r.Response.Body()
		}
	}
	return out
}

func printResult(cmd *cobra.Command, r rest.Result) error {
	if !shared.GetQuiet() {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderOutcome(r))
	}
	if r.Response == nil || r.Response.Body() == "" {
		return nil
	}

	out := cmd.OutOrStdout()
	body, err := format.FormatBody(r.Response.Body(), r.Response.ContentType(), format.IsTerminal(out))
	if err != nil {
		return shared.NewExecutionError("failed to format response", err)
	}
	fmt.Fprintln(out, body)
	return nil
}
