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

// Package configvalue implements "okapictl config-value": resolve one
// mod-configuration entry by code.
package configvalue

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/dataimport/internal/commands/shared"
	"github.com/tombee/dataimport/internal/configuration"
	dierrors "github.com/tombee/dataimport/pkg/errors"
)

// Response is the JSON output of the config-value command.
type Response struct {
	shared.JSONResponse
	Module string `json:"module"`
	Code   string `json:"code"`
	Value  string `json:"value"`
}

// NewCommand creates the config-value command.
func NewCommand() *cobra.Command {
	var (
		module string
		url    string
		tenant string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "config-value <code>",
		Short: "Look up a configuration entry by code",
		Long: `Look up the value of the first mod-configuration entry with the given
code in the configured module (DATA_IMPORT unless overridden).

Exits with status 4 when no entry matches or the lookup fails.`,
		Example: `  okapictl config-value BATCH_SIZE
  okapictl config-value OKAPI_URL --module CUSTOM --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rt, err := shared.NewRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			if module == "" {
				module = rt.Config.Configuration.Module
			}
			client := configuration.NewClient(rt.Executor,
				configuration.WithModule(module),
				configuration.WithLogger(rt.Logger),
			)

			code := args[0]
			params := rt.Params(url, tenant, token, 0)
			value, err := client.PropertyByCode(ctx, params, code).Await(ctx)
			var invalid *dierrors.ValidationError
			if errors.As(err, &invalid) {
				return shared.NewInvalidInputError(invalid.Message, err)
			}
			if err != nil {
				return shared.NewRemoteError(fmt.Sprintf("lookup of %s/%s failed", module, code), err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), Response{
					JSONResponse: shared.NewEnvelope("config-value", true),
					Module:       module,
					Code:         code,
					Value:        value,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Configuration module (default from config)")
	cmd.Flags().StringVar(&url, "url", "", "Okapi base URL (overrides config)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Okapi tenant (overrides config)")
	cmd.Flags().StringVar(&token, "token", "", "Okapi token (overrides config)")

	return cmd
}
