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

// Package configuration reads module settings from the Okapi
// configuration module (mod-configuration).
package configuration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tombee/dataimport/internal/jq"
	"github.com/tombee/dataimport/pkg/cql"
	dierrors "github.com/tombee/dataimport/pkg/errors"
	"github.com/tombee/dataimport/pkg/future"
	"github.com/tombee/dataimport/pkg/okapi"
	"github.com/tombee/dataimport/pkg/rest"
)

// DefaultModule is the configuration module code entries are filed under.
const DefaultModule = "DATA_IMPORT"

// EntriesPath is the configuration entries endpoint.
const EntriesPath = "/configurations/entries"

// ErrNoConfigValues is returned when no entry matches the code.
var ErrNoConfigValues = errors.New("no config values was found")

var (
	totalRecords = jq.MustCompile(".totalRecords // 0")
	firstValue   = jq.MustCompile(".configs[0].value")
)

// Client looks up configuration entries through an Executor.
type Client struct {
	exec   *rest.Executor
	module string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithModule overrides DefaultModule.
func WithModule(module string) Option {
	return func(c *Client) { c.module = module }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client issuing requests with exec.
func NewClient(exec *rest.Executor, opts ...Option) *Client {
	c := &Client{exec: exec, module: DefaultModule, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the CQL query selecting code within module.
func Query(module, code string) string {
	return "module==" + module + " AND ( code==" + cql.Quote(code) + ")"
}

// EntriesRequestPath returns the entries path with query, offset and limit.
func EntriesRequestPath(module, code string) string {
	w := cql.NewQuery(Query(module, code)).WithOffset(0).WithLimit(3)
	return EntriesPath + "?" + w.Values().Encode()
}

// PropertyByCode resolves the value of the first entry with code. The
// future fails with ErrNoConfigValues when there is none, with a
// ValidationError for an empty code, and with a transport error or a
// status error when the lookup itself fails.
func (c *Client) PropertyByCode(ctx context.Context, params okapi.ConnectionParams, code string) *future.Future[string] {
	if code == "" {
		return future.Failed[string](&dierrors.ValidationError{
			Field:   "code",
			Message: "configuration code must not be empty",
		})
	}
	path := EntriesRequestPath(c.module, code)
	return future.Then(c.exec.Do(ctx, params, path, http.MethodGet, nil), func(resp *rest.WrappedResponse, err error) (string, error) {
		if err != nil {
			return "", err
		}
		return c.extract(ctx, params, code, resp)
	})
}

func (c *Client) extract(ctx context.Context, params okapi.ConnectionParams, code string, resp *rest.WrappedResponse) (string, error) {
	if resp.Code() != http.StatusOK {
		return "", fmt.Errorf("expected status code 200, got '%d' : %s", resp.Code(), resp.Body())
	}

	body, ok := resp.JSON()
	if !ok {
		return "", fmt.Errorf("configuration response is not JSON: %s", resp.Body())
	}

	total, err := totalRecords.First(ctx, body)
	if err != nil {
		return "", dierrors.Wrap(err, "reading totalRecords")
	}
	if n, _ := total.(float64); n <= 0 {
		c.logger.Debug("no configuration entry", "module", c.module, "code", code, "tenant", params.Tenant())
		return "", ErrNoConfigValues
	}

	value, err := firstValue.First(ctx, body)
	if err != nil {
		return "", dierrors.Wrapf(err, "reading value of %s", code)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("configuration %s has a non-string value: %v", code, value)
	}
	return s, nil
}
