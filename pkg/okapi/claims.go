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

package okapi

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the identity claims Okapi puts into its tokens.
type TokenClaims struct {
	Subject string
	UserID  string
	Tenant  string
}

// ParseTokenClaims decodes the claims of an Okapi token without verifying
// its signature. Okapi verifies tokens at the gateway; the claims are only
// used here to annotate logs.
func ParseTokenClaims(token string) (TokenClaims, error) {
	if token == "" {
		return TokenClaims{}, fmt.Errorf("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("failed to decode token: %w", err)
	}

	var tc TokenClaims
	tc.Subject, _ = claims.GetSubject()
	tc.UserID, _ = claims["user_id"].(string)
	tc.Tenant, _ = claims["tenant"].(string)
	return tc, nil
}

// Claims decodes the claims of p's token. It returns zero claims when the
// token is absent or not a JWT.
func (p ConnectionParams) Claims() TokenClaims {
	tc, err := ParseTokenClaims(p.token)
	if err != nil {
		return TokenClaims{}
	}
	return tc
}
