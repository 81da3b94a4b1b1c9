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

package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tombee/dataimport/internal/httputil"
	"github.com/tombee/dataimport/pkg/okapi"
)

// TenantLimiter keeps one token bucket per Okapi tenant. Each bucket
// refills count tokens per interval and holds at most count.
type TenantLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewTenantLimiter allows count requests per tenant every per.
func NewTenantLimiter(count int, per time.Duration) *TenantLimiter {
	return &TenantLimiter{
		limit:    rate.Limit(float64(count) / per.Seconds()),
		burst:    count,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *TenantLimiter) limiter(tenant string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[tenant]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenant] = lim
	}
	return lim
}

// Allow reports whether tenant may make a request now. When it may not,
// the returned duration is how long until a token is available.
func (l *TenantLimiter) Allow(tenant string) (bool, time.Duration) {
	r := l.limiter(tenant).Reserve()
	delay := r.Delay()
	if delay == 0 {
		return true, 0
	}
	r.Cancel()
	return false, delay
}

// Middleware rejects requests over the tenant's limit with 429 and a
// Retry-After header. It must run inside okapi.Middleware.
func (l *TenantLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tenant string
		if params, ok := okapi.FromContext(r.Context()); ok {
			tenant = params.Tenant()
		}

		if ok, wait := l.Allow(tenant); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			httputil.WriteText(w, http.StatusTooManyRequests, "rate limit exceeded for tenant "+strconv.Quote(tenant))
			return
		}
		next.ServeHTTP(w, r)
	})
}
