package okapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionParams_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"nil map", nil},
		{"empty map", map[string]string{}},
		{"unrelated headers", map[string]string{"accept": "text/plain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromMap(tt.headers)
			assert.Equal(t, "localhost", p.URL())
			assert.Equal(t, "", p.Tenant())
			assert.Equal(t, "", p.Token())
			assert.Equal(t, 30000, p.TimeoutMillis())
			assert.Equal(t, 30*time.Second, p.Timeout())
		})
	}
}

func TestNewConnectionParams_FromHeaders(t *testing.T) {
	p := FromMap(map[string]string{
		"X-Okapi-Url":    "http://h:1234",
		"X-Okapi-Tenant": "diku",
		"X-Okapi-Token":  "t",
		"X-Custom":       "v",
	}, WithTimeout(5000))

	assert.Equal(t, "http://h:1234", p.URL())
	assert.Equal(t, "diku", p.Tenant())
	assert.Equal(t, "t", p.Token())
	assert.Equal(t, 5000, p.TimeoutMillis())
	assert.Equal(t, "v", p.Headers().Get("x-custom"))
	assert.Equal(t, 4, p.Headers().Len())
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	assert.Equal(t, DefaultTimeoutMillis, FromMap(nil, WithTimeout(0)).TimeoutMillis())
	assert.Equal(t, DefaultTimeoutMillis, FromMap(nil, WithTimeout(-1)).TimeoutMillis())
}

func TestConnectionParams_Immutable(t *testing.T) {
	src := HeadersFromMap(map[string]string{HeaderTenant: "diku", HeaderToken: "t"})
	p := NewConnectionParams(src)

	src.Set(HeaderTenant, "changed")
	assert.Equal(t, "diku", p.Headers().Get(HeaderTenant), "construction copies the header set")

	got := p.Headers()
	got.Del(HeaderToken)
	assert.True(t, p.Headers().Has(HeaderToken), "accessor returns a copy")
}

func TestConnectionParams_WithHeaders(t *testing.T) {
	p := FromMap(map[string]string{HeaderURL: "http://h:1234", HeaderTenant: "diku", HeaderToken: "t"})

	replaced := p.WithHeaders(HeadersFromMap(map[string]string{"x-other": "1"}))

	assert.Equal(t, "http://h:1234", replaced.URL())
	assert.Equal(t, "t", replaced.Token())
	assert.Equal(t, []string{"x-other"}, replaced.Headers().Names())
	assert.Equal(t, 3, p.Headers().Len(), "original keeps its headers")
}

func TestForSystemUser(t *testing.T) {
	headers := HeadersFromMap(map[string]string{
		HeaderURL:    "http://h:1234",
		HeaderTenant: "diku",
		HeaderToken:  "t",
	})

	t.Run("enabled strips token", func(t *testing.T) {
		p := ForSystemUser(headers, StaticPolicy(true))
		assert.Equal(t, "", p.Token())
		assert.False(t, p.Headers().Has(HeaderToken))
		assert.Equal(t, "diku", p.Tenant())
		assert.Equal(t, "http://h:1234", p.URL())
		assert.True(t, headers.Has(HeaderToken), "input must not change")
	})

	t.Run("disabled keeps token", func(t *testing.T) {
		p := ForSystemUser(headers, StaticPolicy(false))
		assert.Equal(t, "t", p.Token())
		assert.True(t, p.Headers().Has(HeaderToken))
	})

	t.Run("policy is consulted per call", func(t *testing.T) {
		enabled := false
		policy := PolicyFunc(func() bool { return enabled })

		assert.Equal(t, "t", ForSystemUser(headers, policy).Token())
		enabled = true
		assert.Equal(t, "", ForSystemUser(headers, policy).Token())
	})

	t.Run("nil policy keeps token", func(t *testing.T) {
		assert.Equal(t, "t", ForSystemUser(headers, nil).Token())
	})
}

func TestMiddleware(t *testing.T) {
	var got ConnectionParams
	var ok bool
	handler := Middleware(WithTimeout(1000))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Okapi-Url", "http://okapi:9130")
	req.Header.Set("X-Okapi-Tenant", "diku")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	assert.Equal(t, "http://okapi:9130", got.URL())
	assert.Equal(t, "diku", got.Tenant())
	assert.Equal(t, 1000, got.TimeoutMillis())
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestParseTokenClaims(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     "diku_admin",
		"user_id": "1ad737b0-d847-11e6-bf26-cec0c932ce01",
		"tenant":  "diku",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := ParseTokenClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "diku_admin", claims.Subject)
	assert.Equal(t, "1ad737b0-d847-11e6-bf26-cec0c932ce01", claims.UserID)
	assert.Equal(t, "diku", claims.Tenant)

	p := FromMap(map[string]string{HeaderToken: token})
	assert.Equal(t, "diku", p.Claims().Tenant)
}

func TestParseTokenClaims_Invalid(t *testing.T) {
	_, err := ParseTokenClaims("")
	assert.Error(t, err)

	_, err = ParseTokenClaims("not-a-jwt")
	assert.Error(t, err)

	assert.Equal(t, TokenClaims{}, FromMap(map[string]string{HeaderToken: "dummy"}).Claims())
}
