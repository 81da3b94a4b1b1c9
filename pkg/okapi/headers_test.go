package okapi

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders_CaseInsensitive(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Okapi-Tenant", "diku")

	assert.Equal(t, "diku", h.Get("x-okapi-tenant"))
	assert.Equal(t, "diku", h.Get("X-OKAPI-TENANT"))
	assert.True(t, h.Has("x-OKAPI-tenant"))

	h.Set("x-okapi-tenant", "other")
	assert.Equal(t, []string{"X-Okapi-Tenant"}, h.Names(), "first spelling is kept")
	assert.Equal(t, "other", h.Get("X-Okapi-Tenant"))
}

func TestHeaders_OrderAndMultipleValues(t *testing.T) {
	h := NewHeaders()
	h.Add("b", "1")
	h.Add("a", "1")
	h.Add("B", "2")
	h.Add("c", "1")

	assert.Equal(t, []string{"b", "a", "c"}, h.Names())
	assert.Equal(t, []string{"1", "2"}, h.Values("b"))

	var got [][2]string
	h.Each(func(name, value string) {
		got = append(got, [2]string{name, value})
	})
	want := [][2]string{{"b", "1"}, {"b", "2"}, {"a", "1"}, {"c", "1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Each() mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaders_Del(t *testing.T) {
	h := NewHeaders()
	h.Add("a", "1")
	h.Add("b", "2")
	h.Add("c", "3")

	h.Del("B")
	assert.Equal(t, []string{"a", "c"}, h.Names())
	assert.Equal(t, "3", h.Get("c"))

	h.Del("missing")
	assert.Equal(t, 2, h.Len())
}

func TestHeaders_CloneIsIndependent(t *testing.T) {
	h := NewHeaders()
	h.Add("x-okapi-token", "t")
	h.Add("accept", "text/plain")

	c := h.Clone()
	c.Set("accept", "application/json")
	c.Add("accept", "text/plain")
	c.Del("x-okapi-token")

	assert.Equal(t, "t", h.Get("x-okapi-token"))
	assert.Equal(t, []string{"text/plain"}, h.Values("accept"))
	assert.Equal(t, []string{"application/json", "text/plain"}, c.Values("accept"))
}

func TestHeaders_Without(t *testing.T) {
	h := HeadersFromMap(map[string]string{
		"x-okapi-url":    "http://h:1234",
		"x-okapi-tenant": "diku",
		"x-okapi-token":  "t",
	})

	stripped := h.Without(HeaderToken)

	assert.False(t, stripped.Has(HeaderToken))
	assert.Equal(t, "diku", stripped.Get(HeaderTenant))
	assert.True(t, h.Has(HeaderToken), "receiver must not change")
}

func TestHeaders_FromHTTP(t *testing.T) {
	src := http.Header{}
	src.Add("X-Okapi-Url", "http://h:1234")
	src.Add("Accept", "a")
	src.Add("Accept", "b")

	h := HeadersFromHTTP(src)
	assert.Equal(t, []string{"Accept", "X-Okapi-Url"}, h.Names())
	assert.Equal(t, []string{"a", "b"}, h.Values("accept"))

	out := h.HTTP()
	if diff := cmp.Diff(src, out); diff != "" {
		t.Errorf("HTTP() mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaders_NilSafe(t *testing.T) {
	var h *Headers
	assert.Equal(t, "", h.Get("a"))
	assert.False(t, h.Has("a"))
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Values("a"))

	c := h.Clone()
	require.NotNil(t, c)
	c.Add("a", "1")
	assert.Equal(t, "1", c.Get("a"))
}

func TestHeaders_ZeroValueUsable(t *testing.T) {
	var h Headers
	h.Set("a", "1")
	assert.Equal(t, map[string]string{"a": "1"}, h.Map())
}
