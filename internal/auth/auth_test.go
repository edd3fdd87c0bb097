package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/cache"
	"finanzas/internal/core"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer   abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer ", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, BearerToken(r), "header %q", tt.header)
	}
}

func TestGoTrueResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"user-1","email":"a@b.co"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	r := NewGoTrueResolver(srv.URL+"/", "anon-key", srv.Client())
	ctx := context.Background()

	user, err := r.ResolveCaller(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user)

	_, err = r.ResolveCaller(ctx, "expired")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = r.ResolveCaller(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = r.ResolveCaller(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUnauthenticated)
}

func TestParseStaticTokens(t *testing.T) {
	users, err := ParseStaticTokens(" dev-token:user-1 , ci:user-2,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dev-token": "user-1", "ci": "user-2"}, users)

	_, err = ParseStaticTokens("no-separator")
	assert.Error(t, err)
	_, err = ParseStaticTokens("token:")
	assert.Error(t, err)
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string]string{"tok": "user-1"})

	user, err := r.ResolveCaller(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user)

	_, err = r.ResolveCaller(context.Background(), "other")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

type countingResolver struct {
	calls int
	next  Resolver
}

func (c *countingResolver) ResolveCaller(ctx context.Context, credential string) (string, error) {
	c.calls++
	return c.next.ResolveCaller(ctx, credential)
}

func TestCachedResolver(t *testing.T) {
	inner := &countingResolver{next: NewStaticResolver(map[string]string{"tok": "user-1"})}
	r := NewCachedResolver(inner, cache.NewLRUCache[string](10, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user, err := r.ResolveCaller(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user)
	}
	assert.Equal(t, 1, inner.calls)

	for i := 0; i < 2; i++ {
		_, err := r.ResolveCaller(ctx, "bad")
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	}
	assert.Equal(t, 3, inner.calls, "failures are not cached")
}
