// Package auth resolves the caller of a request from its bearer credential.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
)

// Resolver maps a credential to a user id. Absent or rejected credentials
// yield core.ErrUnauthenticated.
type Resolver interface {
	ResolveCaller(ctx context.Context, credential string) (string, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// GoTrueResolver asks a GoTrue-compatible auth server who owns a token.
type GoTrueResolver struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGoTrueResolver(baseURL, apiKey string, client *http.Client) *GoTrueResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type goTrueUser struct {
	ID string `json:"id"`
}

func (g *GoTrueResolver) ResolveCaller(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", core.ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	if g.apiKey != "" {
		req.Header.Set("apikey", g.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call auth server: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		slog.DebugContext(ctx, "Auth server rejected credential", "status_code", resp.StatusCode)
		return "", core.ErrUnauthenticated
	default:
		return "", fmt.Errorf("auth server returned status %d", resp.StatusCode)
	}

	var user goTrueUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if user.ID == "" {
		return "", core.ErrUnauthenticated
	}
	return user.ID, nil
}

// StaticResolver serves a fixed token to user table. Meant for local runs.
type StaticResolver struct {
	users map[string]string
}

// ParseStaticTokens reads "token:user,token:user".
func ParseStaticTokens(s string) (map[string]string, error) {
	users := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		token, user = strings.TrimSpace(token), strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("invalid static token entry %q", pair)
		}
		users[token] = user
	}
	return users, nil
}

func NewStaticResolver(users map[string]string) *StaticResolver {
	return &StaticResolver{users: users}
}

func (s *StaticResolver) ResolveCaller(_ context.Context, credential string) (string, error) {
	if user, ok := s.users[credential]; ok && credential != "" {
		return user, nil
	}
	return "", core.ErrUnauthenticated
}

// CachedResolver remembers successful resolutions for a while.
type CachedResolver struct {
	next  Resolver
	cache cache.Cache[string]
}

func NewCachedResolver(next Resolver, c cache.Cache[string]) *CachedResolver {
	return &CachedResolver{next: next, cache: c}
}

func (c *CachedResolver) ResolveCaller(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", core.ErrUnauthenticated
	}
	key := tokenKey(credential)
	if user, ok := c.cache.Get(key); ok {
		return user, nil
	}

	user, err := c.next.ResolveCaller(ctx, credential)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, user)
	return user, nil
}

// tokenKey keeps raw credentials out of the cache map.
func tokenKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
