package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	applog "sacco/internal/log"
	"sacco/internal/session"
)

// DefaultRefreshPath is the backend's token refresh endpoint, relative to
// the API base URL.
const DefaultRefreshPath = "auth/token/refresh/"

const refreshKey = "refresh"

// Refresher exchanges the stored refresh token for a new access token.
// Concurrent callers share a single in-flight exchange.
type Refresher struct {
	url        string
	httpClient *http.Client
	store      session.Store
	logger     *applog.Logger

	group singleflight.Group
	calls atomic.Int64
}

func newRefresher(url string, httpClient *http.Client, store session.Store, logger *applog.Logger) *Refresher {
	return &Refresher{
		url:        url,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
	}
}

// Refresh returns true when a new access token has been stored. It never
// mutates the session on failure.
func (r *Refresher) Refresh(ctx context.Context) bool {
	return r.renew(ctx, "", true)
}

// renew is Refresh for a caller that was rejected while using stale. When
// the stored access token already differs from stale, another caller has
// renewed it and no exchange is made.
func (r *Refresher) renew(ctx context.Context, stale string, force bool) bool {
	// The exchange outlives any single caller's cancellation: other callers
	// may be waiting on the same result.
	shared := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(refreshKey, func() (any, error) {
		if !force {
			cur, err := r.store.Get(shared)
			if err == nil && cur.AccessToken != "" && cur.AccessToken != stale {
				return true, nil
			}
		}
		return r.exchange(shared), nil
	})
	ok, _ := v.(bool)
	return ok
}

// NetworkCalls reports how many refresh requests reached the network.
func (r *Refresher) NetworkCalls() int64 {
	return r.calls.Load()
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access      string `json:"access"`
	AccessToken string `json:"access_token"`
	AccessCamel string `json:"accessToken"`
}

func (r refreshResponse) token() string {
	for _, t := range []string{r.Access, r.AccessToken, r.AccessCamel} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

func (r *Refresher) exchange(ctx context.Context) bool {
	cur, err := r.store.Get(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Cannot read session for refresh", applog.FieldError, err)
		return false
	}
	if strings.TrimSpace(cur.RefreshToken) == "" {
		r.logger.DebugContext(ctx, "No refresh token stored, skipping refresh")
		return false
	}

	body, err := json.Marshal(refreshRequest{Refresh: cur.RefreshToken})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		r.logger.WarnContext(ctx, "Cannot build refresh request", applog.FieldError, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	r.calls.Add(1)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.WarnContext(ctx, "Token refresh request failed",
			applog.FieldOperation, applog.OpRefresh, applog.FieldError, err)
		return false
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.WarnContext(ctx, "Token refresh rejected",
			applog.FieldOperation, applog.OpRefresh, applog.FieldStatusCode, resp.StatusCode)
		return false
	}

	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.token() == "" {
		r.logger.WarnContext(ctx, "Token refresh response missing access token",
			applog.FieldOperation, applog.OpRefresh)
		return false
	}

	// Re-read so only the access token changes. A session cleared while the
	// exchange was in flight stays cleared.
	latest, err := r.store.Get(ctx)
	if err != nil || latest.RefreshToken == "" {
		return false
	}
	latest.AccessToken = out.token()
	if err := r.store.Set(ctx, latest); err != nil {
		r.logger.WarnContext(ctx, "Cannot store refreshed access token", applog.FieldError, err)
		return false
	}

	r.logger.InfoContext(ctx, "Access token refreshed", applog.FieldOperation, applog.OpRefresh)
	return true
}
