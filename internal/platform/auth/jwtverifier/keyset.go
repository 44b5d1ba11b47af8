package jwtverifier

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/conductores/driver-registry-api/internal/platform/auth/jwkset"
	"github.com/conductores/driver-registry-api/internal/platform/config"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
)

// RemoteKeySet caches keys fetched from a JWKS URL.
//
// Refresh rules:
// - refresh periodically (rotation), even if kid exists in cache
// - refresh on unknown kid, bounded by the min refresh interval
type RemoteKeySet struct {
	url                string
	refreshInterval    time.Duration
	minRefreshInterval time.Duration
	client             *http.Client
	clock              clockport.Clock

	mu          sync.Mutex
	keysByKID   map[string]*rsa.PublicKey
	lastRefresh time.Time
	refreshing  bool
	refreshDone chan struct{}
}

func NewRemoteKeySet(cfg config.JWTConfig, httpClient *http.Client, clk clockport.Clock) *RemoteKeySet {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &RemoteKeySet{
		url:                cfg.JWKSURL,
		refreshInterval:    cfg.JWKSRefreshInterval,
		minRefreshInterval: cfg.JWKSMinRefreshInterval,
		client:             httpClient,
		clock:              clk,
		keysByKID:          map[string]*rsa.PublicKey{},
	}
}

func (s *RemoteKeySet) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if err := s.maybeRefresh(ctx, kid); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if k := s.keysByKID[kid]; k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("unknown kid %q", kid)
}

func (s *RemoteKeySet) maybeRefresh(ctx context.Context, kid string) error {
	now := s.clock.Now()

	s.mu.Lock()
	intervalDue := !s.lastRefresh.IsZero() && s.refreshInterval > 0 && now.Sub(s.lastRefresh) >= s.refreshInterval
	unknownKid := s.keysByKID[kid] == nil
	unknownAllowed := s.lastRefresh.IsZero() || s.minRefreshInterval <= 0 || now.Sub(s.lastRefresh) >= s.minRefreshInterval

	if !intervalDue && !(unknownKid && unknownAllowed) {
		s.mu.Unlock()
		return nil
	}

	// Concurrent callers wait on the in-flight refresh.
	if s.refreshing {
		ch := s.refreshDone
		s.mu.Unlock()
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.refreshing = true
	s.refreshDone = make(chan struct{})
	ch := s.refreshDone
	s.mu.Unlock()

	err := s.refresh(ctx)

	s.mu.Lock()
	s.refreshing = false
	close(ch)
	s.mu.Unlock()

	return err
}

func (s *RemoteKeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("jwks fetch failed: status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	keys, err := jwkset.Parse(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keysByKID = keys
	s.lastRefresh = s.clock.Now()
	s.mu.Unlock()

	return nil
}
