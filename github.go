package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// StarCounter serves the star button's count, caching the GitHub API
// response for a TTL and falling back to a fixed number on failure. Failed
// lookups are cached for the same TTL.
type StarCounter struct {
	client   *http.Client
	apiURL   string
	repo     string
	enabled  bool
	ttl      time.Duration
	fallback int
	now      func() time.Time

	mu         sync.Mutex
	stars      int
	known      bool
	checked    time.Time
	refreshing bool
}

func NewStarCounter(cfg GitHubConfig, repo string) *StarCounter {
	if cfg.Repo != "" {
		repo = cfg.Repo
	}
	return &StarCounter{
		client:   &http.Client{Timeout: 5 * time.Second},
		apiURL:   cfg.APIURL,
		repo:     repo,
		enabled:  cfg.Enabled && repo != "",
		ttl:      cfg.CacheTTL,
		fallback: cfg.FallbackStars,
		now:      time.Now,
	}
}

func (s *StarCounter) Repo() string { return s.repo }

// Stars returns the cached count, refreshing it when stale. It never fails;
// errors are logged and the last known (or fallback) count is returned.
// Only one caller refreshes at a time; the others get the current value
// without waiting on the API.
func (s *StarCounter) Stars(ctx context.Context) int {
	if !s.enabled {
		return s.fallback
	}

	s.mu.Lock()
	if s.refreshing || (!s.checked.IsZero() && s.now().Sub(s.checked) < s.ttl) {
		n := s.current()
		s.mu.Unlock()
		return n
	}
	s.refreshing = true
	s.mu.Unlock()

	n, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false
	s.checked = s.now()
	if err != nil {
		log.Printf("Error fetching GitHub stars for %s: %v", s.repo, err)
		return s.current()
	}
	s.stars, s.known = n, true
	return n
}

// current must be called with mu held.
func (s *StarCounter) current() int {
	if s.known {
		return s.stars
	}
	return s.fallback
}

func (s *StarCounter) fetch(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/repos/"+s.repo, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body struct {
		StargazersCount int `json:"stargazers_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode repo: %w", err)
	}
	return body.StargazersCount, nil
}
