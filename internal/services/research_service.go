package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"rilie/internal/curiosity"
)

const (
	searchTimeout   = 30 * time.Second
	searchCacheTTL  = 5 * time.Minute
	searchRateLimit = 2.0 // requests per second against SearXNG
)

// ResearchService gathers raw material for tangents from SearXNG. It
// implements curiosity.ResearchPort.
//
// Multiple SearXNG instances are balanced round-robin with failover;
// results are cached per query so a re-queued tangent does not hit the
// network twice in quick succession.
type ResearchService struct {
	urls    []string
	counter uint64
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
}

// NewResearchService creates the service from one or more SearXNG base
// URLs (trailing slashes stripped). At least one URL is required.
func NewResearchService(urls []string) (*ResearchService, error) {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSuffix(strings.TrimSpace(u), "/")
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no SearXNG URLs configured")
	}

	log.Printf("🔍 [RESEARCH] Initialized with %d SearXNG instance(s): %v", len(cleaned), cleaned)

	return &ResearchService{
		urls:    cleaned,
		client:  &http.Client{Timeout: searchTimeout},
		cache:   cache.New(searchCacheTTL, 10*time.Minute),
		limiter: rate.NewLimiter(rate.Limit(searchRateLimit), int(searchRateLimit*2)),
	}, nil
}

// Search queries SearXNG and returns up to limit results. Tries each
// instance in round-robin order before giving up.
func (s *ResearchService) Search(ctx context.Context, query string, limit int) ([]curiosity.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	cacheKey := fmt.Sprintf("%s|%d", strings.ToLower(query), limit)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]curiosity.SearchResult), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	startIdx := atomic.AddUint64(&s.counter, 1) - 1
	var lastErr error
	for attempt := 0; attempt < len(s.urls); attempt++ {
		instance := s.urls[(startIdx+uint64(attempt))%uint64(len(s.urls))]

		results, err := s.searchInstance(ctx, instance, query, limit)
		if err == nil {
			s.cache.Set(cacheKey, results, cache.DefaultExpiration)
			return results, nil
		}

		log.Printf("⚠️ [RESEARCH] Instance %s failed: %v", instance, err)
		lastErr = err

		if attempt < len(s.urls)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	return nil, fmt.Errorf("all %d SearXNG instances failed, last error: %w", len(s.urls), lastErr)
}

func (s *ResearchService) searchInstance(ctx context.Context, instance, query string, limit int) ([]curiosity.SearchResult, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&format=json&safesearch=1",
		instance, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "RILIE/1.0 (Bot)")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed with status: %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := make([]curiosity.SearchResult, 0, limit)
	for _, r := range parsed.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, curiosity.SearchResult{
			Title:   r.Title,
			Snippet: r.Content,
		})
	}

	log.Printf("🔍 [RESEARCH] Found %d results for '%.60s'", len(results), query)
	return results, nil
}
