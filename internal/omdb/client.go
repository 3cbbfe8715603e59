package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"movie-catalog-service/internal/metrics"
	"movie-catalog-service/internal/normalize"
)

var (
	// ErrNotFound means the provider confirmed the key does not exist.
	ErrNotFound = errors.New("omdb: not found")
	// ErrUnavailable covers network, quota and provider-side failures.
	ErrUnavailable = errors.New("omdb: unavailable")
)

// Client is the OMDb API client.
type Client struct {
	apiKey         string
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	quota          *RedisQuota
	redis          *redis.Client
	searchCacheTTL time.Duration
	attempts       uint
	retryDelay     time.Duration
	log            *slog.Logger
}

// Options configures a Client. Redis and Quota are optional.
type Options struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	RetryAttempts  uint
	RetryDelay     time.Duration
	SearchCacheTTL time.Duration
	Redis          *redis.Client
	Quota          *RedisQuota
	Logger         *slog.Logger
}

// NewClient creates a new OMDb API client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		http: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:        rate.NewLimiter(limit, max(opts.Burst, 1)),
		quota:          opts.Quota,
		redis:          opts.Redis,
		searchCacheTTL: opts.SearchCacheTTL,
		attempts:       opts.RetryAttempts,
		retryDelay:     opts.RetryDelay,
		log:            opts.Logger,
	}
}

// ---- OMDb Response Types ----

type envelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// Record is the full detail payload for one title.
type Record struct {
	envelope
	ImdbID     string `json:"imdbID"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Genre      string `json:"Genre"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Runtime    string `json:"Runtime"`
	Language   string `json:"Language"`
	ImdbRating string `json:"imdbRating"`
	ImdbVotes  string `json:"imdbVotes"`
}

// Stub is one search hit.
type Stub struct {
	ImdbID string `json:"imdbID"`
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	Poster string `json:"Poster"`
	Type   string `json:"Type"`
}

// SearchResult is a page of search hits.
type SearchResult struct {
	Results      []Stub `json:"results"`
	TotalResults int    `json:"total_results"`
}

type searchResponse struct {
	envelope
	Search       []Stub `json:"Search"`
	TotalResults string `json:"totalResults"`
}

// Suggestion is a lightweight search hit returned to the admin form.
type Suggestion struct {
	ImdbID string `json:"imdb_id"`
	Title  string `json:"title"`
	Year   string `json:"year"`
	Poster string `json:"poster,omitempty"`
}

// ---- Client Methods ----

// FetchByID fetches full detail for an IMDb id.
func (c *Client) FetchByID(ctx context.Context, id string) (*Record, error) {
	return c.fetch(ctx, "fetch_by_id", url.Values{"i": {strings.TrimSpace(id)}})
}

// FetchByTitle fetches full detail for the best title match.
func (c *Client) FetchByTitle(ctx context.Context, title string) (*Record, error) {
	return c.fetch(ctx, "fetch_by_title", url.Values{"t": {strings.TrimSpace(title)}})
}

func (c *Client) fetch(ctx context.Context, op string, params url.Values) (*Record, error) {
	params.Set("plot", "full")

	var rec Record
	if err := c.get(ctx, op, params, &rec); err != nil {
		return nil, err
	}
	if rec.Response == "False" {
		err := classify(rec.Error)
		c.observe(op, err)
		return nil, err
	}
	c.observe(op, nil)
	return &rec, nil
}

// Search runs a title search. A provider "not found" is an empty result.
func (c *Client) Search(ctx context.Context, query string, page int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	cacheKey := fmt.Sprintf("omdb:search:%s:%d", normalize.FoldKey(query), page)
	if cached, err := c.getFromCache(ctx, cacheKey); err == nil {
		var result SearchResult
		if json.Unmarshal([]byte(cached), &result) == nil {
			c.log.DebugContext(ctx, "search cache hit", "key", cacheKey)
			return &result, nil
		}
	}

	params := url.Values{
		"s":    {strings.TrimSpace(query)},
		"type": {"movie"},
		"page": {strconv.Itoa(page)},
	}
	var resp searchResponse
	if err := c.get(ctx, "search", params, &resp); err != nil {
		return nil, err
	}

	result := &SearchResult{Results: []Stub{}}
	if resp.Response == "False" {
		if err := classify(resp.Error); !errors.Is(err, ErrNotFound) {
			c.observe("search", err)
			return nil, err
		}
	} else {
		result.Results = resp.Search
		result.TotalResults, _ = strconv.Atoi(resp.TotalResults)
	}
	c.observe("search", nil)

	if data, err := json.Marshal(result); err == nil {
		c.setCache(ctx, cacheKey, string(data))
	}
	return result, nil
}

// Suggestions returns the top five search hits without persisting them.
func (c *Client) Suggestions(ctx context.Context, query string) ([]Suggestion, error) {
	res, err := c.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	n := min(len(res.Results), 5)
	out := make([]Suggestion, 0, n)
	for _, s := range res.Results[:n] {
		out = append(out, Suggestion{
			ImdbID: s.ImdbID,
			Title:  s.Title,
			Year:   s.Year,
			Poster: normalize.PosterOrEmpty(s.Poster),
		})
	}
	return out, nil
}

// retryable marks a failure worth another attempt.
type retryable struct{ err error }

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

func (c *Client) get(ctx context.Context, op string, params url.Values, out any) error {
	params.Set("apikey", c.apiKey)
	target := c.baseURL + "?" + params.Encode()

	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	err := retry.Do(
		func() error { return c.doGet(ctx, target, out) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var r *retryable
			return errors.As(err, &r)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.WarnContext(ctx, "retrying OMDb request", "op", op, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.observe(op, err)
		return err
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, target string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}
	if c.quota != nil {
		if err := c.quota.Take(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &retryable{fmt.Errorf("%w: HTTP request failed: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: OMDb API returned status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &retryable{err}
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// classify maps an OMDb "Response":"False" message to an error.
func classify(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "not found"),
		strings.Contains(m, "incorrect imdb id"),
		strings.Contains(m, "too many results"):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
}

func (c *Client) observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.ProviderRequests.WithLabelValues(op, outcome).Inc()
}

// ---- Redis Helpers ----

func (c *Client) getFromCache(ctx context.Context, key string) (string, error) {
	if c.redis == nil || c.searchCacheTTL <= 0 {
		return "", fmt.Errorf("redis not available")
	}
	return c.redis.Get(ctx, key).Result()
}

func (c *Client) setCache(ctx context.Context, key, value string) {
	if c.redis == nil || c.searchCacheTTL <= 0 {
		return
	}
	if err := c.redis.Set(ctx, key, value, c.searchCacheTTL).Err(); err != nil {
		c.log.ErrorContext(ctx, "failed to set cache", "key", key, "error", err)
	}
}
