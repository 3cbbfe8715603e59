package omdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matrixJSON = `{
	"Title":"The Matrix","Year":"1999","Runtime":"136 min","Genre":"Action, Sci-Fi",
	"Director":"Lana Wachowski, Lilly Wachowski","Actors":"Keanu Reeves, Laurence Fishburne",
	"Plot":"A computer hacker learns the truth.","Language":"English",
	"Poster":"https://m.media-amazon.com/images/M/abc._V1_SX300.jpg",
	"imdbRating":"8.7","imdbVotes":"2,100,000","imdbID":"tt0133093","Response":"True"}`

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string, opts Options) *Client {
	opts.APIKey = "test-key"
	opts.BaseURL = url
	opts.RetryDelay = time.Millisecond
	opts.Logger = newTestLogger()
	return NewClient(opts)
}

func TestFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "tt0133093", q.Get("i"))
		assert.Equal(t, "full", q.Get("plot"))
		assert.Equal(t, "test-key", q.Get("apikey"))
		_, _ = w.Write([]byte(matrixJSON))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	rec, err := c.FetchByID(context.Background(), "tt0133093")
	require.NoError(t, err)

	assert.Equal(t, "tt0133093", rec.ImdbID)
	assert.Equal(t, "The Matrix", rec.Title)
	assert.Equal(t, "Action, Sci-Fi", rec.Genre)
	assert.Equal(t, "8.7", rec.ImdbRating)
}

func TestFetchByTitleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Nope Nope", r.URL.Query().Get("t"))
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	_, err := c.FetchByTitle(context.Background(), "Nope Nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestFetchInvalidKeyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Invalid API key!"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	_, err := c.FetchByID(context.Background(), "tt0133093")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(matrixJSON))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{RetryAttempts: 3})
	rec, err := c.FetchByID(context.Background(), "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", rec.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{RetryAttempts: 2})
	_, err := c.FetchByID(context.Background(), "tt0133093")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{RetryAttempts: 3})
	_, err := c.FetchByID(context.Background(), "tt0133093")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(url, Options{RetryAttempts: 2})
	_, err := c.FetchByID(context.Background(), "tt0133093")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func searchServer(t *testing.T, calls *atomic.Int32, hits int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "movie", q.Get("type"))
		if q.Get("s") == "zzzz" {
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
			return
		}
		body := `{"Search":[`
		for i := 0; i < hits; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"Title":"Matrix %d","Year":"199%d","imdbID":"tt00000%02d","Type":"movie","Poster":"https://img/p%d._V1_SX300.jpg"}`, i, i, i, i)
		}
		body += fmt.Sprintf(`],"totalResults":"%d","Response":"True"}`, hits)
		_, _ = w.Write([]byte(body))
	}))
}

func TestSearch(t *testing.T) {
	var calls atomic.Int32
	srv := searchServer(t, &calls, 3)
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	res, err := c.Search(context.Background(), "matrix", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalResults)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "tt0000001", res.Results[1].ImdbID)
}

func TestSearchNotFoundIsEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := searchServer(t, &calls, 0)
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	res, err := c.Search(context.Background(), "zzzz", 1)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalResults)
}

func TestSearchUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var calls atomic.Int32
	srv := searchServer(t, &calls, 2)
	defer srv.Close()

	c := newTestClient(srv.URL, Options{Redis: rdb, SearchCacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		res, err := c.Search(context.Background(), "Matrix", 1)
		require.NoError(t, err)
		assert.Len(t, res.Results, 2)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := c.Search(context.Background(), "matrix", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSuggestionsTopFive(t *testing.T) {
	var calls atomic.Int32
	srv := searchServer(t, &calls, 8)
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	got, err := c.Suggestions(context.Background(), "matrix")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "https://img/p0._V1_SX1000.jpg", got[0].Poster)
}

func TestQuotaExhaustionIsUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(matrixJSON))
	}))
	defer srv.Close()

	quota := NewRedisQuota(rdb, 1, time.Hour, newTestLogger())
	c := newTestClient(srv.URL, Options{Quota: quota, RetryAttempts: 3})

	_, err := c.FetchByID(context.Background(), "tt0133093")
	require.NoError(t, err)
	_, err = c.FetchByID(context.Background(), "tt0133093")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}
