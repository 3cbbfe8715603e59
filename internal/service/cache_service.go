package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"movie-catalog-service/internal/metrics"
	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/normalize"
	"movie-catalog-service/internal/omdb"
	"movie-catalog-service/internal/repository"
	"movie-catalog-service/internal/translate"
)

const (
	defaultCacheTTL        = 24 * time.Hour
	defaultBackfillWorkers = 4
)

// CacheOptions configures a CacheService.
type CacheOptions struct {
	TTL             time.Duration
	TargetLang      string
	BackfillWorkers int
	Now             func() time.Time
	Logger          *slog.Logger
}

// CacheService resolves lookup keys to cached-or-fresh catalog items and
// backfills the catalog from provider searches.
type CacheService struct {
	store      CatalogStore
	ratings    RatingStore
	provider   Provider
	translator translate.Translator

	ttl     time.Duration
	lang    string
	workers int
	now     func() time.Time
	log     *slog.Logger

	group singleflight.Group
}

// NewCacheService creates a new CacheService.
func NewCacheService(store CatalogStore, ratings RatingStore, provider Provider, tr translate.Translator, opts CacheOptions) *CacheService {
	if opts.TTL <= 0 {
		opts.TTL = defaultCacheTTL
	}
	if opts.BackfillWorkers <= 0 {
		opts.BackfillWorkers = defaultBackfillWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if tr == nil {
		tr = translate.Noop{}
	}
	return &CacheService{
		store:      store,
		ratings:    ratings,
		provider:   provider,
		translator: tr,
		ttl:        opts.TTL,
		lang:       opts.TargetLang,
		workers:    opts.BackfillWorkers,
		now:        opts.Now,
		log:        opts.Logger,
	}
}

// Resolve returns the movie for an external id or an exact title. A fresh
// hydrated local copy is served without contacting the provider.
func (s *CacheService) Resolve(ctx context.Context, key string) (*models.MovieDetail, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalid("key", "must not be empty")
	}
	byID := normalize.IsExternalID(key)

	cached, err := s.lookup(ctx, key, byID)
	if err != nil {
		return nil, err
	}
	if cached != nil && !cached.IsPhantom() && s.fresh(cached) {
		metrics.CacheLookups.WithLabelValues(metrics.LookupHit).Inc()
		return s.withStats(ctx, cached)
	}

	// Callers resolving the same key share one provider round trip. The
	// shared call must not die with whichever caller happened to start it.
	v, err, _ := s.group.Do(flightKey(key, byID), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), key, byID)
	})
	if err == nil {
		metrics.CacheLookups.WithLabelValues(metrics.LookupMiss).Inc()
		return s.withStats(ctx, v.(*models.Movie))
	}

	if errors.Is(err, omdb.ErrNotFound) {
		metrics.CacheLookups.WithLabelValues(metrics.LookupMiss).Inc()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if cached != nil {
		s.log.WarnContext(ctx, "provider unavailable, serving stale copy",
			"key", key, "imdb_id", cached.ExternalID, "cached_at", cached.CachedAt, "error", err)
		metrics.CacheLookups.WithLabelValues(metrics.LookupStale).Inc()
		detail, serr := s.withStats(ctx, cached)
		if serr != nil {
			return nil, serr
		}
		detail.Stale = true
		return detail, nil
	}
	metrics.CacheLookups.WithLabelValues(metrics.LookupMiss).Inc()
	if errors.Is(err, omdb.ErrUnavailable) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return nil, err
}

// ResolveByID returns a movie by internal id without contacting the provider.
func (s *CacheService) ResolveByID(ctx context.Context, id int) (*models.MovieDetail, error) {
	m, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find movie %d: %w", id, err)
	}
	return s.withStats(ctx, m)
}

// BackfillSearch stores a phantom record for every search hit that is not
// in the catalog yet. Existing rows, phantom or hydrated, are not touched.
func (s *CacheService) BackfillSearch(ctx context.Context, query string, page int) error {
	res, err := s.provider.Search(ctx, query, page)
	if err != nil {
		metrics.Backfills.WithLabelValues("error").Inc()
		return fmt.Errorf("provider search %q: %w", query, err)
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.workers)
	for _, stub := range res.Results {
		p.Go(func(ctx context.Context) error {
			return s.insertPhantom(ctx, stub)
		})
	}
	if err := p.Wait(); err != nil {
		metrics.Backfills.WithLabelValues("error").Inc()
		return err
	}

	metrics.Backfills.WithLabelValues("ok").Inc()
	s.log.InfoContext(ctx, "search backfill completed",
		"query", query, "page", page, "results", len(res.Results))
	return nil
}

// Suggestions returns the provider's top matches without storing them.
func (s *CacheService) Suggestions(ctx context.Context, query string) ([]omdb.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []omdb.Suggestion{}, nil
	}
	out, err := s.provider.Suggestions(ctx, query)
	if err != nil {
		if errors.Is(err, omdb.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return nil, err
	}
	return out, nil
}

func (s *CacheService) lookup(ctx context.Context, key string, byID bool) (*models.Movie, error) {
	var (
		m   *models.Movie
		err error
	)
	if byID {
		m, err = s.store.FindByExternalID(ctx, key)
	} else {
		m, err = s.store.FindByTitle(ctx, key)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", key, err)
	}
	return m, nil
}

// flightKey separates id and title lookups that fold to the same text.
func flightKey(key string, byID bool) string {
	kind := "title"
	if byID {
		kind = "id"
	}
	return kind + ":" + normalize.FoldKey(key)
}

func (s *CacheService) fresh(m *models.Movie) bool {
	return s.now().Sub(m.CachedAt) < s.ttl
}

// refresh fetches the key from the provider, enriches the record and
// upserts it as a hydrated movie.
func (s *CacheService) refresh(ctx context.Context, key string, byID bool) (*models.Movie, error) {
	var (
		rec *omdb.Record
		err error
	)
	if byID {
		rec, err = s.provider.FetchByID(ctx, key)
	} else {
		rec, err = s.provider.FetchByTitle(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	m := s.enrich(ctx, rec)
	saved, err := s.store.UpsertByExternalID(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", m.ExternalID, err)
	}
	s.log.InfoContext(ctx, "movie refreshed from provider", "imdb_id", saved.ExternalID, "id", saved.ID)
	return saved, nil
}

func (s *CacheService) enrich(ctx context.Context, rec *omdb.Record) *models.Movie {
	titleOriginal := normalize.Clean(rec.Title)
	plotOriginal := normalize.Clean(rec.Plot)
	genresOriginal := normalize.SplitGenres(rec.Genre)
	genres := translate.All(ctx, s.translator, genresOriginal, s.lang)

	return &models.Movie{
		ExternalID:        rec.ImdbID,
		Title:             s.translator.Translate(ctx, titleOriginal, s.lang),
		TitleOriginal:     titleOriginal,
		Year:              normalize.Clean(rec.Year),
		Genres:            genres,
		GenresOriginal:    genresOriginal,
		Categories:        genres,
		Plot:              s.translator.Translate(ctx, plotOriginal, s.lang),
		PlotOriginal:      plotOriginal,
		PosterURL:         normalize.PosterOrEmpty(rec.Poster),
		Director:          normalize.Clean(rec.Director),
		Actors:            normalize.Clean(rec.Actors),
		Runtime:           normalize.Clean(rec.Runtime),
		Language:          normalize.Clean(rec.Language),
		ExternalRating:    normalize.ParseRating(rec.ImdbRating),
		ExternalVotes:     normalize.Clean(rec.ImdbVotes),
		IsExplicitlyAdded: true,
		CachedAt:          s.now(),
	}
}

func (s *CacheService) insertPhantom(ctx context.Context, stub omdb.Stub) error {
	if stub.ImdbID == "" {
		return nil
	}
	_, err := s.store.FindByExternalID(ctx, stub.ImdbID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check %s: %w", stub.ImdbID, err)
	}

	title := normalize.Clean(stub.Title)
	inserted, err := s.store.InsertPhantom(ctx, &models.Movie{
		ExternalID: stub.ImdbID,
		Title:      s.translator.Translate(ctx, title, s.lang),
		Year:       normalize.Clean(stub.Year),
		PosterURL:  normalize.PosterOrEmpty(stub.Poster),
		CachedAt:   s.now(),
	})
	if err != nil {
		return fmt.Errorf("insert phantom %s: %w", stub.ImdbID, err)
	}
	if inserted {
		s.log.DebugContext(ctx, "phantom inserted", "imdb_id", stub.ImdbID)
	}
	return nil
}

func (s *CacheService) withStats(ctx context.Context, m *models.Movie) (*models.MovieDetail, error) {
	stats, err := s.ratings.StatsByMovie(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("rating stats for %d: %w", m.ID, err)
	}
	return models.NewMovieDetail(m, stats), nil
}
