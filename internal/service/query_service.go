package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"movie-catalog-service/internal/models"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Backfiller populates the catalog from an upstream search.
type Backfiller interface {
	BackfillSearch(ctx context.Context, query string, page int) error
}

// QueryService builds filtered, sorted and paginated catalog listings.
type QueryService struct {
	store    CatalogStore
	ratings  RatingStore
	backfill Backfiller
	log      *slog.Logger
}

// NewQueryService creates a new QueryService.
func NewQueryService(store CatalogStore, ratings RatingStore, backfill Backfiller, log *slog.Logger) *QueryService {
	if log == nil {
		log = slog.Default()
	}
	return &QueryService{store: store, ratings: ratings, backfill: backfill, log: log}
}

// Validate normalizes listing params, filling defaults for zero values.
func Validate(p *models.MovieListParams) error {
	p.Search = strings.TrimSpace(p.Search)
	p.Genre = strings.TrimSpace(p.Genre)

	if p.Page == 0 {
		p.Page = defaultPage
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}
	if p.Page < 1 {
		return invalid("page", "must be at least 1")
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		return invalid("limit", fmt.Sprintf("must be between 1 and %d", maxLimit))
	}
	if p.MinRating < 0 || p.MinRating > 10 {
		return invalid("min_rating", "must be between 0 and 10")
	}
	switch p.Sort {
	case models.SortRating, models.SortDate, models.SortTitle, models.SortRecent:
	default:
		return invalid("sort", fmt.Sprintf("unknown sort %q", p.Sort))
	}
	return nil
}

// List returns one page of movies with community stats attached. A text
// search with no local match triggers a provider backfill first, unless
// the caller is an admin.
func (s *QueryService) List(ctx context.Context, params models.MovieListParams, isAdmin bool) (*models.MovieListResponse, error) {
	if err := Validate(&params); err != nil {
		return nil, err
	}

	if params.Search != "" && !isAdmin && s.backfill != nil {
		s.maybeBackfill(ctx, params)
	}

	movies, total, err := s.store.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	ids := make([]int, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
	}
	stats, err := s.ratings.StatsByMovies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("rating stats: %w", err)
	}

	items := make([]models.MovieListItem, len(movies))
	for i := range movies {
		st := stats[movies[i].ID]
		items[i] = models.MovieListItem{
			Movie:              movies[i],
			DisplayPosterURL:   movies[i].DisplayPoster(),
			CommunityRating:    st.Average,
			CommunityVoteCount: st.Count,
		}
	}

	return &models.MovieListResponse{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: models.TotalPages(total, params.Limit),
		Data:       items,
	}, nil
}

// maybeBackfill never fails the listing; errors are only logged.
func (s *QueryService) maybeBackfill(ctx context.Context, params models.MovieListParams) {
	n, err := s.store.Count(ctx, params.Filter())
	if err != nil {
		s.log.WarnContext(ctx, "count before backfill failed", "search", params.Search, "error", err)
		return
	}
	if n > 0 {
		return
	}
	if err := s.backfill.BackfillSearch(ctx, params.Search, 1); err != nil {
		s.log.WarnContext(ctx, "search backfill failed", "search", params.Search, "error", err)
	}
}
