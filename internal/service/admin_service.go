package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/normalize"
	"movie-catalog-service/internal/repository"
)

// AdminService handles catalog curation by administrators.
type AdminService struct {
	store CatalogStore
	cache *CacheService
	now   func() time.Time
	log   *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(store CatalogStore, cache *CacheService, log *slog.Logger) *AdminService {
	if log == nil {
		log = slog.Default()
	}
	return &AdminService{store: store, cache: cache, now: time.Now, log: log}
}

// Create adds a movie. An input carrying only an external id is hydrated
// from the provider; anything else is stored as a manual entry.
func (s *AdminService) Create(ctx context.Context, in models.MovieInput) (*models.MovieDetail, error) {
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.Title = strings.TrimSpace(in.Title)

	if in.Title == "" && in.ExternalID != "" {
		return s.cache.Resolve(ctx, in.ExternalID)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	m := &models.Movie{
		ExternalID:     in.ExternalID,
		Title:          in.Title,
		TitleOriginal:  orDefault(in.TitleOriginal, in.Title),
		Year:           in.Year,
		Genres:         orEmpty(in.Genres),
		GenresOriginal: orEmpty(in.GenresOriginal),
		Categories:     orEmpty(in.Categories),
		Plot:           in.Plot,
		PlotOriginal:   in.PlotOriginal,
		PosterURL:      normalize.UpgradePosterURL(in.PosterURL),
		CustomPoster:   in.CustomPoster,
		Director:       in.Director,
		Actors:         in.Actors,
		Runtime:        in.Runtime,
		Language:       in.Language,
		ExternalRating: in.ExternalRating,
		ExternalVotes:  in.ExternalVotes,
		CachedAt:       s.now(),
	}
	if len(m.Categories) == 0 {
		m.Categories = m.Genres
	}

	created, err := s.store.Create(ctx, m)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: %s", ErrConflict, in.ExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}
	s.log.InfoContext(ctx, "movie created", "id", created.ID, "imdb_id", created.ExternalID)
	return models.NewMovieDetail(created, models.CommunityStats{}), nil
}

// Update applies a partial edit to a movie.
func (s *AdminService) Update(ctx context.Context, id int, patch models.MoviePatch) (*models.Movie, error) {
	m, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find movie %d: %w", id, err)
	}

	patch.Apply(m)
	if strings.TrimSpace(m.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}
	if m.ExternalRating < 0 || m.ExternalRating > 10 {
		return nil, invalid("imdb_rating", "must be between 0 and 10")
	}

	updated, err := s.store.Update(ctx, m)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update movie %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes a movie and, through the store, its ratings.
func (s *AdminService) Delete(ctx context.Context, id int) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	s.log.InfoContext(ctx, "movie deleted", "id", id)
	return nil
}

// Preview resolves a key for the admin form.
func (s *AdminService) Preview(ctx context.Context, key string) (*models.MovieDetail, error) {
	return s.cache.Resolve(ctx, key)
}

func validateInput(in models.MovieInput) error {
	if in.Title == "" {
		return invalid("title", "must not be empty")
	}
	if in.ExternalID == "" {
		return invalid("imdb_id", "must not be empty")
	}
	if in.ExternalRating < 0 || in.ExternalRating > 10 {
		return invalid("imdb_rating", "must be between 0 and 10")
	}
	return nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
