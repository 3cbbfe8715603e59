package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/repository"
)

// RatingService records user scores for catalog movies.
type RatingService struct {
	movies  CatalogStore
	ratings RatingStore
	log     *slog.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(movies CatalogStore, ratings RatingStore, log *slog.Logger) *RatingService {
	if log == nil {
		log = slog.Default()
	}
	return &RatingService{movies: movies, ratings: ratings, log: log}
}

// Rate stores the user's score; a second rating replaces the first.
func (s *RatingService) Rate(ctx context.Context, userID, movieID, score int) (*models.Rating, error) {
	if score < models.MinScore || score > models.MaxScore {
		return nil, invalid("score", fmt.Sprintf("must be between %d and %d", models.MinScore, models.MaxScore))
	}
	if _, err := s.movies.FindByID(ctx, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, movieID)
		}
		return nil, fmt.Errorf("find movie %d: %w", movieID, err)
	}

	r, err := s.ratings.Upsert(ctx, userID, movieID, score)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, movieID)
	}
	if err != nil {
		return nil, fmt.Errorf("rate movie %d: %w", movieID, err)
	}
	s.log.InfoContext(ctx, "movie rated", "user_id", userID, "movie_id", movieID, "score", score)
	return r, nil
}

// Delete removes the user's rating for a movie.
func (s *RatingService) Delete(ctx context.Context, userID, movieID int) error {
	err := s.ratings.Delete(ctx, userID, movieID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: no rating for movie %d", ErrNotFound, movieID)
	}
	return err
}

// ListByUser returns the user's ratings, newest first.
func (s *RatingService) ListByUser(ctx context.Context, userID int) ([]models.Rating, error) {
	return s.ratings.ListByUser(ctx, userID)
}
