package service

import (
	"context"

	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/omdb"
)

// CatalogStore persists catalog items. UpsertByExternalID must be a single
// atomic replace-or-insert keyed on the external id.
type CatalogStore interface {
	FindByID(ctx context.Context, id int) (*models.Movie, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Movie, error)
	FindByTitle(ctx context.Context, title string) (*models.Movie, error)
	UpsertByExternalID(ctx context.Context, m *models.Movie) (*models.Movie, error)
	InsertPhantom(ctx context.Context, m *models.Movie) (bool, error)
	Create(ctx context.Context, m *models.Movie) (*models.Movie, error)
	Update(ctx context.Context, m *models.Movie) (*models.Movie, error)
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context, f models.MovieFilter) (int, error)
	List(ctx context.Context, params models.MovieListParams) ([]models.Movie, int, error)
}

// RatingStore persists user ratings and aggregates them per movie.
type RatingStore interface {
	Upsert(ctx context.Context, userID, movieID, score int) (*models.Rating, error)
	Delete(ctx context.Context, userID, movieID int) error
	ListByUser(ctx context.Context, userID int) ([]models.Rating, error)
	StatsByMovie(ctx context.Context, movieID int) (models.CommunityStats, error)
	StatsByMovies(ctx context.Context, movieIDs []int) (map[int]models.CommunityStats, error)
}

// Provider is the upstream movie metadata source.
type Provider interface {
	FetchByID(ctx context.Context, id string) (*omdb.Record, error)
	FetchByTitle(ctx context.Context, title string) (*omdb.Record, error)
	Search(ctx context.Context, query string, page int) (*omdb.SearchResult, error)
	Suggestions(ctx context.Context, query string) ([]omdb.Suggestion, error)
}
