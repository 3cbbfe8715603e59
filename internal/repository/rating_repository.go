package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"movie-catalog-service/internal/models"
)

// RatingRepository handles database operations for user ratings.
type RatingRepository struct {
	db *sql.DB
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert records a user's score for a movie; re-rating overwrites.
func (r *RatingRepository) Upsert(ctx context.Context, userID, movieID, score int) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ratings (user_id, movie_id, score, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			score = EXCLUDED.score,
			created_at = NOW()
		RETURNING id, user_id, movie_id, score, created_at
	`, userID, movieID, score).Scan(
		&rating.ID, &rating.UserID, &rating.MovieID, &rating.Score, &rating.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		// the movie was deleted after the caller checked for it
		return nil, fmt.Errorf("%w: movie %d", ErrNotFound, movieID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert rating: %w", err)
	}
	return &rating, nil
}

// Delete removes a user's rating for a movie.
func (r *RatingRepository) Delete(ctx context.Context, userID, movieID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ratings WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's ratings, newest first.
func (r *RatingRepository) ListByUser(ctx context.Context, userID int) ([]models.Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, movie_id, score, created_at
		FROM ratings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.Rating, 0)
	for rows.Next() {
		var rt models.Rating
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.MovieID, &rt.Score, &rt.CreatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

// StatsByMovie returns the community stats for one movie.
func (r *RatingRepository) StatsByMovie(ctx context.Context, movieID int) (models.CommunityStats, error) {
	stats, err := r.StatsByMovies(ctx, []int{movieID})
	if err != nil {
		return models.CommunityStats{}, err
	}
	return stats[movieID], nil
}

// StatsByMovies computes average and count for every given movie in a
// single grouped query. Movies without ratings are absent from the map.
func (r *RatingRepository) StatsByMovies(ctx context.Context, movieIDs []int) (map[int]models.CommunityStats, error) {
	out := make(map[int]models.CommunityStats, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}

	ids := make([]int64, len(movieIDs))
	for i, id := range movieIDs {
		ids[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT movie_id, AVG(score)::float8, COUNT(*)
		FROM ratings
		WHERE movie_id = ANY($1)
		GROUP BY movie_id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieID int
			avg     float64
			count   int
		)
		if err := rows.Scan(&movieID, &avg, &count); err != nil {
			return nil, err
		}
		out[movieID] = models.NewCommunityStats(avg, count)
	}
	return out, rows.Err()
}
