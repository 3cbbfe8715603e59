package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"movie-catalog-service/internal/models"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("duplicate")
)

const movieColumns = `m.id, m.imdb_id, m.title, m.title_original, m.year,
	m.genres, m.genres_original, m.categories, m.plot, m.plot_original,
	m.poster_url, m.custom_poster, m.director, m.actors, m.runtime,
	m.language, m.imdb_rating, m.imdb_votes, m.is_explicitly_added, m.cached_at`

// MovieRepository handles database operations for movies.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	var m models.Movie
	err := row.Scan(
		&m.ID, &m.ExternalID, &m.Title, &m.TitleOriginal, &m.Year,
		pq.Array(&m.Genres), pq.Array(&m.GenresOriginal), pq.Array(&m.Categories),
		&m.Plot, &m.PlotOriginal, &m.PosterURL, &m.CustomPoster,
		&m.Director, &m.Actors, &m.Runtime, &m.Language,
		&m.ExternalRating, &m.ExternalVotes, &m.IsExplicitlyAdded, &m.CachedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	if m.GenresOriginal == nil {
		m.GenresOriginal = []string{}
	}
	if m.Categories == nil {
		m.Categories = []string{}
	}
	return &m, nil
}

// FindByID returns a movie by internal ID.
func (r *MovieRepository) FindByID(ctx context.Context, id int) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = $1`, id)
	return scanMovie(row)
}

// FindByExternalID returns a movie by IMDb ID.
func (r *MovieRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.imdb_id = $1`, externalID)
	return scanMovie(row)
}

// FindByTitle returns the movie whose display or original title matches
// exactly, ignoring case. Hydrated rows win over phantoms.
func (r *MovieRepository) FindByTitle(ctx context.Context, title string) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies m
		WHERE lower(m.title) = lower($1) OR lower(m.title_original) = lower($1)
		ORDER BY m.is_explicitly_added DESC, m.cached_at DESC
		LIMIT 1
	`, strings.TrimSpace(title))
	return scanMovie(row)
}

// UpsertByExternalID inserts or refreshes a movie in one statement keyed
// on imdb_id. Curated fields (custom poster, non-empty categories) survive
// a refresh and an explicitly added row never drops back to phantom.
func (r *MovieRepository) UpsertByExternalID(ctx context.Context, m *models.Movie) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO movies AS m (imdb_id, title, title_original, year, genres, genres_original,
			categories, plot, plot_original, poster_url, director, actors, runtime,
			language, imdb_rating, imdb_votes, is_explicitly_added, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (imdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			title_original = EXCLUDED.title_original,
			year = EXCLUDED.year,
			genres = EXCLUDED.genres,
			genres_original = EXCLUDED.genres_original,
			categories = CASE WHEN cardinality(m.categories) = 0
				THEN EXCLUDED.categories ELSE m.categories END,
			plot = EXCLUDED.plot,
			plot_original = EXCLUDED.plot_original,
			poster_url = EXCLUDED.poster_url,
			director = EXCLUDED.director,
			actors = EXCLUDED.actors,
			runtime = EXCLUDED.runtime,
			language = EXCLUDED.language,
			imdb_rating = EXCLUDED.imdb_rating,
			imdb_votes = EXCLUDED.imdb_votes,
			is_explicitly_added = m.is_explicitly_added OR EXCLUDED.is_explicitly_added,
			cached_at = EXCLUDED.cached_at
		RETURNING `+movieColumns,
		m.ExternalID, m.Title, m.TitleOriginal, m.Year,
		pq.Array(m.Genres), pq.Array(m.GenresOriginal), pq.Array(m.Categories),
		m.Plot, m.PlotOriginal, m.PosterURL, m.Director, m.Actors, m.Runtime,
		m.Language, m.ExternalRating, m.ExternalVotes, m.IsExplicitlyAdded, m.CachedAt,
	)
	return scanMovie(row)
}

// InsertPhantom stores a search-result stub unless a row with the same
// imdb_id already exists. It reports whether a row was inserted.
func (r *MovieRepository) InsertPhantom(ctx context.Context, m *models.Movie) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO movies (imdb_id, title, year, poster_url, is_explicitly_added, cached_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		ON CONFLICT (imdb_id) DO NOTHING
	`, m.ExternalID, m.Title, m.Year, m.PosterURL, m.CachedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a manually curated movie.
func (r *MovieRepository) Create(ctx context.Context, m *models.Movie) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO movies AS m (imdb_id, title, title_original, year, genres, genres_original,
			categories, plot, plot_original, poster_url, custom_poster, director, actors,
			runtime, language, imdb_rating, imdb_votes, is_explicitly_added, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, TRUE, $18)
		RETURNING `+movieColumns,
		m.ExternalID, m.Title, m.TitleOriginal, m.Year,
		pq.Array(m.Genres), pq.Array(m.GenresOriginal), pq.Array(m.Categories),
		m.Plot, m.PlotOriginal, m.PosterURL, m.CustomPoster, m.Director, m.Actors,
		m.Runtime, m.Language, m.ExternalRating, m.ExternalVotes, m.CachedAt,
	)
	created, err := scanMovie(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: imdb_id %s", ErrDuplicate, m.ExternalID)
	}
	return created, err
}

// Update overwrites the editable fields of a movie.
func (r *MovieRepository) Update(ctx context.Context, m *models.Movie) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE movies AS m SET
			title = $2, title_original = $3, year = $4, genres = $5,
			genres_original = $6, categories = $7, plot = $8, plot_original = $9,
			poster_url = $10, custom_poster = $11, director = $12, actors = $13,
			runtime = $14, language = $15, imdb_rating = $16, imdb_votes = $17
		WHERE m.id = $1
		RETURNING `+movieColumns,
		m.ID, m.Title, m.TitleOriginal, m.Year,
		pq.Array(m.Genres), pq.Array(m.GenresOriginal), pq.Array(m.Categories),
		m.Plot, m.PlotOriginal, m.PosterURL, m.CustomPoster, m.Director, m.Actors,
		m.Runtime, m.Language, m.ExternalRating, m.ExternalVotes,
	)
	return scanMovie(row)
}

// Delete removes a movie. Ratings go with it through ON DELETE CASCADE.
func (r *MovieRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
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

// Count returns how many movies match the filter.
func (r *MovieRepository) Count(ctx context.Context, f models.MovieFilter) (int, error) {
	where, args := buildWhere(f)
	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies m WHERE "+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return total, nil
}

// List returns one page of movies matching the filters plus the total
// number of matches.
func (r *MovieRepository) List(ctx context.Context, params models.MovieListParams) ([]models.Movie, int, error) {
	filter := params.Filter()
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildWhere(filter)
	argIdx := len(args) + 1
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM movies m
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, movieColumns, where, orderBy(params.Sort), argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset())

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}
	defer rows.Close()

	movies := make([]models.Movie, 0, params.Limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan movie row: %w", err)
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// buildWhere translates the filter into a WHERE clause. With no active
// filter only explicitly added movies are visible.
func buildWhere(f models.MovieFilter) (string, []any) {
	conditions := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if f.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(m.title ILIKE $%d OR m.plot ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(f.Query)+"%")
		argIdx++
	}
	if f.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(m.genres)", argIdx))
		args = append(args, f.Genre)
		argIdx++
	}
	if f.MinRating > 0 {
		conditions = append(conditions, fmt.Sprintf("m.imdb_rating >= $%d", argIdx))
		args = append(args, f.MinRating)
	}
	if !f.Active() {
		conditions = append(conditions, "m.is_explicitly_added = TRUE")
	}
	return strings.Join(conditions, " AND "), args
}

// orderBy maps a sort key to a fixed ORDER BY clause. Year is a string
// column; fixed-width years sort correctly as text.
func orderBy(sort string) string {
	switch sort {
	case models.SortRating:
		return "m.imdb_rating DESC, m.id ASC"
	case models.SortDate:
		return "m.year DESC, m.id ASC"
	case models.SortTitle:
		return "m.title ASC, m.id ASC"
	default:
		return "m.cached_at DESC, m.id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
