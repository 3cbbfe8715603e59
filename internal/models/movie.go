package models

import (
	"math"
	"time"
)

// Movie represents a catalog item stored in our database.
type Movie struct {
	ID                int       `json:"id"`
	ExternalID        string    `json:"imdb_id"`
	Title             string    `json:"title"`
	TitleOriginal     string    `json:"title_original"`
	Year              string    `json:"year"`
	Genres            []string  `json:"genres"`
	GenresOriginal    []string  `json:"genres_original"`
	Categories        []string  `json:"categories"`
	Plot              string    `json:"plot"`
	PlotOriginal      string    `json:"plot_original"`
	PosterURL         string    `json:"poster_url"`
	CustomPoster      string    `json:"custom_poster"`
	Director          string    `json:"director"`
	Actors            string    `json:"actors"`
	Runtime           string    `json:"runtime"`
	Language          string    `json:"language"`
	ExternalRating    float64   `json:"imdb_rating"`
	ExternalVotes     string    `json:"imdb_votes"`
	IsExplicitlyAdded bool      `json:"is_explicitly_added"`
	CachedAt          time.Time `json:"cached_at"`
}

// DisplayPoster returns the admin-uploaded poster when set, else the provider poster.
func (m *Movie) DisplayPoster() string {
	if m.CustomPoster != "" {
		return m.CustomPoster
	}
	return m.PosterURL
}

// IsPhantom reports whether the movie is a search-result stub.
func (m *Movie) IsPhantom() bool {
	return !m.IsExplicitlyAdded && (m.Plot == "" || len(m.Genres) == 0)
}

// CommunityStats is the rating summary computed from user ratings.
type CommunityStats struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// NewCommunityStats rounds avg to one decimal. No ratings means zero.
func NewCommunityStats(avg float64, count int) CommunityStats {
	if count == 0 {
		return CommunityStats{}
	}
	return CommunityStats{Average: math.Round(avg*10) / 10, Count: count}
}

// MovieListItem is the response shape for movie listing.
type MovieListItem struct {
	Movie
	DisplayPosterURL   string  `json:"display_poster"`
	CommunityRating    float64 `json:"community_rating"`
	CommunityVoteCount int     `json:"community_vote_count"`
}

// MovieListResponse is the paginated movie listing response.
type MovieListResponse struct {
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Data       []MovieListItem `json:"data"`
}

// MovieDetail is the response shape for movie detail.
type MovieDetail struct {
	Movie
	DisplayPosterURL   string  `json:"display_poster"`
	CommunityRating    float64 `json:"community_rating"`
	CommunityVoteCount int     `json:"community_vote_count"`
	// Stale is set when the provider could not be reached and an
	// expired cached copy was served instead.
	Stale bool `json:"stale,omitempty"`
}

// NewMovieDetail attaches community stats to a movie.
func NewMovieDetail(m *Movie, stats CommunityStats) *MovieDetail {
	return &MovieDetail{
		Movie:              *m,
		DisplayPosterURL:   m.DisplayPoster(),
		CommunityRating:    stats.Average,
		CommunityVoteCount: stats.Count,
	}
}

// Sort orders accepted by the listing.
const (
	SortRating = "rating"
	SortDate   = "date"
	SortTitle  = "title"
	SortRecent = ""
)

// MovieFilter is the store-level predicate for listings.
type MovieFilter struct {
	Query     string
	Genre     string
	MinRating float64
}

// Active reports whether any filter is set. Without one, phantom
// records are hidden.
func (f MovieFilter) Active() bool {
	return f.Query != "" || f.Genre != "" || f.MinRating > 0
}

// MovieListParams holds query parameters for movie listing.
type MovieListParams struct {
	Search    string  `query:"search"`
	Genre     string  `query:"genre"`
	MinRating float64 `query:"min_rating"`
	Sort      string  `query:"sort"`
	Page      int     `query:"page"`
	Limit     int     `query:"limit"`
}

// Filter returns the store predicate for the params.
func (p MovieListParams) Filter() MovieFilter {
	return MovieFilter{Query: p.Search, Genre: p.Genre, MinRating: p.MinRating}
}

// Offset is the number of rows skipped for the current page.
func (p MovieListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages computes ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// MovieInput is the admin payload for creating a movie.
type MovieInput struct {
	ExternalID     string   `json:"imdb_id"`
	Title          string   `json:"title"`
	TitleOriginal  string   `json:"title_original"`
	Year           string   `json:"year"`
	Genres         []string `json:"genres"`
	GenresOriginal []string `json:"genres_original"`
	Categories     []string `json:"categories"`
	Plot           string   `json:"plot"`
	PlotOriginal   string   `json:"plot_original"`
	PosterURL      string   `json:"poster_url"`
	CustomPoster   string   `json:"custom_poster"`
	Director       string   `json:"director"`
	Actors         string   `json:"actors"`
	Runtime        string   `json:"runtime"`
	Language       string   `json:"language"`
	ExternalRating float64  `json:"imdb_rating"`
	ExternalVotes  string   `json:"imdb_votes"`
}

// MoviePatch is a partial update; nil fields are left unchanged.
type MoviePatch struct {
	Title          *string   `json:"title"`
	TitleOriginal  *string   `json:"title_original"`
	Year           *string   `json:"year"`
	Genres         *[]string `json:"genres"`
	GenresOriginal *[]string `json:"genres_original"`
	Categories     *[]string `json:"categories"`
	Plot           *string   `json:"plot"`
	PlotOriginal   *string   `json:"plot_original"`
	PosterURL      *string   `json:"poster_url"`
	CustomPoster   *string   `json:"custom_poster"`
	Director       *string   `json:"director"`
	Actors         *string   `json:"actors"`
	Runtime        *string   `json:"runtime"`
	Language       *string   `json:"language"`
	ExternalRating *float64  `json:"imdb_rating"`
	ExternalVotes  *string   `json:"imdb_votes"`
}

// Apply copies the set fields of p onto m.
func (p MoviePatch) Apply(m *Movie) {
	setString(&m.Title, p.Title)
	setString(&m.TitleOriginal, p.TitleOriginal)
	setString(&m.Year, p.Year)
	setString(&m.Plot, p.Plot)
	setString(&m.PlotOriginal, p.PlotOriginal)
	setString(&m.PosterURL, p.PosterURL)
	setString(&m.CustomPoster, p.CustomPoster)
	setString(&m.Director, p.Director)
	setString(&m.Actors, p.Actors)
	setString(&m.Runtime, p.Runtime)
	setString(&m.Language, p.Language)
	setString(&m.ExternalVotes, p.ExternalVotes)
	if p.Genres != nil {
		m.Genres = *p.Genres
	}
	if p.GenresOriginal != nil {
		m.GenresOriginal = *p.GenresOriginal
	}
	if p.Categories != nil {
		m.Categories = *p.Categories
	}
	if p.ExternalRating != nil {
		m.ExternalRating = *p.ExternalRating
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
