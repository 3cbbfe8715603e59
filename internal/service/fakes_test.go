package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/omdb"
	"movie-catalog-service/internal/repository"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory CatalogStore whose upsert is atomic under mu.
type memStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Movie
}

func newMemStore(movies ...*models.Movie) *memStore {
	s := &memStore{byID: map[int]*models.Movie{}}
	for _, m := range movies {
		s.nextID++
		cp := *m
		cp.ID = s.nextID
		s.byID[cp.ID] = &cp
	}
	return s
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *memStore) byExternal(id string) *models.Movie {
	for _, m := range s.byID {
		if m.ExternalID == id {
			return m
		}
	}
	return nil
}

func (s *memStore) FindByID(_ context.Context, id int) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) FindByExternalID(_ context.Context, id string) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byExternal(id)
	if m == nil {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) FindByTitle(_ context.Context, title string) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.byID {
		if strings.EqualFold(m.Title, title) || strings.EqualFold(m.TitleOriginal, title) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) UpsertByExternalID(_ context.Context, m *models.Movie) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	if existing := s.byExternal(m.ExternalID); existing != nil {
		cp.ID = existing.ID
		cp.CustomPoster = existing.CustomPoster
		if len(existing.Categories) > 0 {
			cp.Categories = existing.Categories
		}
		cp.IsExplicitlyAdded = existing.IsExplicitlyAdded || m.IsExplicitlyAdded
	} else {
		s.nextID++
		cp.ID = s.nextID
	}
	s.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) InsertPhantom(_ context.Context, m *models.Movie) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byExternal(m.ExternalID) != nil {
		return false, nil
	}
	s.nextID++
	cp := models.Movie{
		ID:         s.nextID,
		ExternalID: m.ExternalID,
		Title:      m.Title,
		Year:       m.Year,
		PosterURL:  m.PosterURL,
		CachedAt:   m.CachedAt,
	}
	s.byID[cp.ID] = &cp
	return true, nil
}

func (s *memStore) Create(_ context.Context, m *models.Movie) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byExternal(m.ExternalID) != nil {
		return nil, repository.ErrDuplicate
	}
	s.nextID++
	cp := *m
	cp.ID = s.nextID
	cp.IsExplicitlyAdded = true
	s.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) Update(_ context.Context, m *models.Movie) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[m.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	s.byID[m.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memStore) match(f models.MovieFilter) []models.Movie {
	var out []models.Movie
	for _, m := range s.byID {
		if !f.Active() && !m.IsExplicitlyAdded {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(m.Title), q) && !strings.Contains(strings.ToLower(m.Plot), q) {
				continue
			}
		}
		if f.Genre != "" && !slices.Contains(m.Genres, f.Genre) {
			continue
		}
		if f.MinRating > 0 && m.ExternalRating < f.MinRating {
			continue
		}
		out = append(out, *m)
	}
	return out
}

func (s *memStore) Count(_ context.Context, f models.MovieFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.match(f)), nil
}

func (s *memStore) List(_ context.Context, p models.MovieListParams) ([]models.Movie, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.match(p.Filter())
	slices.SortFunc(all, func(a, b models.Movie) int {
		switch p.Sort {
		case models.SortTitle:
			if c := strings.Compare(a.Title, b.Title); c != 0 {
				return c
			}
		case models.SortRating:
			if a.ExternalRating != b.ExternalRating {
				if a.ExternalRating > b.ExternalRating {
					return -1
				}
				return 1
			}
		}
		return a.ID - b.ID
	})
	total := len(all)
	start := min(p.Offset(), total)
	end := min(start+p.Limit, total)
	return all[start:end], total, nil
}

// memRatings is an in-memory RatingStore.
type memRatings struct {
	mu         sync.Mutex
	scores     map[[2]int]int
	batchCalls atomic.Int32
	lastBatch  []int
	upsertErr  error
}

func newMemRatings() *memRatings {
	return &memRatings{scores: map[[2]int]int{}}
}

func (r *memRatings) Upsert(_ context.Context, userID, movieID, score int) (*models.Rating, error) {
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[[2]int{userID, movieID}] = score
	return &models.Rating{UserID: userID, MovieID: movieID, Score: score}, nil
}

func (r *memRatings) Delete(_ context.Context, userID, movieID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := [2]int{userID, movieID}
	if _, ok := r.scores[k]; !ok {
		return repository.ErrNotFound
	}
	delete(r.scores, k)
	return nil
}

func (r *memRatings) ListByUser(_ context.Context, userID int) ([]models.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Rating{}
	for k, v := range r.scores {
		if k[0] == userID {
			out = append(out, models.Rating{UserID: k[0], MovieID: k[1], Score: v})
		}
	}
	return out, nil
}

func (r *memRatings) StatsByMovie(ctx context.Context, movieID int) (models.CommunityStats, error) {
	stats, err := r.stats([]int{movieID})
	return stats[movieID], err
}

func (r *memRatings) StatsByMovies(_ context.Context, ids []int) (map[int]models.CommunityStats, error) {
	r.batchCalls.Add(1)
	r.mu.Lock()
	r.lastBatch = slices.Clone(ids)
	r.mu.Unlock()
	return r.stats(ids)
}

func (r *memRatings) stats(ids []int) (map[int]models.CommunityStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int]models.CommunityStats{}
	for _, id := range ids {
		sum, n := 0, 0
		for k, v := range r.scores {
			if k[1] == id {
				sum += v
				n++
			}
		}
		if n > 0 {
			out[id] = models.NewCommunityStats(float64(sum)/float64(n), n)
		}
	}
	return out, nil
}

// fakeProvider serves canned records and counts calls.
type fakeProvider struct {
	mu          sync.Mutex
	records     map[string]*omdb.Record
	search      []omdb.Stub
	err         error
	searchErr   error
	fetchCalls  atomic.Int32
	searchCalls atomic.Int32
	gate        chan struct{}
}

func newFakeProvider(recs ...*omdb.Record) *fakeProvider {
	p := &fakeProvider{records: map[string]*omdb.Record{}}
	for _, r := range recs {
		p.records[r.ImdbID] = r
		p.records[strings.ToLower(r.Title)] = r
	}
	return p
}

func (p *fakeProvider) fetch(key string) (*omdb.Record, error) {
	p.fetchCalls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[key]
	if !ok {
		return nil, omdb.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (p *fakeProvider) FetchByID(_ context.Context, id string) (*omdb.Record, error) {
	return p.fetch(id)
}

func (p *fakeProvider) FetchByTitle(_ context.Context, title string) (*omdb.Record, error) {
	return p.fetch(strings.ToLower(title))
}

func (p *fakeProvider) Search(_ context.Context, _ string, _ int) (*omdb.SearchResult, error) {
	p.searchCalls.Add(1)
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return &omdb.SearchResult{Results: p.search, TotalResults: len(p.search)}, nil
}

func (p *fakeProvider) Suggestions(_ context.Context, _ string) ([]omdb.Suggestion, error) {
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	out := []omdb.Suggestion{}
	for _, s := range p.search[:min(len(p.search), 5)] {
		out = append(out, omdb.Suggestion{ImdbID: s.ImdbID, Title: s.Title, Year: s.Year})
	}
	return out, nil
}

// prefixTranslator marks translated text so tests can tell it apart.
type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, lang string) string {
	if text == "" {
		return text
	}
	return lang + ":" + text
}

func matrixRecord() *omdb.Record {
	return &omdb.Record{
		ImdbID:     "tt0133093",
		Title:      "The Matrix",
		Year:       "1999",
		Genre:      "Action, Sci-Fi",
		Plot:       "A hacker learns the truth.",
		Poster:     "https://m.media-amazon.com/images/M/abc._V1_SX300.jpg",
		Director:   "Lana Wachowski, Lilly Wachowski",
		Actors:     "Keanu Reeves",
		Runtime:    "136 min",
		Language:   "English",
		ImdbRating: "8.7",
		ImdbVotes:  "2,100,000",
	}
}
