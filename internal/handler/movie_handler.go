package handler

import (
	"context"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"movie-catalog-service/internal/middleware"
	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/service"
)

// Catalog resolves single movies.
type Catalog interface {
	Resolve(ctx context.Context, key string) (*models.MovieDetail, error)
	ResolveByID(ctx context.Context, id int) (*models.MovieDetail, error)
}

// Lister builds catalog listings.
type Lister interface {
	List(ctx context.Context, params models.MovieListParams, isAdmin bool) (*models.MovieListResponse, error)
}

// MovieHandler handles HTTP requests for movies.
type MovieHandler struct {
	catalog Catalog
	lister  Lister
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(catalog Catalog, lister Lister) *MovieHandler {
	return &MovieHandler{catalog: catalog, lister: lister}
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MovieHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "movie-catalog-service",
	})
}

// ListMovies returns a paginated list of movies.
// @Summary List movies
// @Tags movies
// @Produce json
// @Param search query string false "Text search on title and plot"
// @Param genre query string false "Genre"
// @Param min_rating query number false "Minimum IMDb rating"
// @Param sort query string false "Sort order" Enums(rating,date,title)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} models.MovieListResponse
// @Failure 400 {object} ErrorResponse
// @Router /movies [get]
func (h *MovieHandler) ListMovies(c fiber.Ctx) error {
	params := models.MovieListParams{
		Search: c.Query("search"),
		Genre:  c.Query("genre"),
		Sort:   c.Query("sort"),
	}
	var err error
	if params.Page, err = queryInt(c, "page"); err != nil {
		return err
	}
	if params.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}
	if raw := c.Query("min_rating"); raw != "" {
		if params.MinRating, err = strconv.ParseFloat(raw, 64); err != nil {
			return &service.ValidationError{Field: "min_rating", Message: "must be a number"}
		}
	}
	caller, _ := middleware.CallerFrom(c)

	result, err := h.lister.List(c.Context(), params, caller.IsAdmin())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetMovieDetail returns one movie by internal id, IMDb id or exact title.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path string true "Movie ID, IMDb ID or title"
// @Success 200 {object} models.MovieDetail
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) GetMovieDetail(c fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return badRequest("invalid movie key")
	}

	var detail *models.MovieDetail
	if id, convErr := strconv.Atoi(key); convErr == nil {
		detail, err = h.catalog.ResolveByID(c.Context(), id)
	} else {
		detail, err = h.catalog.Resolve(c.Context(), key)
	}
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

// queryInt reads an optional integer query parameter. Absent means zero,
// which the listing replaces with its default.
func queryInt(c fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &service.ValidationError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func movieID(c fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return 0, badRequest("invalid movie ID")
	}
	return id, nil
}
