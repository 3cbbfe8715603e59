package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-catalog-service/internal/models"
	"movie-catalog-service/internal/omdb"
)

// Curator is the admin catalog API.
type Curator interface {
	Create(ctx context.Context, in models.MovieInput) (*models.MovieDetail, error)
	Update(ctx context.Context, id int, patch models.MoviePatch) (*models.Movie, error)
	Delete(ctx context.Context, id int) error
	Preview(ctx context.Context, key string) (*models.MovieDetail, error)
}

// Suggester returns provider matches for the admin form.
type Suggester interface {
	Suggestions(ctx context.Context, query string) ([]omdb.Suggestion, error)
}

// AdminHandler handles catalog curation requests.
type AdminHandler struct {
	curator   Curator
	suggester Suggester
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(curator Curator, suggester Suggester) *AdminHandler {
	return &AdminHandler{curator: curator, suggester: suggester}
}

// CreateMovie adds a movie, hydrating it from OMDb when only an IMDb id is given.
// @Summary Create movie
// @Tags admin
// @Accept json
// @Produce json
// @Param movie body models.MovieInput true "Movie"
// @Success 201 {object} models.MovieDetail
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /movies [post]
func (h *AdminHandler) CreateMovie(c fiber.Ctx) error {
	var in models.MovieInput
	if err := c.Bind().Body(&in); err != nil {
		return badRequest("invalid request body")
	}
	detail, err := h.curator.Create(c.Context(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// UpdateMovie applies a partial update.
// @Router /movies/{id} [put]
func (h *AdminHandler) UpdateMovie(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return err
	}
	var patch models.MoviePatch
	if err := c.Bind().Body(&patch); err != nil {
		return badRequest("invalid request body")
	}
	m, err := h.curator.Update(c.Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// DeleteMovie removes a movie and its ratings.
// @Router /movies/{id} [delete]
func (h *AdminHandler) DeleteMovie(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return err
	}
	if err := h.curator.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Preview resolves a title or IMDb id for the admin form.
// @Router /provider/preview [get]
func (h *AdminHandler) Preview(c fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return badRequest("query parameter q is required")
	}
	detail, err := h.curator.Preview(c.Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

// Suggestions returns the top provider matches without storing them.
// @Router /provider/suggestions [get]
func (h *AdminHandler) Suggestions(c fiber.Ctx) error {
	out, err := h.suggester.Suggestions(c.Context(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}
