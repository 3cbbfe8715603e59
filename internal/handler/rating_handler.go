package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-catalog-service/internal/middleware"
	"movie-catalog-service/internal/models"
)

// Rater records user ratings.
type Rater interface {
	Rate(ctx context.Context, userID, movieID, score int) (*models.Rating, error)
	Delete(ctx context.Context, userID, movieID int) error
	ListByUser(ctx context.Context, userID int) ([]models.Rating, error)
}

// RatingHandler handles rating requests for the authenticated user.
type RatingHandler struct {
	rater Rater
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(rater Rater) *RatingHandler {
	return &RatingHandler{rater: rater}
}

// RateMovie sets the caller's score for a movie.
// @Summary Rate movie
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path int true "Movie ID"
// @Param rating body models.RateRequest true "Score 1-10"
// @Success 200 {object} models.Rating
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id}/rating [put]
func (h *RatingHandler) RateMovie(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return err
	}
	var req models.RateRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest("invalid request body")
	}
	caller, _ := middleware.CallerFrom(c)

	rating, err := h.rater.Rate(c.Context(), caller.UserID, id, req.Score)
	if err != nil {
		return err
	}
	return c.JSON(rating)
}

// DeleteRating removes the caller's score for a movie.
// @Router /movies/{id}/rating [delete]
func (h *RatingHandler) DeleteRating(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return err
	}
	caller, _ := middleware.CallerFrom(c)
	if err := h.rater.Delete(c.Context(), caller.UserID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MyRatings lists the caller's ratings.
// @Router /me/ratings [get]
func (h *RatingHandler) MyRatings(c fiber.Ctx) error {
	caller, _ := middleware.CallerFrom(c)
	ratings, err := h.rater.ListByUser(c.Context(), caller.UserID)
	if err != nil {
		return err
	}
	return c.JSON(ratings)
}
