package handler

import (
	"github.com/gofiber/fiber/v3"

	"movie-catalog-service/internal/middleware"
)

// Register mounts the /api/v1 routes. limiter may be nil.
func Register(app fiber.Router, authn middleware.Authenticator, limiter fiber.Handler, movies *MovieHandler, admin *AdminHandler, ratings *RatingHandler) {
	api := app.Group("/api/v1", middleware.Auth(authn))
	if limiter != nil {
		api.Use(limiter)
	}
	api.Get("/health", movies.Health)
	api.Get("/movies", movies.ListMovies)
	api.Get("/movies/:id", movies.GetMovieDetail)

	user := middleware.RequireUser()
	api.Put("/movies/:id/rating", user, ratings.RateMovie)
	api.Delete("/movies/:id/rating", user, ratings.DeleteRating)
	api.Get("/me/ratings", user, ratings.MyRatings)

	adm := middleware.RequireAdmin()
	api.Post("/movies", adm, admin.CreateMovie)
	api.Put("/movies/:id", adm, admin.UpdateMovie)
	api.Delete("/movies/:id", adm, admin.DeleteMovie)
	api.Get("/provider/preview", adm, admin.Preview)
	api.Get("/provider/suggestions", adm, admin.Suggestions)
}
