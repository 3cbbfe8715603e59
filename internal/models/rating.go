package models

import "time"

// Rating is one user's score for a movie.
type Rating struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// RateRequest is the request body for rating a movie.
type RateRequest struct {
	Score int `json:"score"`
}

// Score bounds.
const (
	MinScore = 1
	MaxScore = 10
)
