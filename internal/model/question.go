package model

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty grades a question bank entry.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is an entry of the question bank.
type Question struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Industry     string     `json:"industry"`
	Position     string     `json:"position"`
	Difficulty   Difficulty `json:"difficulty"`
	SampleAnswer string     `json:"sample_answer,omitempty"`
	IsFavorited  bool       `json:"is_favorited"`
	CreatedAt    time.Time  `json:"created_at"`
}

// QuestionFilter narrows question bank listings and interview question picks.
type QuestionFilter struct {
	Industry     string
	Position     string
	Difficulties []Difficulty
	Search       string
	// FavoritesOf restricts results to questions favorited by this candidate.
	FavoritesOf int
	// Favorited controls the per-row is_favorited flag for this candidate.
	Favorited int
}
