package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

type ContactSubmission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question es el contenido de entrevista. Embedding queda vacio si el LLM no estaba disponible.
type Question struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	Category   string           `json:"category"`
	Difficulty string           `json:"difficulty"`
	Tags       []string         `json:"tags"`
	Embedding  *pgvector.Vector `json:"-"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Feedback es la evaluacion generada por el LLM para una respuesta de entrevista.
type Feedback struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
	Structured   bool     `json:"structured"`
}
