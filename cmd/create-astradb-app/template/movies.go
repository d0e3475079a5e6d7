package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Genres offered by the genre lookups.
var Genres = []string{"Comedy", "Drama", "Western", "Romance"}

// Movie is one record of the dataset. Vector is optional; Similarity is set
// only on results of a similarity query.
type Movie struct {
	Title       string    `json:"title"`
	Year        int       `json:"year"`
	Genre       string    `json:"genre"`
	Description string    `json:"description"`
	Vector      []float32 `json:"$vector,omitempty"`
	Similarity  *float64  `json:"$similarity,omitempty"`
}

//go:embed movies.json
var moviesJSON []byte

// LoadMovies parses the bundled dataset.
func LoadMovies() ([]Movie, error) {
	return parseMovies(moviesJSON)
}

func parseMovies(data []byte) ([]Movie, error) {
	var movies []Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("parse movies dataset: %w", err)
	}
	return movies, nil
}
