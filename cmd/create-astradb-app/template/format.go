package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// movieSeparator is placed between formatted movies.
const movieSeparator = "\n  --\n"

// Formatter renders movies for the console.
type Formatter interface {
	Movie(m Movie) string
	Movies(movies []Movie) string
}

// styleFunc decorates a piece of text.
type styleFunc func(a ...any) string

// consoleFormatter renders a header line (similarity, title, genre and year)
// and an indented description.
type consoleFormatter struct {
	similarity styleFunc
	title      styleFunc
	dim        styleFunc
}

// NewStyledFormatter colors the output. fatih/color drops the escape codes
// when stdout is not a terminal or NO_COLOR is set.
func NewStyledFormatter() Formatter {
	return &consoleFormatter{
		similarity: color.New(color.FgMagenta).SprintFunc(),
		title:      color.New(color.Bold).SprintFunc(),
		dim:        color.New(color.Faint).SprintFunc(),
	}
}

// NewPlainFormatter renders without styling.
func NewPlainFormatter() Formatter {
	return &consoleFormatter{similarity: fmt.Sprint, title: fmt.Sprint, dim: fmt.Sprint}
}

func (f *consoleFormatter) Movie(m Movie) string {
	header := fmt.Sprintf("%s %s", f.title(m.Title), f.dim(fmt.Sprintf("(%s, %d)", m.Genre, m.Year)))
	if m.Similarity != nil {
		header = f.similarity(fmt.Sprintf("%.4f", *m.Similarity)) + " " + header
	}
	return header + "\n    " + m.Description
}

func (f *consoleFormatter) Movies(movies []Movie) string {
	parts := make([]string, len(movies))
	for i, m := range movies {
		parts[i] = f.Movie(m)
	}
	return strings.Join(parts, movieSeparator)
}
