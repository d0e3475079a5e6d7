package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FindByGenreInput defines the input parameters for the find_by_genre tool.
type FindByGenreInput struct {
	Genre string `json:"genre" jsonschema:"the genre: one of Comedy, Drama, Western or Romance"`
}

// FindByDescriptionInput defines the input parameters for the find_by_description tool.
type FindByDescriptionInput struct {
	Description string `json:"description" jsonschema:"what the user wants to watch, in their own words"`
}

// FindByGenreAndDescriptionInput defines the input parameters for the hybrid tool.
type FindByGenreAndDescriptionInput struct {
	Genre       string `json:"genre" jsonschema:"the genre: one of Comedy, Drama, Western or Romance"`
	Description string `json:"description" jsonschema:"what the user wants to watch, in their own words"`
}

// MoviesOutput contains lookup results.
type MoviesOutput struct {
	Movies  []Movie `json:"movies"`
	Message string  `json:"message,omitempty"`
}

// NewMCPServer registers the three lookups as MCP tools. The vector tools
// are only registered when an embedder is configured.
func NewMCPServer(coll Collection, embedder Embedder) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "astradb-vector-app",
		Version: "v0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_by_genre",
		Description: "Find one movie of the given genre.",
	}, makeGenreHandler(coll))

	if embedder != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "find_by_description",
			Description: "Find the movies whose description is most similar to the request, using vector search.",
		}, makeDescriptionHandler(coll, embedder))

		mcp.AddTool(server, &mcp.Tool{
			Name:        "find_by_genre_and_description",
			Description: "Find movies of a genre whose description is most similar to the request.",
		}, makeHybridHandler(coll, embedder))
	}

	return server
}

func validGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

func makeGenreHandler(coll Collection) func(
	context.Context, *mcp.CallToolRequest, FindByGenreInput,
) (*mcp.CallToolResult, MoviesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindByGenreInput) (
		*mcp.CallToolResult, MoviesOutput, error,
	) {
		if !validGenre(input.Genre) {
			return nil, MoviesOutput{}, fmt.Errorf("unknown genre %q, expected one of %v", input.Genre, Genres)
		}

		movie, err := GenreLookup(ctx, coll, input.Genre)
		if err != nil {
			return nil, MoviesOutput{}, fmt.Errorf("lookup failed: %w", err)
		}
		if movie == nil {
			return nil, MoviesOutput{Movies: []Movie{}, Message: "No movie found for that genre."}, nil
		}
		return nil, MoviesOutput{Movies: []Movie{*movie}}, nil
	}
}

func makeDescriptionHandler(coll Collection, embedder Embedder) func(
	context.Context, *mcp.CallToolRequest, FindByDescriptionInput,
) (*mcp.CallToolResult, MoviesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindByDescriptionInput) (
		*mcp.CallToolResult, MoviesOutput, error,
	) {
		movies, err := SemanticLookup(ctx, coll, embedder, input.Description)
		if err != nil {
			return nil, MoviesOutput{}, fmt.Errorf("search failed: %w", err)
		}
		return nil, moviesOutput(movies), nil
	}
}

func makeHybridHandler(coll Collection, embedder Embedder) func(
	context.Context, *mcp.CallToolRequest, FindByGenreAndDescriptionInput,
) (*mcp.CallToolResult, MoviesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindByGenreAndDescriptionInput) (
		*mcp.CallToolResult, MoviesOutput, error,
	) {
		if !validGenre(input.Genre) {
			return nil, MoviesOutput{}, fmt.Errorf("unknown genre %q, expected one of %v", input.Genre, Genres)
		}
		movies, err := HybridLookup(ctx, coll, embedder, input.Genre, input.Description)
		if err != nil {
			return nil, MoviesOutput{}, fmt.Errorf("search failed: %w", err)
		}
		return nil, moviesOutput(movies), nil
	}
}

func moviesOutput(movies []Movie) MoviesOutput {
	if len(movies) == 0 {
		return MoviesOutput{Movies: []Movie{}, Message: "No matching movies found. Try a broader description."}
	}
	return MoviesOutput{Movies: movies}
}
