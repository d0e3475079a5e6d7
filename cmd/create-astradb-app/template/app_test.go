package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAsker answers from fixed queues.
type scriptedAsker struct {
	selects []string
	texts   []string
}

func (s *scriptedAsker) Select(message string, choices []string) (string, error) {
	if len(s.selects) == 0 {
		return "", errPromptAborted
	}
	v := s.selects[0]
	s.selects = s.selects[1:]
	return v, nil
}

func (s *scriptedAsker) Text(message string) (string, error) {
	if len(s.texts) == 0 {
		return "", errPromptAborted
	}
	v := s.texts[0]
	s.texts = s.texts[1:]
	return v, nil
}

// testMovies has vectors so that a query along axis 0 ranks them by weight.
func testMovies() []Movie {
	return []Movie{
		{Title: "Dusty Trail", Year: 1950, Genre: "Western", Description: "cowboys", Vector: mixVector(0.9)},
		{Title: "Sunset Ride", Year: 1955, Genre: "Western", Description: "riders", Vector: mixVector(0.6)},
		{Title: "Ghost Town", Year: 1960, Genre: "Western", Description: "ghosts", Vector: mixVector(0.3)},
		{Title: "Laugh Track", Year: 1990, Genre: "Comedy", Description: "jokes", Vector: mixVector(1.0)},
		{Title: "Big Tears", Year: 2001, Genre: "Drama", Description: "tears", Vector: mixVector(0.8)},
		{Title: "Love Letters", Year: 2010, Genre: "Romance", Description: "letters", Vector: mixVector(0.1)},
	}
}

type appHarness struct {
	app  *App
	coll *memoryCollection
	out  *bytes.Buffer
}

func newAppHarness(t *testing.T, embedder Embedder, asker Asker, movies []Movie) *appHarness {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	h := &appHarness{coll: &memoryCollection{exists: true}, out: &bytes.Buffer{}}
	h.app = NewApp(AppConfig{
		Config: &Config{Connection: Connection{APIEndpoint: "https://db.example.com", ApplicationToken: "AstraCS:abcdefghijklmnop"}},
		Connect: func(ctx context.Context, conn Connection) (Collection, error) {
			return h.coll, nil
		},
		Embedder:  embedder,
		Asker:     asker,
		Formatter: NewPlainFormatter(),
		Out:       h.out,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Movies:    movies,
	})
	return h
}

func TestLoadData_DropsAndInsertsInBatches(t *testing.T) {
	movies := make([]Movie, 45)
	for i := range movies {
		movies[i] = Movie{Title: fmt.Sprintf("Movie %d", i), Year: 2000, Genre: "Drama", Vector: axisVector()}
	}
	h := newAppHarness(t, nil, &scriptedAsker{}, movies)
	h.coll.movies = []Movie{{Title: "stale"}}

	require.NoError(t, h.app.LoadData(context.Background(), h.coll))

	assert.Equal(t, 1, h.coll.drops)
	assert.Equal(t, 1, h.coll.creates)
	assert.Equal(t, []int{20, 20, 5}, h.coll.inserts)
	assert.Len(t, h.coll.movies, 45)
	assert.Contains(t, h.out.String(), "Inserting 45 movies")
}

func TestLoadData_ToleratesMissingCollection(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{}, testMovies())
	h.coll.exists = false

	require.NoError(t, h.app.LoadData(context.Background(), h.coll))
	assert.Len(t, h.coll.movies, len(testMovies()))
}

func TestLoadData_EmbedsMoviesWithoutVectors(t *testing.T) {
	server, calls := embeddingsServer(t, http.StatusOK, func(in string) []float32 {
		if in == "needs vector" {
			return mixVector(0.5)
		}
		return axisVector()
	})
	movies := []Movie{
		{Title: "Has", Year: 2000, Genre: "Drama", Description: "has vector", Vector: axisVector()},
		{Title: "Needs", Year: 2001, Genre: "Drama", Description: "needs vector"},
	}
	h := newAppHarness(t, newTestEmbedder(server), &scriptedAsker{}, movies)

	require.NoError(t, h.app.LoadData(context.Background(), h.coll))
	assert.Equal(t, 1, *calls)
	require.Len(t, h.coll.movies, 2)
	assert.Equal(t, float32(0.5), h.coll.movies[1].Vector[0])
	assert.Empty(t, movies[1].Vector, "input slice must not be modified")
}

func TestGenreLookup(t *testing.T) {
	coll := &memoryCollection{movies: testMovies()}

	movie, err := GenreLookup(context.Background(), coll, "Comedy")
	require.NoError(t, err)
	require.NotNil(t, movie)
	assert.Equal(t, "Laugh Track", movie.Title)
	assert.Nil(t, movie.Similarity)

	movie, err = GenreLookup(context.Background(), coll, "Horror")
	require.NoError(t, err)
	assert.Nil(t, movie)
}

func TestFindMovieByGenre_NoMatch(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{selects: []string{"Romance"}}, nil)
	h.coll.movies = []Movie{{Title: "Only Drama", Genre: "Drama"}}

	require.NoError(t, h.app.FindMovieByGenre(context.Background(), h.coll))
	assert.Contains(t, h.out.String(), "Sorry, I couldn't find a Romance movie for you.")
}

func TestFindMovieByGenre_Match(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{selects: []string{"Western"}}, nil)
	h.coll.movies = testMovies()

	require.NoError(t, h.app.FindMovieByGenre(context.Background(), h.coll))
	assert.Contains(t, h.out.String(), "Sure! Here is an option for you:\nDusty Trail (Western, 1950)\n    cowboys")
}

func TestSemanticLookup_TopThreeDescending(t *testing.T) {
	server, _ := embeddingsServer(t, http.StatusOK, func(string) []float32 { return axisVector() })
	coll := &memoryCollection{movies: testMovies()}

	movies, err := SemanticLookup(context.Background(), coll, newTestEmbedder(server), "something funny")
	require.NoError(t, err)
	require.Len(t, movies, SemanticLimit)

	assert.Equal(t, "Laugh Track", movies[0].Title)
	for i, m := range movies {
		require.NotNil(t, m.Similarity, m.Title)
		assert.Nil(t, m.Vector)
		if i > 0 {
			assert.GreaterOrEqual(t, *movies[i-1].Similarity, *m.Similarity)
		}
	}
}

func TestHybridLookup_GenreAndLimit(t *testing.T) {
	server, _ := embeddingsServer(t, http.StatusOK, func(string) []float32 { return axisVector() })
	coll := &memoryCollection{movies: testMovies()}

	movies, err := HybridLookup(context.Background(), coll, newTestEmbedder(server), "Western", "dusty")
	require.NoError(t, err)
	require.Len(t, movies, HybridLimit)

	for _, m := range movies {
		assert.Equal(t, "Western", m.Genre)
	}
	assert.Equal(t, "Dusty Trail", movies[0].Title)
	assert.Equal(t, "Sunset Ride", movies[1].Title)
}

func TestVectorLookups_EmbeddingFailureBeforeQuery(t *testing.T) {
	server, _ := embeddingsServer(t, http.StatusInternalServerError, nil)
	embedder := newTestEmbedder(server)
	coll := &memoryCollection{movies: testMovies()}

	_, err := SemanticLookup(context.Background(), coll, embedder, "x")
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = HybridLookup(context.Background(), coll, embedder, "Western", "x")
	assert.ErrorIs(t, err, ErrEmbedding)

	assert.Equal(t, 0, coll.finds)
}

func TestVectorLookups_NoEmbedder(t *testing.T) {
	coll := &memoryCollection{movies: testMovies()}
	_, err := SemanticLookup(context.Background(), coll, nil, "x")
	assert.ErrorIs(t, err, ErrNoEmbedder)
	assert.Equal(t, 0, coll.finds)
}

func TestRun_WithoutEmbedderSkipsVectorSteps(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{selects: []string{"Drama"}}, testMovies())

	require.NoError(t, h.app.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "ASTRA_DB_API_ENDPOINT = https://db.example.com")
	assert.Contains(t, out, "ASTRA_DB_APPLICATION_TOKEN = AstraCS:abcde...")
	assert.Contains(t, out, "1️⃣")
	assert.Contains(t, out, "Big Tears (Drama, 2001)")
	assert.Contains(t, out, "I can't generate embeddings without an OpenAI API key.")
	assert.NotContains(t, out, "2️⃣")
	assert.NotContains(t, out, "3️⃣")
	assert.True(t, h.coll.closed)
}

func TestRun_FullSequence(t *testing.T) {
	server, calls := embeddingsServer(t, http.StatusOK, func(string) []float32 { return axisVector() })
	asker := &scriptedAsker{
		selects: []string{"Comedy", "Western"},
		texts:   []string{"make me laugh", "dusty trails"},
	}
	h := newAppHarness(t, newTestEmbedder(server), asker, testMovies())

	require.NoError(t, h.app.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "2️⃣")
	assert.Contains(t, out, "3️⃣")
	assert.Contains(t, out, "Here are two most relevant movies based on your request:\n0.9939 Dusty Trail (Western, 1950)")
	assert.Contains(t, out, "Happy Coding!")
	assert.Equal(t, 2, *calls)
	assert.Empty(t, asker.selects)
	assert.Empty(t, asker.texts)
}

func TestRun_EmbeddingFailureStopsSequence(t *testing.T) {
	server, _ := embeddingsServer(t, http.StatusInternalServerError, nil)
	h := newAppHarness(t, newTestEmbedder(server), &scriptedAsker{
		selects: []string{"Comedy", "Western"},
		texts:   []string{"make me laugh", "dusty trails"},
	}, testMovies())

	err := h.app.Run(context.Background())
	require.ErrorIs(t, err, ErrEmbedding)
	assert.NotContains(t, h.out.String(), "3️⃣")
}

func TestRun_ConnectFailure(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{}, testMovies())
	h.app.connect = func(ctx context.Context, conn Connection) (Collection, error) {
		return nil, ErrUnreachable
	}

	err := h.app.Run(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.NotContains(t, h.out.String(), "Loading the data")
}

func TestRun_InsertFailure(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{}, testMovies())
	h.coll.err = errors.New("quota exceeded")

	err := h.app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.True(t, h.coll.closed)
}

func TestLoadMovies_BundledDataset(t *testing.T) {
	movies, err := LoadMovies()
	require.NoError(t, err)
	require.NotEmpty(t, movies)

	genres := map[string]bool{}
	for _, m := range movies {
		assert.NotEmpty(t, m.Title)
		assert.NotZero(t, m.Year, m.Title)
		assert.NotEmpty(t, m.Description, m.Title)
		if len(m.Vector) > 0 {
			assert.Len(t, m.Vector, VectorDimension, m.Title)
		}
		genres[m.Genre] = true
	}
	for _, g := range Genres {
		assert.True(t, genres[g], "dataset has no %s movie", g)
	}
}

func TestLineAsker(t *testing.T) {
	out := &bytes.Buffer{}
	asker := newLineAsker(strings.NewReader("3\n\nsomething scary\n"), out)

	genre, err := asker.Select("Genre?", Genres)
	require.NoError(t, err)
	assert.Equal(t, "Western", genre)

	text, err := asker.Text("Describe it")
	require.NoError(t, err)
	assert.Equal(t, "something scary", text)

	_, err = asker.Text("Again")
	assert.ErrorIs(t, err, errPromptAborted)
}

func TestLoadData_PrintsCollectionName(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{}, testMovies())
	h.coll.name = "demo_movies"

	require.NoError(t, h.app.LoadData(context.Background(), h.coll))

	out := h.out.String()
	assert.Contains(t, out, "Dropping existing collection demo_movies if it exists")
	assert.Contains(t, out, "Creating collection demo_movies and loading data")
}

func TestRun_LegacyBannerShowsGRPCEndpoint(t *testing.T) {
	h := newAppHarness(t, nil, &scriptedAsker{selects: []string{"Drama"}}, testMovies())
	h.app.config = &Config{Connection: Connection{
		DatabaseID: "abc", Region: "us-east4-0.gcp", Keyspace: "demo", ApplicationToken: "tok",
	}}

	require.NoError(t, h.app.Run(context.Background()))
	assert.Contains(t, h.out.String(), "gRPC endpoint = https://abc.us-east4-0.gcp.cloud.qdrant.io:6334")
}

func TestFindMoviesByDescription_NoMatch(t *testing.T) {
	server, _ := embeddingsServer(t, http.StatusOK, func(string) []float32 { return axisVector() })
	h := newAppHarness(t, newTestEmbedder(server), &scriptedAsker{texts: []string{"anything"}}, nil)

	require.NoError(t, h.app.FindMoviesByDescription(context.Background(), h.coll))

	out := h.out.String()
	assert.Contains(t, out, "Sorry, I couldn't find any movie matching your request.")
	assert.NotContains(t, out, "Here are the most relevant movies")
}

func TestFindMoviesByGenreAndDescription_NoMatch(t *testing.T) {
	server, _ := embeddingsServer(t, http.StatusOK, func(string) []float32 { return axisVector() })
	h := newAppHarness(t, newTestEmbedder(server), &scriptedAsker{
		selects: []string{"Romance"},
		texts:   []string{"dusty trails"},
	}, nil)
	h.coll.movies = []Movie{{Title: "Dusty Trail", Genre: "Western", Vector: axisVector()}}

	require.NoError(t, h.app.FindMoviesByGenreAndDescription(context.Background(), h.coll))

	out := h.out.String()
	assert.Contains(t, out, "Sorry, I couldn't find a Romance movie matching your request.")
	assert.NotContains(t, out, "Here are two most relevant movies")
}
