package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
)

const (
	// InsertBatchSize bounds the number of movies per insert request.
	InsertBatchSize = 20

	// SemanticLimit is the number of movies returned by a description lookup.
	SemanticLimit = 3

	// HybridLimit is the number of movies returned by a genre + description lookup.
	HybridLimit = 2
)

// ErrNoEmbedder is returned by vector lookups when no API key is configured.
var ErrNoEmbedder = errors.New("OPENAI_API_KEY is not configured")

var (
	cyan = color.New(color.Bold, color.FgCyan).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

// Connector opens the collection described by a connection.
type Connector func(ctx context.Context, conn Connection) (Collection, error)

// DialQdrant is the production Connector.
func DialQdrant(ctx context.Context, conn Connection) (Collection, error) {
	return Dial(ctx, conn)
}

// App runs the interactive demo.
type App struct {
	config   *Config
	connect  Connector
	embedder Embedder // nil when no API key is configured
	ask      Asker
	format   Formatter
	out      io.Writer
	logger   *slog.Logger
	movies   []Movie
}

// AppConfig holds App dependencies.
type AppConfig struct {
	Config    *Config
	Connect   Connector
	Embedder  Embedder
	Asker     Asker
	Formatter Formatter
	Out       io.Writer
	Logger    *slog.Logger
	Movies    []Movie
}

// NewApp creates an App. A nil Formatter or Logger falls back to the plain
// formatter and slog.Default().
func NewApp(cfg AppConfig) *App {
	a := &App{
		config:   cfg.Config,
		connect:  cfg.Connect,
		embedder: cfg.Embedder,
		ask:      cfg.Asker,
		format:   cfg.Formatter,
		out:      cfg.Out,
		logger:   cfg.Logger,
		movies:   cfg.Movies,
	}
	if a.format == nil {
		a.format = NewPlainFormatter()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Run connects, loads the dataset and walks through the three lookups.
// The first error stops the sequence.
func (a *App) Run(ctx context.Context) error {
	conn := a.config.Connection

	fmt.Fprintln(a.out, "0️⃣  Connecting to the vector database over gRPC using the following values from your configuration...")
	if conn.Legacy() {
		fmt.Fprintf(a.out, "%s = %s\n%s = %s\n%s = %s\n",
			cyan("ASTRA_DB_ID"), conn.DatabaseID,
			cyan("ASTRA_DB_REGION"), conn.Region,
			cyan("ASTRA_DB_KEYSPACE"), conn.Keyspace)
	} else {
		fmt.Fprintf(a.out, "%s = %s\n", cyan("ASTRA_DB_API_ENDPOINT"), conn.APIEndpoint)
	}
	fmt.Fprintf(a.out, "%s = %s\n", cyan("gRPC endpoint"), conn.URI())
	fmt.Fprintf(a.out, "%s = %s\n\n", cyan("ASTRA_DB_APPLICATION_TOKEN"), redact(conn.ApplicationToken))

	coll, err := a.connect(ctx, conn)
	if err != nil {
		return err
	}
	defer coll.Close()

	fmt.Fprintln(a.out, "0️⃣  Loading the data into the vector database (~20s)...")
	if err := a.LoadData(ctx, coll); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "1️⃣  With the data loaded, I can find a movie based on your favorite genre.")
	if err := a.FindMovieByGenre(ctx, coll); err != nil {
		return err
	}

	if a.embedder == nil {
		fmt.Fprintf(a.out, "🚫 I can't generate embeddings without an OpenAI API key.\n   Please set the %s environment variable or review the code to see how you can use vector search.\n",
			bold("OPENAI_API_KEY"))
		return nil
	}

	fmt.Fprintln(a.out, "2️⃣  You can also simply describe what you are looking for, and I will find relevant movies. I will use vector search!")
	if err := a.FindMoviesByDescription(ctx, coll); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "3️⃣  Finally, let's combine the two...")
	if err := a.FindMoviesByGenreAndDescription(ctx, coll); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Be sure to check out the %s and %s files for code examples.\n\nHappy Coding!\n",
		cyan("app.go"), cyan("astradb.go"))
	return nil
}

// LoadData drops and recreates the movies collection, then inserts the
// dataset in batches of InsertBatchSize. Movies without a vector are
// embedded first when an embedder is configured.
func (a *App) LoadData(ctx context.Context, coll Collection) error {
	fmt.Fprintf(a.out, "Dropping existing collection %s if it exists...\n", cyan(coll.Name()))
	dropped, err := coll.Drop(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("Dropped collection", "result", dropped.String())

	fmt.Fprintf(a.out, "Creating collection %s and loading data from %s...\n", cyan(coll.Name()), cyan("movies.json"))
	if err := coll.Create(ctx); err != nil {
		return err
	}

	movies := a.movies
	if a.embedder != nil {
		if movies, err = a.fillVectors(ctx, movies); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Inserting %d movies including vector embeddings... \n\n", len(movies))
	for i := 0; i < len(movies); i += InsertBatchSize {
		end := min(i+InsertBatchSize, len(movies))
		if err := coll.Insert(ctx, movies[i:end]); err != nil {
			return fmt.Errorf("insert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// fillVectors embeds the descriptions of movies that ship without a vector.
func (a *App) fillVectors(ctx context.Context, movies []Movie) ([]Movie, error) {
	var texts []string
	var idx []int
	for i, m := range movies {
		if len(m.Vector) == 0 {
			texts = append(texts, m.Description)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return movies, nil
	}

	a.logger.Info("Generating embeddings for dataset", "movies", len(texts))
	vectors, err := a.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d movies", ErrEmbedding, len(vectors), len(texts))
	}

	filled := make([]Movie, len(movies))
	copy(filled, movies)
	for n, i := range idx {
		filled[i].Vector = vectors[n]
	}
	return filled, nil
}

// FindMovieByGenre is the exact-match lookup.
func (a *App) FindMovieByGenre(ctx context.Context, coll Collection) error {
	genre, err := a.ask.Select("What kind of movie would you like to watch?", Genres)
	if err != nil {
		return err
	}

	movie, err := GenreLookup(ctx, coll, genre)
	if err != nil {
		return err
	}
	if movie == nil {
		fmt.Fprintf(a.out, "Sorry, I couldn't find a %s movie for you.\n\n", genre)
		return nil
	}

	fmt.Fprintf(a.out, "Sure! Here is an option for you:\n%s\n\n", a.format.Movie(*movie))
	return nil
}

// FindMoviesByDescription is the vector search lookup.
func (a *App) FindMoviesByDescription(ctx context.Context, coll Collection) error {
	prompt, err := a.ask.Text("Just tell me what you want to watch...")
	if err != nil {
		return err
	}

	movies, err := SemanticLookup(ctx, coll, a.embedder, prompt)
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		fmt.Fprintf(a.out, "Sorry, I couldn't find any movie matching your request.\n\n")
		return nil
	}

	fmt.Fprintf(a.out, "Here are the most relevant movies based on your request:\n%s\n\n", a.format.Movies(movies))
	return nil
}

// FindMoviesByGenreAndDescription is the hybrid lookup.
func (a *App) FindMoviesByGenreAndDescription(ctx context.Context, coll Collection) error {
	genre, err := a.ask.Select("First, what genre are you interested in?", Genres)
	if err != nil {
		return err
	}
	prompt, err := a.ask.Text("And now describe to me what you are looking for...")
	if err != nil {
		return err
	}

	movies, err := HybridLookup(ctx, coll, a.embedder, genre, prompt)
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		fmt.Fprintf(a.out, "Sorry, I couldn't find a %s movie matching your request.\n\n", genre)
		return nil
	}

	fmt.Fprintf(a.out, "Here are two most relevant movies based on your request:\n%s\n\n", a.format.Movies(movies))
	return nil
}

// GenreLookup returns the first movie of genre, or nil.
func GenreLookup(ctx context.Context, coll Collection, genre string) (*Movie, error) {
	return coll.FindOne(ctx, Filter{Genre: genre})
}

// SemanticLookup returns up to SemanticLimit movies most similar to prompt.
// The prompt is embedded before any query is issued.
func SemanticLookup(ctx context.Context, coll Collection, embedder Embedder, prompt string) ([]Movie, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	vector, err := embedOne(ctx, embedder, prompt)
	if err != nil {
		return nil, err
	}
	return coll.Find(ctx, Query{Vector: vector, Limit: SemanticLimit})
}

// HybridLookup returns up to HybridLimit movies of genre most similar to
// prompt.
func HybridLookup(ctx context.Context, coll Collection, embedder Embedder, genre, prompt string) ([]Movie, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	vector, err := embedOne(ctx, embedder, prompt)
	if err != nil {
		return nil, err
	}
	return coll.Find(ctx, Query{Filter: Filter{Genre: genre}, Vector: vector, Limit: HybridLimit})
}
