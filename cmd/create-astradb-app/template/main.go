// Command astradb-vector-app loads a movie dataset into a vector database and
// finds movies by genre, by description and by both.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	httpAddr string
)

var rootCmd = &cobra.Command{
	Use:   "astradb-vector-app",
	Short: "Find movies with vector search",
	Long: `Loads movies.json into a Qdrant vector database over gRPC and walks
through three lookups: by genre, by description (vector search) and by both.

Environment variables (read from .env):
  ASTRA_DB_API_ENDPOINT       gRPC endpoint of the vector database, e.g.
                              https://<cluster-id>.<region>.cloud.qdrant.io:6334
                              or http://localhost:6334
  ASTRA_DB_APPLICATION_TOKEN  API key sent with every request
  ASTRA_DB_ID, ASTRA_DB_REGION, ASTRA_DB_KEYSPACE
                              Legacy alternative to ASTRA_DB_API_ENDPOINT: cluster
                              id and region (https://<id>.<region>.cloud.qdrant.io:6334)
                              plus a prefix for the collection name
  OPENAI_API_KEY              Enables vector search (optional)`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runDemo,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the movie lookups as MCP tools over stdio",
	Long: `Connects to the already loaded movies collection and serves
find_by_genre, find_by_description and find_by_genre_and_description
over stdin/stdout. Run the demo once first to load the data.

With --http the tools are served over Streamable HTTP at /mcp instead,
with a health check at /health.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	mcpCmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP on this address (e.g. :8080) instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	// Load .env file if present, ignore if missing
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.Bold, color.FgRed).Sprint("[ERROR] ")+err.Error())
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newEmbedder(cfg *Config) Embedder {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	return NewOpenAIEmbedder(cfg.OpenAIAPIKey)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(os.Getenv)
	if err != nil {
		return err
	}

	movies, err := LoadMovies()
	if err != nil {
		return err
	}

	app := NewApp(AppConfig{
		Config:    cfg,
		Connect:   DialQdrant,
		Embedder:  newEmbedder(cfg),
		Asker:     newLineAsker(os.Stdin, os.Stdout),
		Formatter: NewStyledFormatter(),
		Out:       os.Stdout,
		Logger:    newLogger(),
		Movies:    movies,
	})
	return app.Run(cmd.Context())
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(os.Getenv)
	if err != nil {
		return err
	}
	logger := newLogger()

	coll, err := Dial(cmd.Context(), cfg.Connection)
	if err != nil {
		return err
	}
	defer coll.Close()

	embedder := newEmbedder(cfg)
	if embedder == nil {
		logger.Warn("OPENAI_API_KEY not set, only find_by_genre is available")
	}

	server := NewMCPServer(coll, embedder)
	if httpAddr == "" {
		logger.Info("Starting movie lookup MCP server (stdio mode)")
		return server.Run(cmd.Context(), &mcp.StdioTransport{})
	}

	httpServer := &http.Server{Addr: httpAddr, Handler: NewHTTPMux(server, coll)}
	go func() {
		<-cmd.Context().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting movie lookup MCP server", "addr", httpAddr, "mcp", "/mcp", "health", "/health")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}
