// Command create-astradb-app scaffolds a Go project that loads a movie
// dataset into a vector database and queries it by genre, by description
// and by both.
package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/create-astradb-app/internal/config"
	ghclient "github.com/mike-a-ellis/create-astradb-app/internal/github"
	"github.com/mike-a-ellis/create-astradb-app/internal/prompt"
	"github.com/mike-a-ellis/create-astradb-app/internal/scaffold"
	"github.com/mike-a-ellis/create-astradb-app/internal/template"
)

//go:embed all:template
var embedded embed.FS

// EnvTemplate selects a GitHub template instead of the embedded one,
// formatted owner/repo[/path][@ref].
const EnvTemplate = "CREATE_ASTRADB_APP_TEMPLATE"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "create-astradb-app",
	Short: "Create a Go vector search app backed by a Qdrant vector database",
	Long: `Creates ./astradb-vector-app from the bundled template, asks for the
database credentials and an optional OpenAI API key, writes them to .env
and runs go mod tidy.

Environment variables (also read from .env):
  ASTRA_DB_API_ENDPOINT        gRPC endpoint of the vector database, e.g.
                               https://<cluster-id>.<region>.cloud.qdrant.io:6334
  ASTRA_DB_APPLICATION_TOKEN   API key of the vector database
  ASTRA_DB_ID, ASTRA_DB_REGION, ASTRA_DB_KEYSPACE
                               Legacy alternative to ASTRA_DB_API_ENDPOINT: cluster
                               id, region and collection name prefix
  ASTRA_DB_CONFIG_FILE         Downloaded configuration file
  OPENAI_API_KEY               Enables vector search
  CREATE_ASTRADB_APP_TEMPLATE  owner/repo[/path][@ref] template on GitHub
  GITHUB_TOKEN                 GitHub token for higher rate limits (optional)`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runCreate,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
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

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	source, err := templateSource(ctx, logger)
	if err != nil {
		return err
	}

	initializer := scaffold.New(scaffold.Config{
		Source:    source,
		Prompter:  prompt.NewTerminal(),
		Installer: scaffold.NewGoModTidy(),
		Lookup:    config.OSLookup,
		Out:       os.Stdout,
		Logger:    logger,
	})

	result, err := initializer.Run(ctx, scaffold.Options{
		ConfigFile: config.OSLookup.Get(config.EnvConfigFile),
	})
	if err != nil {
		return err
	}
	logger.Debug("Project initialized",
		"dir", result.Dir,
		"already_exists", result.AlreadyExists,
		"files", result.Files,
		"vector_search", result.VectorSearch)
	return nil
}

// templateSource returns the GitHub template named by EnvTemplate, or the
// embedded one.
func templateSource(ctx context.Context, logger *slog.Logger) (template.Source, error) {
	if raw := config.OSLookup.Get(EnvTemplate); raw != "" {
		loc, err := ghclient.ParseLocation(raw)
		if err != nil {
			return nil, err
		}
		client, err := ghclient.NewClient(ctx, config.OSLookup.Get("GITHUB_TOKEN"))
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		logger.Info("Using GitHub template", "location", loc.String())
		return template.NewGitHub(client, loc), nil
	}

	sub, err := fs.Sub(embedded, "template")
	if err != nil {
		return nil, err
	}
	return template.FS{FS: sub, Name: "embedded template"}, nil
}
