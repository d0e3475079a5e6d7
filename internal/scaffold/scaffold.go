// Package scaffold implements the project initializer: it creates the
// project directory, copies the template, collects credentials, writes .env
// and installs dependencies.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/mike-a-ellis/create-astradb-app/internal/config"
	"github.com/mike-a-ellis/create-astradb-app/internal/markdown"
	"github.com/mike-a-ellis/create-astradb-app/internal/prompt"
	"github.com/mike-a-ellis/create-astradb-app/internal/template"
)

// DefaultDir is the project directory created when Options.Dir is empty.
const DefaultDir = "astradb-vector-app"

// EnvFileName is written at the project root.
const EnvFileName = ".env"

// templateSuffix is stripped from copied file names. It lets the template
// carry a go.mod without becoming a nested module of this repository.
const templateSuffix = ".tmpl"

const (
	choiceEndpoint   = "Enter the gRPC endpoint and API key of your vector database"
	choiceConfigFile = "Use a downloaded cluster configuration file"
)

const (
	// cloudDomain hosts managed clusters; legacy credentials expand to
	// https://<databaseId>.<region>.cloudDomain:6334 in the generated app.
	cloudDomain = "cloud.qdrant.io"

	// dataAPIDomain serves HTTP JSON only and cannot answer the gRPC client.
	dataAPIDomain = "astra.datastax.com"

	endpointQuestion = "What is the gRPC endpoint of your vector database (https://<cluster-id>.<region>." + cloudDomain + ":6334)?"
	tokenQuestion    = "What is your vector database API key (application token)?"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	boldRed = color.New(color.Bold, color.FgRed).SprintFunc()
	boldMag = color.New(color.Bold, color.FgMagenta).SprintFunc()
)

// Options describes a single initialization run.
type Options struct {
	Dir        string // Project directory name, relative to WorkDir
	WorkDir    string // Defaults to the process working directory
	ConfigFile string // Downloaded configuration file; skips the prompts
}

// Result summarizes what Run did.
type Result struct {
	Dir           string
	AlreadyExists bool
	Files         int
	Variant       config.Variant
	VectorSearch  bool
}

// Config holds the initializer dependencies.
type Config struct {
	Source    template.Source
	Prompter  prompt.Prompter
	Installer Installer
	Lookup    config.LookupFunc
	Out       io.Writer
	Logger    *slog.Logger
}

// Initializer runs the project initialization workflow.
type Initializer struct {
	source    template.Source
	prompter  prompt.Prompter
	installer Installer
	lookup    config.LookupFunc
	out       io.Writer
	logger    *slog.Logger
	steps     *markdown.StepReader
}

// New creates an Initializer. Nil Lookup, Out and Logger default to the
// process environment, stdout and slog.Default().
func New(cfg Config) *Initializer {
	i := &Initializer{
		source:    cfg.Source,
		prompter:  cfg.Prompter,
		installer: cfg.Installer,
		lookup:    cfg.Lookup,
		out:       cfg.Out,
		logger:    cfg.Logger,
		steps:     markdown.NewStepReader(),
	}
	if i.lookup == nil {
		i.lookup = config.OSLookup
	}
	if i.out == nil {
		i.out = os.Stdout
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// Run executes the workflow. An existing target directory is not an error:
// guidance is printed and Result.AlreadyExists is set.
func (i *Initializer) Run(ctx context.Context, opts Options) (result *Result, err error) {
	dir, name, err := resolveDir(opts)
	if err != nil {
		return nil, err
	}

	// 1. Refuse to touch an existing directory
	if _, statErr := os.Stat(dir); statErr == nil {
		fmt.Fprintln(i.out, "The project already exists. Delete it and re-run the command if you want to create a new one from scratch.")
		fmt.Fprintln(i.out, "  "+bold("rm -rf "+name))
		return &Result{Dir: dir, AlreadyExists: true}, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("check project directory: %w", statErr)
	}

	// 2. Create the directory and copy the template
	files, err := i.source.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateCopy, err)
	}

	// Until .env is written the directory is removed on failure so a retry
	// does not hit the "already exists" path.
	committed := false
	defer func() {
		if !committed {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				i.logger.Warn("Failed to remove incomplete project", "dir", dir, "error", rmErr)
			}
		}
	}()

	if err := copyTemplate(dir, files); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateCopy, err)
	}
	i.logger.Debug("Copied template", "source", i.source.String(), "files", len(files), "dir", dir)

	// 3. Credentials
	conn, err := i.resolveConnection(opts)
	if err != nil {
		return nil, err
	}

	// 4. Optional vector search
	openAIKey, err := i.resolveOpenAIKey()
	if err != nil {
		return nil, err
	}

	// 5. Environment file
	envPath := filepath.Join(dir, EnvFileName)
	if err := os.WriteFile(envPath, []byte(config.RenderEnv(conn, openAIKey)), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", envPath, err)
	}
	committed = true

	result = &Result{
		Dir:          dir,
		Files:        len(files),
		Variant:      conn.Variant,
		VectorSearch: openAIKey != "",
	}

	// 6. Install dependencies
	if i.installer != nil {
		if err := i.installer.Install(ctx, dir); err != nil {
			return result, fmt.Errorf("%w: %w", ErrInstall, err)
		}
	}

	// 7. Summary
	i.printSummary(name, files)
	return result, nil
}

func resolveDir(opts Options) (dir, name string, err error) {
	name = opts.Dir
	if name == "" {
		name = DefaultDir
	}
	work := opts.WorkDir
	if work == "" {
		if work, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("get working directory: %w", err)
		}
	}
	return filepath.Join(work, name), name, nil
}

// copyTemplate writes every file below dir, preserving relative paths.
func copyTemplate(dir string, files []template.File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, f := range files {
		rel := strings.TrimSuffix(f.Path, templateSuffix)
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return fmt.Errorf("template file %q escapes the project directory", f.Path)
		}

		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		// embed.FS reports 0444; copies must stay editable.
		if err := os.WriteFile(target, f.Data, f.Mode.Perm()|0o644); err != nil {
			return err
		}
	}
	return nil
}

// resolveConnection merges environment, config file and prompts, in that
// order of priority.
func (i *Initializer) resolveConnection(opts Options) (config.Connection, error) {
	if conn, ok := config.FromEnv(i.lookup); ok {
		i.logger.Debug("Using credentials from environment", "variant", conn.Variant)
		return conn, nil
	}

	if opts.ConfigFile != "" {
		return config.LoadFile(opts.ConfigFile)
	}

	if i.lookup.Get(config.EnvAPIEndpoint) != "" || i.lookup.Get(config.EnvApplicationToken) != "" {
		return i.promptEndpoint()
	}

	choice, err := i.prompter.Select("How would you like to connect to your database?", []string{choiceEndpoint, choiceConfigFile})
	if err != nil {
		return config.Connection{}, err
	}
	if choice == choiceConfigFile {
		return i.promptConfigFile()
	}
	return i.promptEndpoint()
}

func (i *Initializer) promptConfigFile() (config.Connection, error) {
	path, err := i.prompter.Text(
		"Where is your downloaded cluster configuration file (databaseId, region, keyspace, token) located?",
		config.DefaultConfigFilePath(),
		func(v string) error {
			if _, err := os.Stat(v); err != nil {
				return errors.New("Configuration file doesn't exist. Please provide the correct path.")
			}
			return nil
		},
	)
	if err != nil {
		return config.Connection{}, err
	}
	return config.LoadFile(path)
}

// promptEndpoint asks for each Current field missing from the environment.
func (i *Initializer) promptEndpoint() (config.Connection, error) {
	conn := config.Connection{
		Variant:          config.Current,
		APIEndpoint:      i.lookup.Get(config.EnvAPIEndpoint),
		ApplicationToken: i.lookup.Get(config.EnvApplicationToken),
	}

	if conn.APIEndpoint == "" {
		endpoint, err := i.prompter.Text(endpointQuestion, "", validateEndpoint)
		if err != nil {
			return config.Connection{}, err
		}
		conn.APIEndpoint = endpoint
	}

	if conn.ApplicationToken == "" {
		token, err := i.prompter.Password(tokenQuestion)
		if err != nil {
			return config.Connection{}, err
		}
		conn.ApplicationToken = token
	}

	if err := conn.Validate("prompt"); err != nil {
		return config.Connection{}, err
	}
	return conn, nil
}

func validateEndpoint(v string) error {
	if v == "" {
		return nil // reported as a missing field
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Hostname() == "" {
		return errors.New("The endpoint must be a gRPC URL such as https://<cluster-id>.<region>." + cloudDomain + ":6334 or http://localhost:6334")
	}
	if host := u.Hostname(); host == dataAPIDomain || strings.HasSuffix(host, "."+dataAPIDomain) {
		return errors.New("Data API endpoints are not supported. Enter the gRPC endpoint of your vector database, such as https://<cluster-id>.<region>." + cloudDomain + ":6334")
	}
	return nil
}

func (i *Initializer) resolveOpenAIKey() (string, error) {
	enabled, err := i.prompter.Toggle("Do you want to enable vector search functionality (you will need a funded OpenAI account)?", true)
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", nil
	}

	if key := i.lookup.Get(config.EnvOpenAIKey); key != "" {
		i.logger.Debug("Using OpenAI API key from environment")
		return key, nil
	}

	key, err := i.prompter.Password("Awesome! What is your OpenAI API key?")
	if err != nil {
		return "", err
	}
	if key == "" {
		i.logger.Warn("No OpenAI API key entered, vector search disabled")
	}
	return key, nil
}

func (i *Initializer) printSummary(name string, files []template.File) {
	steps := i.nextSteps(name, files)

	fmt.Fprintln(i.out)
	fmt.Fprintln(i.out, "-----")
	fmt.Fprintln(i.out)
	fmt.Fprintf(i.out, "🎉 Congrats! You have successfully created a new %s application with %s!\n", boldRed("vector search"), boldMag("Go"))
	fmt.Fprintln(i.out, "👉 Next steps:")
	for n, step := range steps {
		fmt.Fprintf(i.out, "   %d. %s.\n", n+1, strings.TrimSuffix(step.Description, "."))
		if step.Command != "" {
			fmt.Fprintf(i.out, "      %s\n", bold(step.Command))
		}
	}
	fmt.Fprintln(i.out)
}

// nextSteps reads the template README; the cd command is rewritten to the
// directory actually created.
func (i *Initializer) nextSteps(name string, files []template.File) []markdown.Step {
	var steps []markdown.Step
	for _, f := range files {
		if path.Base(f.Path) == "README.md" && path.Dir(f.Path) == "." {
			parsed, err := i.steps.Steps(f.Data, markdown.NextStepsHeading)
			if err != nil {
				i.logger.Warn("Failed to read next steps from README", "error", err)
			}
			steps = parsed
			break
		}
	}

	if len(steps) == 0 {
		steps = []markdown.Step{
			{Description: "Go to the newly created project folder", Command: "cd " + name},
			{Description: "Run the sample code", Command: "go run ."},
		}
	}

	for n := range steps {
		if strings.HasPrefix(steps[n].Command, "cd ") {
			steps[n].Command = "cd " + name
		}
	}
	return steps
}
