package scaffold

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Installer resolves the generated project's dependencies.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// GoModTidy runs `go mod tidy` in the project directory with the standard
// streams attached, blocking until it exits.
type GoModTidy struct {
	GoBinary string // defaults to "go" on PATH
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
}

// NewGoModTidy returns an installer wired to the process stdio.
func NewGoModTidy() *GoModTidy {
	return &GoModTidy{GoBinary: "go", Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Install implements Installer. A non-zero exit is returned as the
// *exec.ExitError from the command.
func (g *GoModTidy) Install(ctx context.Context, dir string) error {
	bin := g.GoBinary
	if bin == "" {
		bin = "go"
	}

	cmd := exec.CommandContext(ctx, bin, "mod", "tidy")
	cmd.Dir = dir
	cmd.Stdin = g.Stdin
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s mod tidy: %w", bin, err)
	}
	return nil
}
