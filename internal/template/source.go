// Package template provides the project template sources the initializer
// copies from: the tree embedded in the binary or a directory on GitHub.
package template

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/mike-a-ellis/create-astradb-app/internal/github"
)

// File is one template file, addressed by its slash-separated path relative
// to the template root.
type File struct {
	Path string
	Data []byte
	Mode fs.FileMode
}

// Source yields every file of a template.
type Source interface {
	Files(ctx context.Context) ([]File, error)
	String() string
}

// FS is a Source backed by an fs.FS, such as an embed.FS sub-tree.
type FS struct {
	FS   fs.FS
	Name string
}

// Files walks the tree and returns regular files in lexical order.
func (s FS) Files(ctx context.Context) ([]File, error) {
	var files []File
	err := fs.WalkDir(s.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(s.FS, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: p, Data: data, Mode: info.Mode().Perm()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk template %s: %w", s, err)
	}
	return files, nil
}

func (s FS) String() string {
	if s.Name != "" {
		return s.Name
	}
	return "embedded"
}

// GitHub is a Source that downloads a repository directory.
type GitHub struct {
	fetcher *github.Fetcher
	loc     github.Location
}

// NewGitHub creates a GitHub source for loc.
func NewGitHub(client *github.Client, loc github.Location) *GitHub {
	return &GitHub{fetcher: github.NewFetcher(client, loc), loc: loc}
}

// Files downloads every file below the location.
func (s *GitHub) Files(ctx context.Context) ([]File, error) {
	paths, err := s.fetcher.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list template %s: %w", s.loc, err)
	}
	sort.Strings(paths)

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		fetched, err := s.fetcher.FetchFile(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("fetch template %s: %w", s.loc, err)
		}
		files = append(files, File{Path: fetched.Path, Data: fetched.Content, Mode: 0o644})
	}
	return files, nil
}

func (s *GitHub) String() string {
	return "github.com/" + s.loc.String()
}
