package github

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Location names a directory inside a GitHub repository, optionally pinned
// to a branch, tag or commit.
type Location struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// ParseLocation parses "owner/repo[/path][@ref]".
func ParseLocation(s string) (Location, error) {
	var loc Location
	raw := strings.TrimSpace(s)
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		loc.Ref = raw[at+1:]
		raw = raw[:at]
	}

	parts := strings.SplitN(strings.Trim(raw, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("invalid template location %q: want owner/repo[/path][@ref]", s)
	}
	loc.Owner, loc.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		loc.Path = parts[2]
	}
	return loc, nil
}

func (l Location) String() string {
	s := path.Join(l.Owner, l.Repo, l.Path)
	if l.Ref != "" {
		s += "@" + l.Ref
	}
	return s
}

// FetchedFile is a file downloaded from the repository.
type FetchedFile struct {
	Path    string // Relative to Location.Path
	Content []byte
}

// Fetcher downloads a directory tree from a GitHub repository
type Fetcher struct {
	client *Client
	loc    Location
}

// NewFetcher creates a new fetcher for loc
func NewFetcher(client *Client, loc Location) *Fetcher {
	return &Fetcher{client: client, loc: loc}
}

func (f *Fetcher) options() *github.RepositoryContentGetOptions {
	if f.loc.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.loc.Ref}
}

// ListFiles recursively lists every file below the location.
func (f *Fetcher) ListFiles(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.loc.Path, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var files []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.loc.Owner, f.loc.Repo, fullPath, f.options())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			files = append(files, itemRelPath)
		case "dir":
			subFiles, err := f.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			files = append(files, subFiles...)
		}
	}

	return files, nil
}

// FetchFile downloads a single file relative to the location.
func (f *Fetcher) FetchFile(ctx context.Context, relativePath string) (*FetchedFile, error) {
	fullPath := path.Join(f.loc.Path, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.loc.Owner, f.loc.Repo, fullPath, f.options())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	// GetContent decodes the base64 payload.
	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedFile{Path: relativePath, Content: []byte(content)}, nil
}
