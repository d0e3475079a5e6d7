package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "acme/templates", want: Location{Owner: "acme", Repo: "templates"}},
		{in: "acme/templates/go/vector@v1.2.0", want: Location{Owner: "acme", Repo: "templates", Path: "go/vector", Ref: "v1.2.0"}},
		{in: "/acme/templates/", want: Location{Owner: "acme", Repo: "templates"}},
		{in: "acme", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLocation(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, "acme/templates/go@main", Location{Owner: "acme", Repo: "templates", Path: "go", Ref: "main"}.String())
}

// newTestFetcher points a Fetcher at an httptest server that serves a tiny
// repository: tpl/README.md and tpl/sub/main.go.
func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()

	file := func(name, content string) map[string]any {
		return map[string]any{
			"type":     "file",
			"name":     name,
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/templates/contents/tpl", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v1", r.URL.Query().Get("ref"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"type": "file", "name": "README.md"},
			{"type": "dir", "name": "sub"},
		})
	})
	mux.HandleFunc("/repos/acme/templates/contents/tpl/sub", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"type": "file", "name": "main.go"}})
	})
	mux.HandleFunc("/repos/acme/templates/contents/tpl/README.md", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(file("README.md", "# Hello"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	return NewFetcher(&Client{Client: gh}, Location{Owner: "acme", Repo: "templates", Path: "tpl", Ref: "v1"})
}

func TestFetcher_ListFiles(t *testing.T) {
	fetcher := newTestFetcher(t)

	files, err := fetcher.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "sub/main.go"}, files)
}

func TestFetcher_FetchFile(t *testing.T) {
	fetcher := newTestFetcher(t)

	fetched, err := fetcher.FetchFile(context.Background(), "README.md")
	require.NoError(t, err)
	assert.Equal(t, "README.md", fetched.Path)
	assert.Equal(t, "# Hello", string(fetched.Content))
}
