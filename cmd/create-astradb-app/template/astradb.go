package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	// VectorDimension is the embedding size of the movies dataset.
	VectorDimension = 1536

	// vectorName is the named vector every movie is indexed under.
	vectorName = "vector"

	// defaultGRPCPort is used when the endpoint URI has no explicit port.
	defaultGRPCPort = 6334

	// cloudDomain hosts managed clusters named by legacy credentials.
	cloudDomain = "cloud.qdrant.io"

	// dataAPIDomain serves the document Data API, which speaks HTTP JSON
	// and cannot answer the gRPC client.
	dataAPIDomain = "astra.datastax.com"
)

var (
	ErrUnreachable       = errors.New("database unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrUnsupportedHost   = errors.New("endpoint is not a vector database gRPC endpoint")
)

// projection is the field set returned by every lookup. Vectors are never
// returned.
var projection = []string{"title", "genre", "year", "description"}

// DropResult tells whether Drop removed a collection.
type DropResult int

const (
	NotFound DropResult = iota
	Dropped
)

func (r DropResult) String() string {
	if r == Dropped {
		return "dropped"
	}
	return "did not exist"
}

// Filter is an equality filter. Empty fields match everything.
type Filter struct {
	Genre string
}

// Query combines an optional filter with an optional similarity sort.
// When Vector is set every result carries a Similarity score.
type Query struct {
	Filter Filter
	Vector []float32
	Limit  int
}

// Collection is the document collection the demo talks to.
type Collection interface {
	Drop(ctx context.Context) (DropResult, error)
	Create(ctx context.Context) error
	Insert(ctx context.Context, movies []Movie) error
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, filter Filter) (*Movie, error)
	Find(ctx context.Context, q Query) ([]Movie, error)
	// Name is the collection name in the database.
	Name() string
	Close() error
}

// QdrantCollection stores movies in a Qdrant collection: payload fields for
// filtering plus a cosine-indexed named vector.
type QdrantCollection struct {
	client  *qdrant.Client
	name    string
	created bool
}

// Dial connects to the database behind conn and performs one health check.
// Missing collections are created on first insert.
func Dial(ctx context.Context, conn Connection) (*QdrantCollection, error) {
	cfg, err := clientConfig(conn)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	c := &QdrantCollection{client: client, name: conn.CollectionName()}
	if err := c.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return c, nil
}

// clientConfig turns the connection URI into a gRPC client configuration.
func clientConfig(conn Connection) (*qdrant.Config, error) {
	u, err := url.Parse(conn.URI())
	if err != nil {
		return nil, fmt.Errorf("invalid database URI: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid database URI %q: missing host", conn.URI())
	}
	if host := u.Hostname(); host == dataAPIDomain || strings.HasSuffix(host, "."+dataAPIDomain) {
		return nil, fmt.Errorf("%w: %s is a Data API host, set ASTRA_DB_API_ENDPOINT to the gRPC endpoint of your cluster (https://<cluster-id>.<region>.%s:%d)",
			ErrUnsupportedHost, host, cloudDomain, defaultGRPCPort)
	}

	port := defaultGRPCPort
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid database port %q: %w", p, err)
		}
	}

	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: conn.ApplicationToken,
		UseTLS: u.Scheme == "https",
	}, nil
}

// Health performs a single health check.
func (c *QdrantCollection) Health(ctx context.Context) error {
	result, err := c.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

func (c *QdrantCollection) Name() string { return c.name }

// Close closes the client connection.
func (c *QdrantCollection) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Drop deletes the collection if it exists.
func (c *QdrantCollection) Drop(ctx context.Context) (DropResult, error) {
	exists, err := c.client.CollectionExists(ctx, c.name)
	if err != nil {
		return NotFound, fmt.Errorf("failed to check collection %s: %w", c.name, err)
	}
	c.created = false
	if !exists {
		return NotFound, nil
	}

	if err := c.client.DeleteCollection(ctx, c.name); err != nil {
		return NotFound, fmt.Errorf("failed to drop collection %s: %w", c.name, err)
	}
	return Dropped, nil
}

// Create declares the collection: a 1536-dimension cosine vector and a
// keyword index on genre. It waits until the collection is visible.
func (c *QdrantCollection) Create(ctx context.Context) error {
	err := c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.name, err)
	}

	_, err = c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: c.name,
		FieldName:      "genre",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create genre index: %w", err)
	}

	if err := c.waitUntilVisible(ctx); err != nil {
		return err
	}
	c.created = true
	return nil
}

// waitUntilVisible polls until the collection is listed. Initial interval
// 200ms, max interval 2s, max elapsed 30s.
func (c *QdrantCollection) waitUntilVisible(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 200 * time.Millisecond
	exponentialBackoff.MaxInterval = 2 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		exists, err := c.client.CollectionExists(ctx, c.name)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !exists {
			return fmt.Errorf("collection %s not ready", c.name)
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// ensureCollection creates the collection on first use.
func (c *QdrantCollection) ensureCollection(ctx context.Context) error {
	if c.created {
		return nil
	}
	exists, err := c.client.CollectionExists(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", c.name, err)
	}
	if exists {
		c.created = true
		return nil
	}
	return c.Create(ctx)
}

// Insert upserts movies in a single request. Callers batch.
func (c *QdrantCollection) Insert(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(movies))
	for i, m := range movies {
		vectors := map[string]*qdrant.Vector{}
		if len(m.Vector) > 0 {
			if len(m.Vector) != VectorDimension {
				return fmt.Errorf("%w: %q has %d dimensions, expected %d",
					ErrDimensionMismatch, m.Title, len(m.Vector), VectorDimension)
			}
			vectors[vectorName] = qdrant.NewVector(m.Vector...)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(m.ID()),
			Vectors: qdrant.NewVectorsMap(vectors),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":       m.Title,
				"year":        m.Year,
				"genre":       m.Genre,
				"description": m.Description,
			}),
		}
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to insert movies: %w", err)
	}
	return nil
}

func buildFilter(f Filter) *qdrant.Filter {
	if f.Genre == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("genre", f.Genre)},
	}
}

// FindOne returns the first movie matching filter.
func (c *QdrantCollection) FindOne(ctx context.Context, filter Filter) (*Movie, error) {
	movies, err := c.Find(ctx, Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, nil
	}
	return &movies[0], nil
}

// Find runs a filtered scroll, or a similarity query when q.Vector is set.
func (c *QdrantCollection) Find(ctx context.Context, q Query) ([]Movie, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	if len(q.Vector) == 0 {
		results, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: c.name,
			Filter:         buildFilter(q.Filter),
			Limit:          qdrant.PtrOf(uint32(q.Limit)),
			WithPayload:    qdrant.NewWithPayloadInclude(projection...),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to find movies: %w", err)
		}

		movies := make([]Movie, 0, len(results))
		for _, r := range results {
			movies = append(movies, movieFromPayload(r.Payload))
		}
		return movies, nil
	}

	if len(q.Vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(q.Vector), VectorDimension)
	}

	using := vectorName
	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(q.Vector...),
		Using:          &using,
		Filter:         buildFilter(q.Filter),
		Limit:          qdrant.PtrOf(uint64(q.Limit)),
		WithPayload:    qdrant.NewWithPayloadInclude(projection...),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}

	movies := make([]Movie, 0, len(results))
	for _, r := range results {
		m := movieFromPayload(r.Payload)
		similarity := float64(r.Score)
		m.Similarity = &similarity
		movies = append(movies, m)
	}
	return movies, nil
}

func movieFromPayload(payload map[string]*qdrant.Value) Movie {
	return Movie{
		Title:       payload["title"].GetStringValue(),
		Year:        int(payload["year"].GetIntegerValue()),
		Genre:       payload["genre"].GetStringValue(),
		Description: payload["description"].GetStringValue(),
	}
}

// ID derives a stable point ID so reloading the dataset overwrites.
func (m Movie) ID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(m.Title+"/"+strconv.Itoa(m.Year))).String()
}
