package main

import (
	"context"
	"math"
	"sort"
)

// memoryCollection is an in-memory Collection for tests. It records the
// calls it receives.
type memoryCollection struct {
	name    string
	exists  bool
	movies  []Movie
	inserts []int // batch sizes
	finds   int
	drops   int
	creates int
	closed  bool
	err     error
}

func (c *memoryCollection) Drop(ctx context.Context) (DropResult, error) {
	c.drops++
	if c.err != nil {
		return NotFound, c.err
	}
	if !c.exists {
		return NotFound, nil
	}
	c.exists = false
	c.movies = nil
	return Dropped, nil
}

func (c *memoryCollection) Create(ctx context.Context) error {
	c.creates++
	c.exists = true
	return c.err
}

func (c *memoryCollection) Insert(ctx context.Context, movies []Movie) error {
	if c.err != nil {
		return c.err
	}
	c.exists = true
	c.inserts = append(c.inserts, len(movies))
	c.movies = append(c.movies, movies...)
	return nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter) (*Movie, error) {
	movies, err := c.Find(ctx, Query{Filter: filter, Limit: 1})
	if err != nil || len(movies) == 0 {
		return nil, err
	}
	return &movies[0], nil
}

func (c *memoryCollection) Find(ctx context.Context, q Query) ([]Movie, error) {
	c.finds++
	if c.err != nil {
		return nil, c.err
	}

	var out []Movie
	for _, m := range c.movies {
		if q.Filter.Genre != "" && m.Genre != q.Filter.Genre {
			continue
		}
		if len(q.Vector) > 0 {
			if len(m.Vector) == 0 {
				continue
			}
			sim := cosineSimilarity(q.Vector, m.Vector)
			m.Similarity = &sim
		}
		m.Vector = nil
		out = append(out, m)
	}

	if len(q.Vector) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].Similarity > *out[j].Similarity
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (c *memoryCollection) Name() string {
	if c.name == "" {
		return "movies"
	}
	return c.name
}

func (c *memoryCollection) Close() error {
	c.closed = true
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// mixVector returns a VectorDimension vector with weight w on axis 0 and
// 1-w on axis 1.
func mixVector(w float32) []float32 {
	v := make([]float32, VectorDimension)
	v[0] = w
	v[1] = 1 - w
	return v
}

// axisVector returns the unit vector along axis 0.
func axisVector() []float32 {
	return mixVector(1)
}
