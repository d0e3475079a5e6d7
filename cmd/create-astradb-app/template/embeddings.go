package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// EmbeddingModel produces VectorDimension-sized vectors.
	EmbeddingModel = openai.EmbeddingModelTextEmbeddingAda002

	// DefaultBatchSize bounds the number of texts per embeddings request.
	DefaultBatchSize = 100
)

var ErrEmbedding = errors.New("failed to generate embedding")

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint. Requests are not
// retried: any non-200 response fails the call.
type OpenAIEmbedder struct {
	client    openai.Client
	batchSize int
}

// NewOpenAIEmbedder creates an embedder authenticated with apiKey. Extra
// options (such as option.WithBaseURL) are applied last.
func NewOpenAIEmbedder(apiKey string, opts ...option.RequestOption) *OpenAIEmbedder {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(append(base, opts...)...),
		batchSize: DefaultBatchSize,
	}
}

// GenerateEmbeddings implements Embedder.
func (e *OpenAIEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embeddings...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	input := openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	if len(texts) == 1 {
		input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: input,
		Model: EmbeddingModel,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrEmbedding, http.StatusText(apiErr.StatusCode))
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbedding, len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbedding, data.Index)
		}
		if len(data.Embedding) != VectorDimension {
			return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
				ErrDimensionMismatch, len(data.Embedding), VectorDimension)
		}
		embeddings[data.Index] = toFloat32(data.Embedding)
	}
	return embeddings, nil
}

// embedOne embeds a single prompt.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for 1 input", ErrEmbedding, len(vectors))
	}
	return vectors[0], nil
}

// toFloat32 converts []float64 to []float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
