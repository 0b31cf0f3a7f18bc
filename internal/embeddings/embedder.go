package embeddings

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrVectorMismatch is returned when an embedder's output does not line up
// with its input: a different count, or a vector of the wrong size.
var ErrVectorMismatch = errors.New("embedding output mismatch")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// Check verifies that vectors correspond one-to-one with n inputs and that
// every vector has dim entries.
func Check(vectors [][]float32, n, dim int) error {
	if len(vectors) != n {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrVectorMismatch, len(vectors), n)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrVectorMismatch, i, len(v), dim)
		}
	}
	return nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if err := Check(vecs, 1, e.Dimensions()); err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Close releases e if it holds resources.
func Close(e Embedder) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
