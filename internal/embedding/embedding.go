// Package embedding turns passage and query text into vectors for the
// passage store.
package embedding

import (
	"context"
	"fmt"

	"contract-qa/internal/common/genai"
)

// Embedder is fitted once per store build. The returned Model embeds both
// the corpus and later queries in the same vector space.
type Embedder interface {
	Name() string
	Fit(ctx context.Context, corpus []string) (Model, error)
}

type Model interface {
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Remote delegates to an embedding service. Fitting is a no-op; the
// service's vector space is fixed.
type Remote struct {
	name   string
	client genai.Embedder
}

func NewRemote(name string, client genai.Embedder) *Remote {
	return &Remote{name: name, client: client}
}

func (r *Remote) Name() string { return r.name }

func (r *Remote) Fit(ctx context.Context, corpus []string) (Model, error) {
	m := &remoteModel{client: r.client}
	if len(corpus) > 0 {
		probe, err := r.client.Embed(ctx, corpus[:1])
		if err != nil {
			return nil, err
		}
		m.dimension = len(probe[0])
	}
	return m, nil
}

type remoteModel struct {
	client    genai.Embedder
	dimension int
}

func (m *remoteModel) Dimension() int { return m.dimension }

func (m *remoteModel) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vecs, err := m.client.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, v := range vecs {
		if m.dimension > 0 && len(v) != m.dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", genai.ErrEmbeddingFailed, i, len(v), m.dimension)
		}
	}
	return vecs, nil
}
