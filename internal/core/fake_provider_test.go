package core

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var errFakeEncode = errors.New("fake encode failure")

// marker maps a substring to the vector returned for texts containing it
type marker struct {
	substr string
	vector Embedding
}

// fakeProvider embeds texts by looking for the first matching marker.
// Texts containing "boom" fail.
type fakeProvider struct {
	name    string
	dim     int
	markers []marker

	mu    sync.Mutex
	calls [][]string
}

func newFakeProvider(markers ...marker) *fakeProvider {
	dim := 2
	if len(markers) > 0 {
		dim = len(markers[0].vector)
	}
	return &fakeProvider{name: "fake-model", dim: dim, markers: markers}
}

func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([]Embedding, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Embedding, 0, len(texts))
	for _, text := range texts {
		lower := strings.ToLower(text)
		if strings.Contains(lower, "boom") {
			return nil, errFakeEncode
		}
		vector := make(Embedding, p.dim)
		for _, m := range p.markers {
			if strings.Contains(lower, m.substr) {
				copy(vector, m.vector)
				break
			}
		}
		out = append(out, vector)
	}
	return out, nil
}

func (p *fakeProvider) Name() string   { return p.name }
func (p *fakeProvider) Dimension() int { return p.dim }
func (p *fakeProvider) Close() error   { return nil }

func (p *fakeProvider) Calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.calls...)
}

// financeTravel is a two-category fixture with orthogonal category vectors
func financeTravel() *fakeProvider {
	return newFakeProvider(
		marker{"negative", Embedding{-1, -1}},
		marker{"finance", Embedding{1, 0}},
		marker{"travel", Embedding{0, 1}},
	)
}

func financeTravelSet() *CategorySet {
	set, err := NewCategorySet([]CategoryDescription{
		{Name: "Finance", Description: "finance invoices"},
		{Name: "Travel", Description: "travel tickets"},
	})
	if err != nil {
		panic(err)
	}
	return set
}
