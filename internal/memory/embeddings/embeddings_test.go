package embeddings

import (
	"context"
	"math"
	"testing"
)

func TestHashProviderDimension(t *testing.T) {
	p := NewHashProvider(16)
	if p.Dimension() != 16 {
		t.Fatalf("expected dimension 16, got %d", p.Dimension())
	}
}

func TestHashProviderDefaultsDimension(t *testing.T) {
	p := NewHashProvider(0)
	if p.Dimension() != 64 {
		t.Fatalf("expected default dimension 64, got %d", p.Dimension())
	}
}

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(32)
	ctx := context.Background()
	a, err := p.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := p.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic embedding, diverged at index %d", i)
		}
	}
}

func TestHashProviderNormalized(t *testing.T) {
	p := NewHashProvider(32)
	vec, err := p.Embed(context.Background(), "some text to embed")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1) > 1e-6 {
		t.Fatalf("expected unit-normalized vector, got norm %f", norm)
	}
}

func TestHashProviderEmptyText(t *testing.T) {
	p := NewHashProvider(8)
	vec, err := p.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text, got %v", vec)
		}
	}
}
