package llm

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder(32)

	a, err := m.EmbedText(context.Background(), "pnpm lockfile out of date")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	b, err := m.EmbedText(context.Background(), "pnpm lockfile out of date")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}

	if len(a) != 32 {
		t.Fatalf("expected 32 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("identical inputs must produce identical vectors")
		}
	}

	c, err := m.EmbedText(context.Background(), "a completely different text")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different inputs should produce different vectors")
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	m := NewMockEmbedder(64)

	vec, err := m.EmbedText(context.Background(), "some text")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 0.001 {
		t.Errorf("expected unit vector, got norm %f", math.Sqrt(norm))
	}
}
