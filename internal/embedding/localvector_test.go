package embedding

import (
	"context"
	"testing"
)

func TestLocalVectorProviderDeterministic(t *testing.T) {
	p := NewLocalVectorProvider()
	v1, err := p.Generate(context.Background(), "deploy the service to production")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	v2, err := p.Generate(context.Background(), "deploy the service to production")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(v1) != p.Dimensions() {
		t.Fatalf("expected vector length %d, got %d", p.Dimensions(), len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected deterministic output, differed at index %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestLocalVectorProviderDistinguishesDifferentText(t *testing.T) {
	p := NewLocalVectorProvider()
	v1, _ := p.Generate(context.Background(), "postgres database migration")
	v2, _ := p.Generate(context.Background(), "react frontend component")
	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected distinct vectors for unrelated text")
	}
}

func TestLocalVectorProviderAlwaysAvailable(t *testing.T) {
	p := NewLocalVectorProvider()
	if !p.IsAvailable(context.Background()) {
		t.Fatalf("expected local-hash provider to always be available")
	}
}
