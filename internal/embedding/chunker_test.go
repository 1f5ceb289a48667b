package embedding

import (
	"strings"
	"testing"
)

func TestChunkTextRespectsHardUpperBound(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := ChunkText(text, 100)
	for _, c := range chunks {
		if len(c.Text) > 100 {
			t.Errorf("chunk %d exceeds max_chars: len=%d", c.Index, len(c.Text))
		}
	}
}

func TestChunkTextIndexesSequentially(t *testing.T) {
	text := strings.Repeat("A sentence here. ", 50)
	chunks := ChunkText(text, 80)
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("expected chunk index %d, got %d", i, c.Index)
		}
	}
}

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	chunks := ChunkText("short text", 2000)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short text, got %d", len(chunks))
	}
	if chunks[0].Text != "short text" {
		t.Errorf("expected chunk text preserved, got %q", chunks[0].Text)
	}
}

func TestChunkTextEmptyInputYieldsOneEmptyChunk(t *testing.T) {
	chunks := ChunkText("", 100)
	if len(chunks) != 1 || chunks[0].Text != "" {
		t.Fatalf("expected a single empty chunk, got %+v", chunks)
	}
}

func TestChunkTextOverlapCarriesTail(t *testing.T) {
	// Two paragraphs that together exceed maxChars should split into two
	// chunks, and the second chunk should start with a tail of the first
	// (the ~10% overlap).
	text := strings.Repeat("x", 80) + "\n\n" + strings.Repeat("y", 80)
	chunks := ChunkText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Text, strings.Repeat("x", 10)) {
		t.Errorf("expected second chunk to start with the first chunk's tail, got %q", chunks[1].Text)
	}
}

func TestHardSplitOnOversizedSentence(t *testing.T) {
	unit := strings.Repeat("z", 250)
	pieces := hardSplit(unit, 100)
	if len(pieces) != 3 {
		t.Fatalf("expected 3 hard-split pieces of 250/100, got %d", len(pieces))
	}
	for _, p := range pieces[:len(pieces)-1] {
		if len(p) != 100 {
			t.Errorf("expected full-size piece, got len=%d", len(p))
		}
	}
}
