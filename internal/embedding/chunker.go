package embedding

import "strings"

// Chunk is one indexed, bounded piece of chunked text.
type Chunk struct {
	Index int
	Text  string
}

// ChunkText splits text into chunks of at most maxChars, with roughly a 10%
// overlap between consecutive chunks so a fact split across a boundary is
// still captured whole in at least one chunk. Splits prefer paragraph, then
// sentence boundaries, falling back to a hard cut only when a single
// sentence itself exceeds maxChars.
func ChunkText(text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = 2000
	}
	overlap := maxChars / 10

	units := splitUnits(text)

	var chunks []Chunk
	var current strings.Builder
	for _, unit := range units {
		if current.Len()+len(unit) > maxChars && current.Len() > 0 {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.TrimSpace(current.String())})
			carry := tailOverlap(current.String(), overlap)
			if len(carry)+len(unit) > maxChars {
				carry = ""
			}
			current.Reset()
			current.WriteString(carry)
		}
		if len(unit) > maxChars {
			for _, piece := range hardSplit(unit, maxChars) {
				chunks = append(chunks, Chunk{Index: len(chunks), Text: piece})
			}
			current.Reset()
			continue
		}
		current.WriteString(unit)
		current.WriteString(" ")
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.TrimSpace(current.String())})
	}
	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{Index: 0, Text: ""})
	}
	return chunks
}

// splitUnits breaks text into paragraphs, then further into sentences
// within any paragraph whose length threatens a single chunk on its own.
func splitUnits(text string) []string {
	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		units = append(units, splitSentences(para)...)
	}
	return units
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}
	return sentences
}

func hardSplit(unit string, maxChars int) []string {
	var out []string
	for len(unit) > maxChars {
		out = append(out, unit[:maxChars])
		unit = unit[maxChars:]
	}
	if unit != "" {
		out = append(out, unit)
	}
	return out
}

func tailOverlap(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
