package embedding

import "context"

// Detect returns the first available provider from candidates, falling
// back to a LocalVectorProvider (always available) if none respond. This
// is the "auto-detect among candidates" step of spec.md §4.4's startup
// sequence.
func Detect(ctx context.Context, candidates ...Provider) Provider {
	for _, c := range candidates {
		if c != nil && c.IsAvailable(ctx) {
			return c
		}
	}
	return NewLocalVectorProvider()
}
