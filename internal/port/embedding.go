package port

import "context"

// Embedder abstracts the embedding backend.
type Embedder interface {
	// Embed generates a fixed-length vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedWithKeywords extracts keywords from the text and embeds the joined
	// keyword string instead of the full text when extraction yields anything.
	// Extraction failure degrades silently to embedding the full text; the
	// returned keywords are empty in that case.
	EmbedWithKeywords(ctx context.Context, text string) ([]float32, []string, error)
}

// KeywordExtractor derives a small set of representative lowercase phrases
// from text. On any failure implementations return an empty slice and a nil
// error so callers fall back to the full text.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string, max int) ([]string, error)
}
