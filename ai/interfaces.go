package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// ranking. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in input order.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LocalityExtractor pulls a locality-like phrase out of a full
// natural-language sentence ("¿hay farmacias en la florida?" -> "la florida").
// Implementations must be thread-safe for concurrent use.
//
// Extraction is the slowest and least reliable stage of resolution: callers
// are expected to bound it with a context deadline and to treat every failure
// as "no candidate". An empty string with a nil error is a valid outcome for
// sentences that mention no location.
type LocalityExtractor interface {
	ExtractLocality(ctx context.Context, sentence string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// LocalityExtractor instances, ensuring they share configuration.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// LocalityExtractor returns the locality extraction service.
	// The returned LocalityExtractor is safe for concurrent use.
	LocalityExtractor() LocalityExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
