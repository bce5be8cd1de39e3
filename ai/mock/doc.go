// Package mock provides test doubles for the ai package interfaces.
//
// The mocks are deterministic by default and support behavior injection via
// public function fields, so unit tests never need a live AI service.
//
// # Usage
//
//	mockProvider := mock.NewMockProvider()
//
//	// Inject custom behavior
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockLocalityExtractor: Returns the text following the last " en " in the sentence
//   - MockProvider: Aggregates mock embedder and extractor
package mock
