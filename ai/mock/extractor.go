package mock

import (
	"context"
	"strings"
)

// MockLocalityExtractor is a test double for ai.LocalityExtractor.
// It allows custom behavior injection via function fields.
type MockLocalityExtractor struct {
	// ExtractLocalityFunc is called by ExtractLocality if set.
	// If nil, uses default heuristic behavior.
	ExtractLocalityFunc func(ctx context.Context, sentence string) (string, error)

	callCount int
}

// NewMockLocalityExtractor creates a mock locality extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockLocalityExtractor() *MockLocalityExtractor {
	return &MockLocalityExtractor{}
}

// ExtractLocality extracts a mock locality from a sentence.
// Default behavior: returns whatever follows the last " en " in the sentence,
// mimicking the common phrasing "farmacias en <comuna>". Sentences without the
// preposition yield an empty string.
func (m *MockLocalityExtractor) ExtractLocality(ctx context.Context, sentence string) (string, error) {
	m.callCount++

	if m.ExtractLocalityFunc != nil {
		return m.ExtractLocalityFunc(ctx, sentence)
	}

	lower := strings.ToLower(sentence)
	idx := strings.LastIndex(lower, " en ")
	if idx < 0 {
		return "", nil
	}

	tail := sentence[idx+len(" en "):]
	tail = strings.Trim(tail, " .,!?¿¡")
	return tail, nil
}

// CallCount returns the number of times ExtractLocality was called.
func (m *MockLocalityExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockLocalityExtractor) Reset() {
	m.callCount = 0
	m.ExtractLocalityFunc = nil
}
