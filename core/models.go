package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated by content-based hashing so that the same source record
// always maps to the same identifier across dataset refreshes.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Locality is a canonical administrative region (comuna) that user queries
// resolve against. Localities are loaded once at startup and shared read-only
// by every matching stage; no component mutates them after load.
type Locality struct {
	// Key is the normalized form of the display name, unique per registry.
	Key string `json:"key"`

	// DisplayName is the authoritative spelling, accents included.
	DisplayName string `json:"display_name"`

	// Region names the administrative region the locality belongs to.
	Region string `json:"region"`

	// Aliases are alternative spellings users commonly type, in display
	// form (the registry normalizes them at load time).
	Aliases []string `json:"aliases,omitempty"`
}

// MatchMethod identifies which resolution stage produced a match.
type MatchMethod int

const (
	// MethodNone means no stage produced a match.
	MethodNone MatchMethod = iota
	// MethodExact is a registry hit on the normalized query.
	MethodExact
	// MethodSemantic is an embedding cosine-similarity match.
	MethodSemantic
	// MethodFuzzy is an edit-distance match.
	MethodFuzzy
	// MethodExtractedExact is a registry hit on an LLM-extracted phrase.
	MethodExtractedExact
	// MethodExtractedSemantic is a semantic match on an LLM-extracted phrase.
	MethodExtractedSemantic
	// MethodExtractedFuzzy is a fuzzy match on an LLM-extracted phrase.
	MethodExtractedFuzzy
)

var matchMethodNames = map[MatchMethod]string{
	MethodNone:              "none",
	MethodExact:             "exact",
	MethodSemantic:          "semantic",
	MethodFuzzy:             "fuzzy",
	MethodExtractedExact:    "extracted_exact",
	MethodExtractedSemantic: "extracted_semantic",
	MethodExtractedFuzzy:    "extracted_fuzzy",
}

func (m MatchMethod) String() string {
	if name, ok := matchMethodNames[m]; ok {
		return name
	}
	return "unknown"
}

// Extracted reports whether the match was reached only after LLM phrase
// extraction, which carries a lower confidence tier.
func (m MatchMethod) Extracted() bool {
	return m == MethodExtractedExact || m == MethodExtractedSemantic || m == MethodExtractedFuzzy
}

// MatchResult is the outcome of resolving one raw query. It is constructed
// once per resolution and never mutated afterwards. An unresolvable query is
// a valid result with MethodNone and a nil Locality, not an error.
type MatchResult struct {
	Locality   *Locality   `json:"locality,omitempty"`
	Confidence float64     `json:"confidence"`
	Method     MatchMethod `json:"method"`
	RawQuery   string      `json:"raw_query"`
}

// Matched reports whether the resolution found a locality.
func (r *MatchResult) Matched() bool {
	return r != nil && r.Locality != nil && r.Method != MethodNone
}

// Pharmacy is a single pharmacy record from the national directory.
// Open/closed time arithmetic is not computed here; EsTurno carries the duty
// rotation flag as published by the source.
type Pharmacy struct {
	Id           ID        `json:"id"`
	LocalID      string    `json:"local_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Comuna       string    `json:"comuna"`
	LocalityKey  string    `json:"locality_key"`
	Region       string    `json:"region"`
	Phone        string    `json:"phone,omitempty"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	OpeningHour  string    `json:"opening_hour,omitempty"`
	ClosingHour  string    `json:"closing_hour,omitempty"`
	OperatingDay string    `json:"operating_day,omitempty"`
	UpdatedDate  string    `json:"updated_date,omitempty"`
	EsTurno      bool      `json:"es_turno"`
	InsertedAt   time.Time `json:"inserted_at"`
}

// FilterSignature is the canonical encoding of active search filters. Two
// logically identical filter sets always encode identically, so the encoding
// is safe to use as a cache-key component.
type FilterSignature struct {
	OnlyOpen  bool `json:"only_open"`
	OnlyTurno bool `json:"only_turno"`
}

// String returns the canonical encoding of the signature.
func (f FilterSignature) String() string {
	s := "open="
	if f.OnlyOpen {
		s += "1"
	} else {
		s += "0"
	}
	s += ",turno="
	if f.OnlyTurno {
		s += "1"
	} else {
		s += "0"
	}
	return s
}

// SearchResultSet is the outcome of one filtered pharmacy search.
type SearchResultSet struct {
	Locality    *Locality       `json:"locality"`
	Filters     FilterSignature `json:"filters"`
	Records     []*Pharmacy     `json:"records"`
	GeneratedAt time.Time       `json:"generated_at"`
}
