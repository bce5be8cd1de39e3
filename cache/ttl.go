package cache

import "time"

// TTLClass assigns cached entries to a freshness tier. Tiers exist because
// the data ages at very different rates: turno rosters flip at midnight while
// a resolved comuna name stays valid until the registry changes.
type TTLClass int

const (
	// Critical holds volatile data such as turno listings and negative
	// resolution results that a registry fix should unstick quickly.
	Critical TTLClass = iota

	// High holds resolved locality matches and general search results.
	High

	// Medium holds slowly changing derived data.
	Medium

	// Low holds near-static data.
	Low
)

var ttlDurations = map[TTLClass]time.Duration{
	Critical: 5 * time.Minute,
	High:     30 * time.Minute,
	Medium:   6 * time.Hour,
	Low:      24 * time.Hour,
}

var ttlNames = map[TTLClass]string{
	Critical: "critical",
	High:     "high",
	Medium:   "medium",
	Low:      "low",
}

// Duration returns the expiry for entries in this class.
// Unknown classes get the Critical duration, the shortest one.
func (c TTLClass) Duration() time.Duration {
	if d, ok := ttlDurations[c]; ok {
		return d
	}
	return ttlDurations[Critical]
}

// String returns the class name in lowercase.
func (c TTLClass) String() string {
	if name, ok := ttlNames[c]; ok {
		return name
	}
	return "unknown"
}
