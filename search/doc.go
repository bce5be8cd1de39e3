// Package search runs filtered pharmacy lookups for already-resolved
// localities.
//
// The Executor combines three collaborators: the pharmacy repository for the
// actual records, an optional Redis result cache keyed by locality and
// filter signature, and an OpenChecker that owns the open-right-now
// question. Turno filtering happens in the repository because the flag is
// part of the stored record; open-now filtering happens here because it
// depends on the clock.
package search
