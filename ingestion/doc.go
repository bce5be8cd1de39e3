// Package ingestion loads the MINSAL pharmacy feed into local storage.
//
// The feed is a JSON array of string-typed records, refreshed daily, with a
// separate endpoint for turno pharmacies. The Loader tolerates the feed's
// quirks (stringly coordinates, missing dates, the odd empty row), converts
// entries on a small worker pool, writes through the repository, and flushes
// the result cache so searches see the new data immediately.
package ingestion
