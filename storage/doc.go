// Package storage defines persistence interfaces and serialization for
// pharmacy records.
//
// The interfaces here decouple the search and ingestion layers from the
// concrete store. The production implementation lives in storage/badger;
// tests use the same implementation with an in-memory backend.
//
// Records are stored as JSON. The dataset is small (a few thousand records
// refreshed daily) so encode cost is irrelevant next to the readability of
// inspectable values.
package storage
