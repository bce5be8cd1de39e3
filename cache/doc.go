// Package cache provides a Redis-backed result cache for locality resolution
// and pharmacy search.
//
// Entries are JSON values with a TTL chosen by freshness class rather than
// per call site, so the expiry policy lives in one place. Negative
// resolution results are cached too, on the shortest TTL, which shields the
// expensive extraction stage from repeated unresolvable queries without
// pinning a registry gap for long.
//
// The cache never makes the system less available than Redis does: reads
// degrade to misses on any error and callers treat a miss as "do the work".
package cache
