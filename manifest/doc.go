// Package manifest loads and indexes the item manifest: a flat, read-only
// collection of analyzed media items keyed uniquely by filename, with simple
// predicate filters and the condensed projections consumed by the selector.
// The index has no concurrency concerns because it never mutates after Load.
package manifest
