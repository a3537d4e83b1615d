// Package queryengine executes bounded table queries against a backend
// of partial, probed capabilities.
//
// The engine is a small state machine with two execution paths and one
// terminal degraded state:
//
//  1. Server-side path: taken only when the capability record reports
//     windowed-query support. A failed server-side call falls through to
//     the in-memory path within the same request; it never downgrades
//     the capability record.
//  2. In-memory path: materializes the full row set, applies the filter
//     conjunction, a stable sort, and the page slice locally.
//  3. Degraded result: when no path can produce rows, a single
//     synthetic placeholder row explains the situation, so callers
//     always receive a well-formed page, never an error.
//
// Sorting is applied strictly before paging in both paths, and equal
// sort keys retain their original relative order, keeping pagination
// deterministic across pages.
//
// Usage:
//
//	engine, _ := queryengine.New(backend, queryengine.WithLogger(logger))
//	page := engine.Query(ctx, "users", tabledata.PageRequest{Page: 1, Limit: 50})
package queryengine
