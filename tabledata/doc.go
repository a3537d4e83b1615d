// Package tabledata provides the core abstractions for the adaptive
// table-data query layer: backend capability contracts, filter
// predicates with their wire grammar, page request/result envelopes,
// and total normalization of backend values into transport-safe
// primitives.
//
// A storage backend plugs in by implementing Backend plus any subset of
// the optional capability interfaces (WindowedQuerier, BulkRowSource,
// RowCounter, TableLister, SchemaIntrospector). Probe inspects a
// backend exactly once, at open time, and produces an immutable
// CapabilityRecord that drives execution-path selection for the
// lifetime of the connection.
//
// Key types:
//   - FilterPredicate: one typed filter condition, parsed from the
//     filter_<field>[__<op>] query-parameter convention
//   - PageRequest / PageResult: the uniform paging envelope
//   - CapabilityRecord: the cached description of what a backend can do
//   - Value / Row: the closed set of transport-safe values
//
// Common usage pattern:
//
//	caps := tabledata.Probe(backend)
//	filters := tabledata.ParseFilterParams(request.URL.Query())
//	req := tabledata.PageRequest{Page: 1, Limit: 50, Filters: filters}
package tabledata
