package tabledata

import (
	"context"
)

// UnknownBackendName is reported when a backend cannot name itself.
const UnknownBackendName = "unknown"

// CapabilityRecord is the immutable snapshot of what a backend can do,
// computed once per connection by Probe and cached for its lifetime.
type CapabilityRecord struct {
	ServerSidePaging bool   `json:"server_side_pagination"`
	SupportsFilters  bool   `json:"supports_filters"`
	SupportsRowCount bool   `json:"supports_row_count"`
	BackendName      string `json:"backend_name"`
}

// Backend is the minimal contract every storage backend fulfills.
// Everything beyond it is negotiated through the optional capability
// interfaces below.
type Backend interface {
	Name() string
	Close() error
}

// Window describes one server-side windowed query.
type Window struct {
	Limit          int
	Offset         int
	SortField      string
	SortDescending bool
	Filters        []FilterPredicate
}

// WindowResult is the normalized shape every windowed query returns,
// regardless of how the backend represents results internally.
type WindowResult struct {
	Rows  []map[string]any
	Total int
}

// WindowedQuerier is implemented by backends that can apply limit,
// offset, sort and filters server-side in a single operation.
type WindowedQuerier interface {
	QueryWindow(ctx context.Context, table string, window Window) (WindowResult, error)
}

// BulkRowSource is implemented by backends that can only hand out the
// full row set of a table; filtering, sorting and paging then happen
// in memory.
type BulkRowSource interface {
	AllRows(ctx context.Context, table string) ([]map[string]any, error)
}

// RowCounter is implemented by backends that can count table rows.
type RowCounter interface {
	CountRows(ctx context.Context, table string) (int64, error)
}

// TableLister is implemented by backends that can enumerate tables.
type TableLister interface {
	ListTables(ctx context.Context) ([]string, error)
}

// SchemaIntrospector is implemented by backends that expose per-table
// column metadata.
type SchemaIntrospector interface {
	Columns(ctx context.Context, table string) ([]ColumnDescriptor, error)
}

// TableCommenter is implemented by backends that store table comments.
type TableCommenter interface {
	TableComment(ctx context.Context, table string) (string, bool)
}

// CapabilityReporter lets a backend (or a wrapper around a nested
// backend) declare its capabilities explicitly instead of being
// detected through interface assertions.
type CapabilityReporter interface {
	Capabilities() CapabilityRecord
}

// Probe inspects a backend and produces its capability record.
//
// It is called exactly once per connection, at open time; capabilities
// are assumed stable for a session. Detection order: an explicit
// CapabilityReporter wins, otherwise the optional interfaces are
// asserted. Probe never panics and is pure with respect to stored
// data; any introspection failure degrades to false/"unknown".
func Probe(backend Backend) (record CapabilityRecord) {
	record = CapabilityRecord{BackendName: UnknownBackendName}

	defer func() {
		if r := recover(); r != nil {
			record = CapabilityRecord{BackendName: UnknownBackendName}
		}
	}()

	if backend == nil {
		return record
	}

	if name := backend.Name(); name != "" {
		record.BackendName = name
	}

	if reporter, ok := backend.(CapabilityReporter); ok {
		reported := reporter.Capabilities()
		if reported.BackendName == "" {
			reported.BackendName = record.BackendName
		}

		return reported
	}

	if _, ok := backend.(WindowedQuerier); ok {
		record.ServerSidePaging = true
		record.SupportsFilters = true
	}

	if _, ok := backend.(RowCounter); ok {
		record.SupportsRowCount = true
	}

	return record
}
