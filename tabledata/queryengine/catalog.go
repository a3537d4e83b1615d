package queryengine

import (
	"context"
	"slices"

	"github.com/go9sky/tuckview/tabledata"
)

const (
	logMsgListTablesFailed = "table enumeration failed"
	logMsgColumnsFailed    = "column introspection failed, using placeholder schema"
	logMsgRowCountFailed   = "row count unavailable"
	logMsgNoTableLister    = "backend does not support table enumeration"
	logMsgCatalogPanic     = "catalog introspection panicked"
)

// ListTables enumerates the backend's tables. The second return value
// is false when the backend cannot enumerate tables at all; that is a
// degraded state, not an error.
func (e *Engine) ListTables(ctx context.Context) (names []string, available bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logWarn(ctx, logMsgCatalogPanic, logAttrPanic, safeRecoverString(r))
			names, available = nil, false
		}
	}()

	lister, canList := e.backend.(tabledata.TableLister)
	if !canList {
		e.logDebug(ctx, logMsgNoTableLister)
		return nil, false
	}

	names, err := lister.ListTables(ctx)
	if err != nil {
		e.logError(ctx, logMsgListTablesFailed, logAttrError, err.Error())
		return nil, false
	}

	return names, true
}

// DescribeTable returns the schema of one table under the same no-raise
// discipline as Query: introspection failures yield the degraded
// single-column placeholder descriptor.
//
// A name the backend can enumerate but does not contain returns
// tabledata.ErrTableNotFound; that is distinct from the
// degraded-but-present case.
func (e *Engine) DescribeTable(ctx context.Context, name string) (tabledata.TableDescriptor, error) {
	if names, listed := e.ListTables(ctx); listed && !slices.Contains(names, name) {
		return tabledata.TableDescriptor{}, tabledata.ErrTableNotFound
	}

	descriptor := tabledata.TableDescriptor{Name: name}

	descriptor.Columns = e.introspectColumns(ctx, name)
	if len(descriptor.Columns) == 0 {
		descriptor.Columns = tabledata.PlaceholderColumns()
	}

	descriptor.RowCount = e.bestEffortRowCount(ctx, name)

	if commenter, hasComments := e.backend.(tabledata.TableCommenter); hasComments {
		if comment, present := commenter.TableComment(ctx, name); present {
			descriptor.Comment = &comment
		}
	}

	return descriptor, nil
}

func (e *Engine) introspectColumns(ctx context.Context, table string) (columns []tabledata.ColumnDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			e.logWarn(ctx, logMsgCatalogPanic, logAttrTable, table, logAttrPanic, safeRecoverString(r))
			columns = nil
		}
	}()

	introspector, canIntrospect := e.backend.(tabledata.SchemaIntrospector)
	if !canIntrospect {
		return nil
	}

	columns, err := introspector.Columns(ctx, table)
	if err != nil {
		e.logWarn(ctx, logMsgColumnsFailed, logAttrTable, table, logAttrError, err.Error())
		return nil
	}

	return columns
}

// bestEffortRowCount returns 0 when the count is unknown, never a
// negative value.
func (e *Engine) bestEffortRowCount(ctx context.Context, table string) (count int64) {
	defer func() {
		if r := recover(); r != nil {
			e.logWarn(ctx, logMsgCatalogPanic, logAttrTable, table, logAttrPanic, safeRecoverString(r))
			count = 0
		}
	}()

	counter, canCount := e.backend.(tabledata.RowCounter)
	if !canCount {
		return 0
	}

	counted, err := counter.CountRows(ctx, table)
	if err != nil || counted < 0 {
		if err != nil {
			e.logDebug(ctx, logMsgRowCountFailed, logAttrTable, table, logAttrError, err.Error())
		}
		return 0
	}

	return counted
}
