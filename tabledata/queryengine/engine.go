package queryengine

import (
	"context"
	"math"
	"time"

	"github.com/go9sky/tuckview/tabledata"
)

const (
	logMsgServerSidePathFailed = "server-side query failed, falling back to in-memory path"
	logMsgServerSidePanic      = "server-side query panicked, falling back to in-memory path"
	logMsgBulkRowsFailed       = "bulk row retrieval failed"
	logMsgBulkRowsPanic        = "bulk row retrieval panicked"
	logMsgNoRowsReadable       = "no rows readable for table"
	logMsgQueryCompleted       = "table query completed"
	logMsgDegradedResult       = "no data path usable, returning placeholder result"
	logAttrError               = "error"
	logAttrPanic               = "panic"
	logAttrTable               = "table"
	logAttrRowCount            = "row_count"
	logAttrTotal               = "total"
	logAttrPath                = "path"
	logAttrDurationMS          = "duration_ms"

	metricQueryDuration = "tabledata_query_duration"
	metricQueriesTotal  = "tabledata_queries_total"
	labelPath           = "path"
	labelBackend        = "backend"

	pathServerSide = "server_side"
	pathInMemory   = "in_memory"
	pathDegraded   = "degraded"
)

const (
	placeholderMessage    = "table data is not available from this backend"
	placeholderSuggestion = "the connected backend exposes neither a usable windowed query nor bulk row access"
)

// Engine executes bounded table queries against a single backend,
// choosing between the server-side and in-memory paths based on the
// capability record probed at construction time.
//
// An Engine is read-only with respect to the backend and safe for
// concurrent use by multiple requests.
type Engine struct {
	backend          tabledata.Backend
	caps             tabledata.CapabilityRecord
	logger           tabledata.Logger
	contextualLogger tabledata.ContextualLogger
	metrics          tabledata.MetricsCollector
}

// New creates an Engine for the given backend, probing its capabilities
// exactly once. The record stays fixed for the lifetime of the engine.
func New(backend tabledata.Backend, options ...Option) (*Engine, error) {
	if backend == nil {
		return nil, tabledata.ErrNilBackend
	}

	engine := &Engine{
		backend: backend,
		caps:    tabledata.Probe(backend),
	}

	for _, option := range options {
		if err := option(engine); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// Capabilities returns the capability record probed at construction.
func (e *Engine) Capabilities() tabledata.CapabilityRecord {
	return e.caps
}

// Query executes one page request against the table and always returns
// a well-formed page result: server-side when the backend supports it,
// in-memory otherwise, and a single-row placeholder page when no data
// is obtainable at all. It never returns an error and never panics.
func (e *Engine) Query(ctx context.Context, table string, request tabledata.PageRequest) tabledata.PageResult {
	request = request.Normalized()
	start := time.Now()

	if e.caps.ServerSidePaging {
		if result, ok := e.queryServerSide(ctx, table, request); ok {
			e.finishQuery(ctx, pathServerSide, table, result, time.Since(start))
			return result
		}
	}

	if result, ok := e.queryInMemory(ctx, table, request); ok {
		e.finishQuery(ctx, pathInMemory, table, result, time.Since(start))
		return result
	}

	result := e.degradedResult(ctx, table, request)
	e.finishQuery(ctx, pathDegraded, table, result, time.Since(start))

	return result
}

// queryServerSide delegates the whole window to the backend. Any error
// or panic is recovered here; the caller then falls through to the
// in-memory path for this request only.
func (e *Engine) queryServerSide(
	ctx context.Context,
	table string,
	request tabledata.PageRequest,
) (result tabledata.PageResult, ok bool) {

	defer func() {
		if r := recover(); r != nil {
			e.logWarn(ctx, logMsgServerSidePanic, logAttrTable, table, logAttrPanic, safeRecoverString(r))
			result, ok = tabledata.PageResult{}, false
		}
	}()

	querier, isWindowed := e.backend.(tabledata.WindowedQuerier)
	if !isWindowed {
		return tabledata.PageResult{}, false
	}

	window := tabledata.Window{
		Limit:          request.Limit,
		Offset:         request.Offset(),
		SortField:      request.SortField,
		SortDescending: request.SortDescending,
		Filters:        request.Filters,
	}

	windowResult, err := querier.QueryWindow(ctx, table, window)
	if err != nil {
		e.logWarn(ctx, logMsgServerSidePathFailed, logAttrTable, table, logAttrError, err.Error())
		return tabledata.PageResult{}, false
	}

	rows := tabledata.NormalizeRows(windowResult.Rows)
	if len(rows) > request.Limit {
		rows = rows[:request.Limit]
	}

	total := windowResult.Total
	if total < 0 {
		total = 0
	}

	return tabledata.PageResult{
		Rows:            rows,
		Total:           total,
		Page:            request.Page,
		Limit:           request.Limit,
		ServedByBackend: true,
	}, true
}

// queryInMemory materializes the full row set and applies the filter
// conjunction, a stable sort, and the page slice locally.
func (e *Engine) queryInMemory(
	ctx context.Context,
	table string,
	request tabledata.PageRequest,
) (result tabledata.PageResult, ok bool) {

	defer func() {
		if r := recover(); r != nil {
			e.logWarn(ctx, logMsgBulkRowsPanic, logAttrTable, table, logAttrPanic, safeRecoverString(r))
			result, ok = tabledata.PageResult{}, false
		}
	}()

	source, isBulk := e.backend.(tabledata.BulkRowSource)
	if !isBulk {
		return tabledata.PageResult{}, false
	}

	allRows, err := source.AllRows(ctx, table)
	if err != nil {
		e.logError(ctx, logMsgBulkRowsFailed, logAttrTable, table, logAttrError, err.Error())
		return tabledata.PageResult{}, false
	}

	if len(allRows) == 0 {
		e.logDebug(ctx, logMsgNoRowsReadable, logAttrTable, table)
		return tabledata.PageResult{}, false
	}

	filtered := applyFilters(allRows, request.Filters)
	if request.SortField != "" {
		filtered = sortRows(filtered, request.SortField, request.SortDescending)
	}

	return tabledata.PageResult{
		Rows:            tabledata.NormalizeRows(slicePage(filtered, request.Offset(), request.Limit)),
		Total:           len(filtered),
		Page:            request.Page,
		Limit:           request.Limit,
		ServedByBackend: false,
	}, true
}

// degradedResult is the terminal state: one synthetic row carrying a
// human-readable explanation, so the transport boundary always receives
// a well-formed page.
func (e *Engine) degradedResult(ctx context.Context, table string, request tabledata.PageRequest) tabledata.PageResult {
	e.logWarn(ctx, logMsgDegradedResult, logAttrTable, table)

	return tabledata.PageResult{
		Rows: []tabledata.Row{
			{
				"id":                        int64(1),
				"message":                   placeholderMessage,
				"suggestion":                placeholderSuggestion,
				tabledata.PlaceholderRowKey: true,
			},
		},
		Total:           1,
		Page:            request.Page,
		Limit:           request.Limit,
		ServedByBackend: false,
	}
}

// slicePage cuts [offset, offset+limit) out of rows, clamped to bounds.
func slicePage(rows []map[string]any, offset int, limit int) []map[string]any {
	if offset >= len(rows) {
		return nil
	}

	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}

	return rows[offset:end]
}

func (e *Engine) finishQuery(ctx context.Context, path string, table string, result tabledata.PageResult, duration time.Duration) {
	e.logInfo(
		ctx,
		logMsgQueryCompleted,
		logAttrTable, table,
		logAttrPath, path,
		logAttrRowCount, len(result.Rows),
		logAttrTotal, result.Total,
		logAttrDurationMS, durationToMilliseconds(duration),
	)

	if e.metrics == nil {
		return
	}

	labels := map[string]string{
		labelPath:    path,
		labelBackend: e.caps.BackendName,
	}

	e.metrics.RecordDuration(metricQueryDuration, duration, labels)
	e.metrics.IncrementCounter(metricQueriesTotal, labels)
}

func (e *Engine) logDebug(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

func safeRecoverString(r any) string {
	if err, isErr := r.(error); isErr {
		return err.Error()
	}
	if s, isStr := r.(string); isStr {
		return s
	}

	return "unexpected panic value"
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
