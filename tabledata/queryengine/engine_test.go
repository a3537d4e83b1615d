package queryengine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/queryengine"
)

/*** Test backends ***/

// bareBackend supports neither windowed nor bulk access.
type bareBackend struct{}

func (b *bareBackend) Name() string { return "bare" }
func (b *bareBackend) Close() error { return nil }

// bulkBackend hands out full row sets only.
type bulkBackend struct {
	rows    map[string][]map[string]any
	rowsErr error
}

func (b *bulkBackend) Name() string { return "bulk" }
func (b *bulkBackend) Close() error { return nil }

func (b *bulkBackend) AllRows(_ context.Context, table string) ([]map[string]any, error) {
	if b.rowsErr != nil {
		return nil, b.rowsErr
	}

	return b.rows[table], nil
}

// windowedBackend supports server-side windowed queries and can be
// told to fail or panic; it also carries a bulk fallback row set.
type windowedBackend struct {
	bulkBackend
	windowResult tabledata.WindowResult
	windowErr    error
	panicOnQuery bool
	lastWindow   tabledata.Window
}

func (b *windowedBackend) Name() string { return "windowed" }

func (b *windowedBackend) QueryWindow(
	_ context.Context,
	_ string,
	window tabledata.Window,
) (tabledata.WindowResult, error) {

	b.lastWindow = window

	if b.panicOnQuery {
		panic("backend exploded")
	}
	if b.windowErr != nil {
		return tabledata.WindowResult{}, b.windowErr
	}

	return b.windowResult, nil
}

// recordingCollector captures metric calls for assertions.
type recordingCollector struct {
	mu        sync.Mutex
	durations map[string]map[string]string
	counters  map[string]map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		durations: make(map[string]map[string]string),
		counters:  make(map[string]map[string]string),
	}
}

func (c *recordingCollector) RecordDuration(metric string, _ time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations[metric] = labels
}

func (c *recordingCollector) IncrementCounter(metric string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[metric] = labels
}

func (c *recordingCollector) RecordValue(string, float64, map[string]string) {}

func peopleRows() []map[string]any {
	return []map[string]any{
		{"id": 1, "name": "carol", "age": 41},
		{"id": 2, "name": "alice", "age": 34},
		{"id": 3, "name": "bob", "age": 28},
		{"id": 4, "name": "dave", "age": 34},
	}
}

/*** Tests ***/

func Test_New_NilBackendIsRejected(t *testing.T) {
	engine, err := queryengine.New(nil)

	assert.Nil(t, engine)
	assert.ErrorIs(t, err, tabledata.ErrNilBackend)
}

func Test_Query_ServerSidePathPassesTheWholeWindowThrough(t *testing.T) {
	backend := &windowedBackend{
		windowResult: tabledata.WindowResult{
			Rows:  []map[string]any{{"id": 1, "name": "carol"}},
			Total: 42,
		},
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	filters := []tabledata.FilterPredicate{{Field: "age", Op: tabledata.OpGt, Value: int64(30)}}
	result := engine.Query(context.Background(), "people", tabledata.PageRequest{
		Page:           3,
		Limit:          10,
		SortField:      "name",
		SortDescending: true,
		Filters:        filters,
	})

	assert.True(t, result.ServedByBackend)
	assert.Equal(t, 42, result.Total)
	assert.Equal(t, 3, result.Page)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(1), result.Rows[0]["id"])

	assert.Equal(t, 10, backend.lastWindow.Limit)
	assert.Equal(t, 20, backend.lastWindow.Offset)
	assert.Equal(t, "name", backend.lastWindow.SortField)
	assert.True(t, backend.lastWindow.SortDescending)
	assert.Equal(t, filters, backend.lastWindow.Filters)
}

func Test_Query_ServerSideRowsNeverExceedTheLimit(t *testing.T) {
	oversized := make([]map[string]any, 5)
	for i := range oversized {
		oversized[i] = map[string]any{"id": i}
	}
	backend := &windowedBackend{
		windowResult: tabledata.WindowResult{Rows: oversized, Total: 5},
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "people", tabledata.PageRequest{Limit: 2})

	assert.Len(t, result.Rows, 2)
}

func Test_Query_NegativeTotalIsClampedToZero(t *testing.T) {
	backend := &windowedBackend{
		windowResult: tabledata.WindowResult{Rows: []map[string]any{{"id": 1}}, Total: -7},
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "people", tabledata.PageRequest{})

	assert.Equal(t, 0, result.Total)
}

func Test_Query_FailingServerSidePathFallsBackToInMemory(t *testing.T) {
	backend := &windowedBackend{
		bulkBackend: bulkBackend{rows: map[string][]map[string]any{"people": peopleRows()}},
		windowErr:   errors.New("connection reset"),
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "people", tabledata.PageRequest{SortField: "name"})

	assert.False(t, result.ServedByBackend)
	assert.Equal(t, 4, result.Total)
	require.Len(t, result.Rows, 4)
	assert.Equal(t, "alice", result.Rows[0]["name"])
	assert.Equal(t, "bob", result.Rows[1]["name"])
	assert.Equal(t, "carol", result.Rows[2]["name"])
	assert.Equal(t, "dave", result.Rows[3]["name"])
}

func Test_Query_PanickingServerSidePathFallsBackToInMemory(t *testing.T) {
	backend := &windowedBackend{
		bulkBackend:  bulkBackend{rows: map[string][]map[string]any{"people": peopleRows()}},
		panicOnQuery: true,
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "people", tabledata.PageRequest{})

	assert.False(t, result.ServedByBackend)
	assert.Equal(t, 4, result.Total)
}

func Test_Query_InMemoryPathFiltersSortsAndPages(t *testing.T) {
	backend := &bulkBackend{rows: map[string][]map[string]any{"people": peopleRows()}}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "people", tabledata.PageRequest{
		Page:      1,
		Limit:     2,
		SortField: "age",
		Filters: []tabledata.FilterPredicate{
			{Field: "age", Op: tabledata.OpGte, Value: int64(30)},
		},
	})

	assert.False(t, result.ServedByBackend)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "alice", result.Rows[0]["name"])
	assert.Equal(t, "dave", result.Rows[1]["name"])
}

func Test_Query_InMemoryPaginationHasNoDuplicatesOrGaps(t *testing.T) {
	rows := make([]map[string]any, 10)
	for i := range rows {
		rows[i] = map[string]any{"id": i}
	}
	backend := &bulkBackend{rows: map[string][]map[string]any{"items": rows}}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	seen := make(map[int64]int)
	for page := 1; page <= 4; page++ {
		result := engine.Query(context.Background(), "items", tabledata.PageRequest{
			Page:      page,
			Limit:     3,
			SortField: "id",
		})

		assert.Equal(t, 10, result.Total)
		for _, row := range result.Rows {
			seen[row["id"].(int64)]++
		}
	}

	require.Len(t, seen, 10)
	for id, count := range seen {
		assert.Equal(t, 1, count, "id %d appeared %d times", id, count)
	}
}

func Test_Query_FilteredToEmptyIsANormalEmptyPage(t *testing.T) {
	backend := &bulkBackend{rows: map[string][]map[string]any{"people": peopleRows()}}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "people", tabledata.PageRequest{
		Filters: []tabledata.FilterPredicate{
			{Field: "age", Op: tabledata.OpGt, Value: int64(1000)},
		},
	})

	assert.False(t, result.IsPlaceholder())
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Rows)
}

func Test_Query_ZeroReadableRowsDegradesToPlaceholder(t *testing.T) {
	backend := &bulkBackend{rows: map[string][]map[string]any{}}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	result := engine.Query(context.Background(), "missing", tabledata.PageRequest{})

	require.True(t, result.IsPlaceholder())
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, true, result.Rows[0][tabledata.PlaceholderRowKey])
	assert.NotEmpty(t, result.Rows[0]["message"])
}

func Test_Query_BackendWithoutDataAccessDegradesToPlaceholder(t *testing.T) {
	engine, err := queryengine.New(&bareBackend{})
	require.NoError(t, err)

	result := engine.Query(context.Background(), "anything", tabledata.PageRequest{})

	require.True(t, result.IsPlaceholder())
	assert.Equal(t, 1, result.Total)
	assert.False(t, result.ServedByBackend)
}

func Test_Query_RecordsMetricsPerPath(t *testing.T) {
	collector := newRecordingCollector()
	backend := &bulkBackend{rows: map[string][]map[string]any{"people": peopleRows()}}
	engine, err := queryengine.New(backend, queryengine.WithMetrics(collector))
	require.NoError(t, err)

	_ = engine.Query(context.Background(), "people", tabledata.PageRequest{})

	labels := collector.counters["tabledata_queries_total"]
	require.NotNil(t, labels)
	assert.Equal(t, "in_memory", labels["path"])
	assert.Equal(t, "bulk", labels["backend"])
	assert.NotNil(t, collector.durations["tabledata_query_duration"])
}

func Test_Capabilities_AreProbedOnce(t *testing.T) {
	engine, err := queryengine.New(&windowedBackend{})
	require.NoError(t, err)

	caps := engine.Capabilities()

	assert.True(t, caps.ServerSidePaging)
	assert.True(t, caps.SupportsFilters)
	assert.Equal(t, "windowed", caps.BackendName)
}
