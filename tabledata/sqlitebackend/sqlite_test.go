package sqlitebackend_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/sqlitebackend"
)

func createFixtureDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")

	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	_, err = db.Exec(`CREATE TABLE people (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO people (id, name, age) VALUES
		(1, 'carol', 41),
		(2, 'alice', 34),
		(3, 'bob', 28),
		(4, 'dave', 34)`)
	require.NoError(t, err)

	return path
}

func openFixture(t *testing.T) *sqlitebackend.Backend {
	t.Helper()

	backend, err := sqlitebackend.Open(createFixtureDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	return backend
}

func Test_Recognize(t *testing.T) {
	dbPath := createFixtureDB(t)
	textPath := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("not a database"), 0o644))

	assert.True(t, sqlitebackend.Recognize(dbPath))
	assert.False(t, sqlitebackend.Recognize(textPath))
	assert.False(t, sqlitebackend.Recognize(filepath.Join(t.TempDir(), "missing.db")))
}

func Test_Probe_ReportsFullCapabilities(t *testing.T) {
	backend := openFixture(t)

	record := tabledata.Probe(backend)

	assert.True(t, record.ServerSidePaging)
	assert.True(t, record.SupportsFilters)
	assert.True(t, record.SupportsRowCount)
	assert.Equal(t, sqlitebackend.BackendName, record.BackendName)
}

func Test_ListTables(t *testing.T) {
	backend := openFixture(t)

	names, err := backend.ListTables(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"people"}, names)
}

func Test_QueryWindow_FiltersSortsAndPages(t *testing.T) {
	backend := openFixture(t)

	result, err := backend.QueryWindow(context.Background(), "people", tabledata.Window{
		Limit:     2,
		Offset:    0,
		SortField: "age",
		Filters: []tabledata.FilterPredicate{
			{Field: "age", Op: tabledata.OpGte, Value: int64(30)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Rows, 2)
	assert.EqualValues(t, 34, result.Rows[0]["age"])
	assert.EqualValues(t, 34, result.Rows[1]["age"])
}

func Test_QueryWindow_ContainsFilter(t *testing.T) {
	backend := openFixture(t)

	result, err := backend.QueryWindow(context.Background(), "people", tabledata.Window{
		Limit: 10,
		Filters: []tabledata.FilterPredicate{
			{Field: "name", Op: tabledata.OpContains, Value: "li"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "alice", result.Rows[0]["name"])
}

func Test_QueryWindow_UnknownTableFails(t *testing.T) {
	backend := openFixture(t)

	_, err := backend.QueryWindow(context.Background(), "ghosts", tabledata.Window{Limit: 10})

	assert.ErrorIs(t, err, sqlitebackend.ErrQueryFailed)
}

func Test_CountRows(t *testing.T) {
	backend := openFixture(t)

	count, err := backend.CountRows(context.Background(), "people")

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func Test_Columns_FromTableInfo(t *testing.T) {
	backend := openFixture(t)

	columns, err := backend.Columns(context.Background(), "people")

	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, "INTEGER", columns[0].DeclaredType)
	assert.True(t, columns[0].PrimaryKey)

	assert.Equal(t, "name", columns[1].Name)
	assert.False(t, columns[1].Nullable)

	assert.Equal(t, "age", columns[2].Name)
	assert.True(t, columns[2].Nullable)
}
