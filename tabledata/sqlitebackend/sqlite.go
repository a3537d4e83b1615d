// Package sqlitebackend serves SQLite database files through sqlx over
// the pure-Go modernc.org/sqlite driver. It implements the full
// capability set: windowed queries are built with goqu and executed
// server-side, so the engine's fallback path is only reached when a
// query fails.
package sqlitebackend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver import

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/registry"
	"github.com/go9sky/tuckview/tabledata/sqlbuilder"
)

// BackendName is reported in the capability record.
const BackendName = "sqlite"

const driverName = "sqlite"

// sqliteMagic is the first 16 bytes of every SQLite database file.
var sqliteMagic = []byte("SQLite format 3\x00")

var ErrQueryFailed = errors.New("sqlite query failed")

const (
	sqlListTables = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	sqlTableInfo  = `PRAGMA table_info(%q)`
)

// Backend is one open SQLite database file. The file is opened
// read-only; sqlx.DB is safe for concurrent use.
type Backend struct {
	db   *sqlx.DB
	path string
}

// Open opens the SQLite file at path in read-only mode and verifies
// connectivity.
func Open(path string) (*Backend, error) {
	db, openErr := sqlx.Open(driverName, fmt.Sprintf("file:%s?mode=ro", path))
	if openErr != nil {
		return nil, openErr
	}

	if pingErr := db.Ping(); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return &Backend{db: db, path: path}, nil
}

// Recognize reports whether the file at path starts with the SQLite
// magic header.
func Recognize(path string) bool {
	file, openErr := os.Open(path)
	if openErr != nil {
		return false
	}
	defer file.Close()

	header := make([]byte, len(sqliteMagic))
	if _, readErr := file.Read(header); readErr != nil {
		return false
	}

	return bytes.Equal(header, sqliteMagic)
}

// Opener wires the backend into a connection registry.
func Opener() registry.Opener {
	return registry.Opener{
		Name:      BackendName,
		FileBased: true,
		Recognize: Recognize,
		Open: func(_ context.Context, source string) (tabledata.Backend, error) {
			return Open(source)
		},
	}
}

// Name identifies the backend in capability records.
func (b *Backend) Name() string {
	return BackendName
}

// Close closes the underlying database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

// QueryWindow executes one windowed query server-side: the page SELECT
// and the matching filtered COUNT in a single round trip each.
func (b *Backend) QueryWindow(ctx context.Context, table string, window tabledata.Window) (tabledata.WindowResult, error) {
	selectSQL, countSQL, buildErr := sqlbuilder.BuildWindowSelect(sqlbuilder.DialectSQLite, table, window)
	if buildErr != nil {
		return tabledata.WindowResult{}, buildErr
	}

	rows, queryErr := b.queryMaps(ctx, selectSQL)
	if queryErr != nil {
		return tabledata.WindowResult{}, queryErr
	}

	var total int
	if countErr := b.db.GetContext(ctx, &total, countSQL); countErr != nil {
		return tabledata.WindowResult{}, errors.Join(ErrQueryFailed, countErr)
	}

	return tabledata.WindowResult{Rows: rows, Total: total}, nil
}

// AllRows materializes the full row set of one table, for callers that
// need in-memory processing.
func (b *Backend) AllRows(ctx context.Context, table string) ([]map[string]any, error) {
	selectSQL, _, buildErr := sqlbuilder.BuildWindowSelect(
		sqlbuilder.DialectSQLite,
		table,
		tabledata.Window{Limit: tabledata.MaxPageLimit * tabledata.MaxPageLimit},
	)
	if buildErr != nil {
		return nil, buildErr
	}

	return b.queryMaps(ctx, selectSQL)
}

// CountRows counts the rows of one table.
func (b *Backend) CountRows(ctx context.Context, table string) (int64, error) {
	_, countSQL, buildErr := sqlbuilder.BuildWindowSelect(sqlbuilder.DialectSQLite, table, tabledata.Window{Limit: 1})
	if buildErr != nil {
		return 0, buildErr
	}

	var total int64
	if countErr := b.db.GetContext(ctx, &total, countSQL); countErr != nil {
		return 0, errors.Join(ErrQueryFailed, countErr)
	}

	return total, nil
}

// ListTables enumerates user tables in sorted order.
func (b *Backend) ListTables(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if selectErr := b.db.SelectContext(ctx, &names, sqlListTables); selectErr != nil {
		return nil, errors.Join(ErrQueryFailed, selectErr)
	}

	return names, nil
}

// tableInfoRow mirrors one PRAGMA table_info result row.
type tableInfoRow struct {
	CID          int            `db:"cid"`
	Name         string         `db:"name"`
	Type         string         `db:"type"`
	NotNull      int            `db:"notnull"`
	DefaultValue sql.NullString `db:"dflt_value"`
	PrimaryKey   int            `db:"pk"`
}

// Columns introspects one table via PRAGMA table_info. SQLite does not
// declare uniqueness or auto-increment there, so those default to
// false rather than erroring.
func (b *Backend) Columns(ctx context.Context, table string) ([]tabledata.ColumnDescriptor, error) {
	var infoRows []tableInfoRow
	if selectErr := b.db.SelectContext(ctx, &infoRows, fmt.Sprintf(sqlTableInfo, table)); selectErr != nil {
		return nil, errors.Join(ErrQueryFailed, selectErr)
	}

	descriptors := make([]tabledata.ColumnDescriptor, 0, len(infoRows))
	for _, info := range infoRows {
		descriptor := tabledata.ColumnDescriptor{
			Name:         info.Name,
			DeclaredType: info.Type,
			Nullable:     info.NotNull == 0,
			PrimaryKey:   info.PrimaryKey > 0,
		}

		if descriptor.DeclaredType == "" {
			descriptor.DeclaredType = "unknown"
		}

		if info.DefaultValue.Valid {
			defaultValue := info.DefaultValue.String
			descriptor.DefaultValue = &defaultValue
		}

		descriptors = append(descriptors, descriptor)
	}

	return descriptors, nil
}

// queryMaps runs a SELECT and scans every row into a column-keyed map.
func (b *Backend) queryMaps(ctx context.Context, query string) ([]map[string]any, error) {
	rows, queryErr := b.db.QueryxContext(ctx, query)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryFailed, queryErr)
	}
	defer rows.Close()

	result := make([]map[string]any, 0)
	for rows.Next() {
		row := make(map[string]any)
		if scanErr := rows.MapScan(row); scanErr != nil {
			return nil, errors.Join(ErrQueryFailed, scanErr)
		}
		result = append(result, row)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryFailed, rowsErr)
	}

	return result, nil
}
