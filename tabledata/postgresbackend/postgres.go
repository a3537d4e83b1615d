// Package postgresbackend serves PostgreSQL sources through a pgx
// connection pool. It implements the full capability set; windowed
// queries are built with goqu and executed server-side.
package postgresbackend

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/registry"
	"github.com/go9sky/tuckview/tabledata/sqlbuilder"
)

// BackendName is reported in the capability record.
const BackendName = "postgres"

var ErrQueryFailed = errors.New("postgres query failed")

const (
	sqlListTables = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	sqlColumns = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			c.column_default,
			COALESCE(c.is_identity, 'NO') = 'YES' AS is_identity,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
			) AS primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`
)

// Backend is one open PostgreSQL session backed by a pgx pool, which is
// safe for concurrent use.
type Backend struct {
	pool *pgxpool.Pool
}

// Open connects the pool and verifies connectivity with a ping.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	pool, poolErr := pgxpool.New(ctx, dsn)
	if poolErr != nil {
		return nil, poolErr
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, pingErr
	}

	return &Backend{pool: pool}, nil
}

// Recognize reports whether the source is a postgres DSN.
func Recognize(source string) bool {
	return strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://")
}

// Opener wires the backend into a connection registry.
func Opener() registry.Opener {
	return registry.Opener{
		Name:      BackendName,
		Recognize: Recognize,
		Open: func(ctx context.Context, source string) (tabledata.Backend, error) {
			return Open(ctx, source)
		},
	}
}

// Name identifies the backend in capability records.
func (b *Backend) Name() string {
	return BackendName
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	b.pool.Close()

	return nil
}

// QueryWindow executes one windowed query server-side: the page SELECT
// and the matching filtered COUNT.
func (b *Backend) QueryWindow(ctx context.Context, table string, window tabledata.Window) (tabledata.WindowResult, error) {
	selectSQL, countSQL, buildErr := sqlbuilder.BuildWindowSelect(sqlbuilder.DialectPostgres, table, window)
	if buildErr != nil {
		return tabledata.WindowResult{}, buildErr
	}

	rows, queryErr := b.queryMaps(ctx, selectSQL)
	if queryErr != nil {
		return tabledata.WindowResult{}, queryErr
	}

	var total int
	if countErr := b.pool.QueryRow(ctx, countSQL).Scan(&total); countErr != nil {
		return tabledata.WindowResult{}, errors.Join(ErrQueryFailed, countErr)
	}

	return tabledata.WindowResult{Rows: rows, Total: total}, nil
}

// AllRows materializes the full row set of one table, bounded by the
// same iteration cap as the sqlite backend.
func (b *Backend) AllRows(ctx context.Context, table string) ([]map[string]any, error) {
	selectSQL, _, buildErr := sqlbuilder.BuildWindowSelect(
		sqlbuilder.DialectPostgres,
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
	_, countSQL, buildErr := sqlbuilder.BuildWindowSelect(sqlbuilder.DialectPostgres, table, tabledata.Window{Limit: 1})
	if buildErr != nil {
		return 0, buildErr
	}

	var total int64
	if countErr := b.pool.QueryRow(ctx, countSQL).Scan(&total); countErr != nil {
		return 0, errors.Join(ErrQueryFailed, countErr)
	}

	return total, nil
}

// ListTables enumerates public base tables in sorted order.
func (b *Backend) ListTables(ctx context.Context) ([]string, error) {
	rows, queryErr := b.pool.Query(ctx, sqlListTables)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryFailed, queryErr)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, errors.Join(ErrQueryFailed, scanErr)
		}
		names = append(names, name)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryFailed, rowsErr)
	}

	return names, nil
}

// Columns introspects one table through information_schema.
func (b *Backend) Columns(ctx context.Context, table string) ([]tabledata.ColumnDescriptor, error) {
	rows, queryErr := b.pool.Query(ctx, sqlColumns, table)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryFailed, queryErr)
	}
	defer rows.Close()

	descriptors := make([]tabledata.ColumnDescriptor, 0)
	for rows.Next() {
		var (
			name         string
			declaredType string
			nullable     bool
			defaultValue *string
			isIdentity   bool
			primaryKey   bool
		)

		if scanErr := rows.Scan(&name, &declaredType, &nullable, &defaultValue, &isIdentity, &primaryKey); scanErr != nil {
			return nil, errors.Join(ErrQueryFailed, scanErr)
		}

		descriptors = append(descriptors, tabledata.ColumnDescriptor{
			Name:          name,
			DeclaredType:  declaredType,
			Nullable:      nullable,
			PrimaryKey:    primaryKey,
			DefaultValue:  defaultValue,
			AutoIncrement: isIdentity,
		})
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryFailed, rowsErr)
	}

	return descriptors, nil
}

// queryMaps runs a SELECT and converts every row into a column-keyed map.
func (b *Backend) queryMaps(ctx context.Context, query string) ([]map[string]any, error) {
	rows, queryErr := b.pool.Query(ctx, query)
	if queryErr != nil {
		return nil, errors.Join(ErrQueryFailed, queryErr)
	}

	result, collectErr := pgx.CollectRows(rows, pgx.RowToMap)
	if collectErr != nil {
		return nil, errors.Join(ErrQueryFailed, collectErr)
	}

	return result, nil
}
