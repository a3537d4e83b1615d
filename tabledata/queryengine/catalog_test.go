package queryengine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/queryengine"
)

// catalogBackend exposes the full introspection surface.
type catalogBackend struct {
	bareBackend
	tables     []string
	tablesErr  error
	columns    map[string][]tabledata.ColumnDescriptor
	columnsErr error
	counts     map[string]int64
	comments   map[string]string
}

func (b *catalogBackend) ListTables(_ context.Context) ([]string, error) {
	if b.tablesErr != nil {
		return nil, b.tablesErr
	}

	return b.tables, nil
}

func (b *catalogBackend) Columns(_ context.Context, table string) ([]tabledata.ColumnDescriptor, error) {
	if b.columnsErr != nil {
		return nil, b.columnsErr
	}

	return b.columns[table], nil
}

func (b *catalogBackend) CountRows(_ context.Context, table string) (int64, error) {
	return b.counts[table], nil
}

func (b *catalogBackend) TableComment(_ context.Context, table string) (string, bool) {
	comment, present := b.comments[table]

	return comment, present
}

func Test_ListTables_ReportsNamesWhenTheBackendCanEnumerate(t *testing.T) {
	backend := &catalogBackend{tables: []string{"people", "orders"}}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	names, available := engine.ListTables(context.Background())

	assert.True(t, available)
	assert.Equal(t, []string{"people", "orders"}, names)
}

func Test_ListTables_UnavailableWithoutEnumerationSupport(t *testing.T) {
	engine, err := queryengine.New(&bareBackend{})
	require.NoError(t, err)

	names, available := engine.ListTables(context.Background())

	assert.False(t, available)
	assert.Nil(t, names)
}

func Test_ListTables_UnavailableOnEnumerationError(t *testing.T) {
	backend := &catalogBackend{tablesErr: errors.New("catalog unreachable")}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	_, available := engine.ListTables(context.Background())

	assert.False(t, available)
}

func Test_DescribeTable_FullSchema(t *testing.T) {
	comment := "registered users"
	backend := &catalogBackend{
		tables: []string{"people"},
		columns: map[string][]tabledata.ColumnDescriptor{
			"people": {
				{Name: "id", DeclaredType: "INTEGER", PrimaryKey: true},
				{Name: "name", DeclaredType: "TEXT", Nullable: true},
			},
		},
		counts:   map[string]int64{"people": 4},
		comments: map[string]string{"people": comment},
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	descriptor, err := engine.DescribeTable(context.Background(), "people")

	require.NoError(t, err)
	assert.Equal(t, "people", descriptor.Name)
	assert.Equal(t, int64(4), descriptor.RowCount)
	require.Len(t, descriptor.Columns, 2)
	assert.Equal(t, "id", descriptor.Columns[0].Name)
	assert.True(t, descriptor.Columns[0].PrimaryKey)
	require.NotNil(t, descriptor.Comment)
	assert.Equal(t, comment, *descriptor.Comment)
	assert.False(t, descriptor.IsPlaceholder())
}

func Test_DescribeTable_UnknownTableOnEnumeratingBackend(t *testing.T) {
	backend := &catalogBackend{tables: []string{"people"}}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	_, err = engine.DescribeTable(context.Background(), "ghosts")

	assert.ErrorIs(t, err, tabledata.ErrTableNotFound)
}

func Test_DescribeTable_PlaceholderColumnsWithoutIntrospection(t *testing.T) {
	engine, err := queryengine.New(&bareBackend{})
	require.NoError(t, err)

	descriptor, err := engine.DescribeTable(context.Background(), "people")

	require.NoError(t, err)
	assert.True(t, descriptor.IsPlaceholder())
	require.Len(t, descriptor.Columns, 1)
	assert.Equal(t, "placeholder", descriptor.Columns[0].DeclaredType)
	assert.Equal(t, int64(0), descriptor.RowCount)
}

func Test_DescribeTable_IntrospectionErrorDegradesToPlaceholder(t *testing.T) {
	backend := &catalogBackend{
		tables:     []string{"people"},
		columnsErr: errors.New("pragma failed"),
	}
	engine, err := queryengine.New(backend)
	require.NoError(t, err)

	descriptor, err := engine.DescribeTable(context.Background(), "people")

	require.NoError(t, err)
	assert.True(t, descriptor.IsPlaceholder())
}
