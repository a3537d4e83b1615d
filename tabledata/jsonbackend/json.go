// Package jsonbackend reads tuck JSON document files: a single JSON
// object with a top-level "tables" map, each table carrying optional
// "columns" metadata and a "records" array.
//
// The backend deliberately implements only TableLister, BulkRowSource,
// RowCounter and SchemaIntrospector; it has no windowed-query support,
// so every query against it exercises the engine's in-memory path.
package jsonbackend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/registry"
)

// BackendName is reported in the capability record.
const BackendName = "tuckjson"

var ErrInvalidDocument = errors.New("file is not a tuck json document")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type document struct {
	Tables map[string]documentTable `json:"tables"`
}

type documentTable struct {
	Comment string           `json:"comment"`
	Columns []documentColumn `json:"columns"`
	Records []map[string]any `json:"records"`
}

type documentColumn struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Nullable      *bool  `json:"nullable"`
	PrimaryKey    bool   `json:"primary_key"`
	Default       any    `json:"default"`
	Comment       string `json:"comment"`
	AutoIncrement bool   `json:"autoincrement"`
	Unique        bool   `json:"unique"`
}

// Backend serves one parsed tuck JSON document. The document is loaded
// fully at open time and never mutated, so all methods are safe for
// concurrent use.
type Backend struct {
	path   string
	tables map[string]documentTable
}

// Open parses the file at path into a Backend. It fails with
// ErrInvalidDocument when the file is not a tuck json document.
func Open(path string) (*Backend, error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, readErr
	}

	var doc document
	if unmarshalErr := json.Unmarshal(raw, &doc); unmarshalErr != nil {
		return nil, errors.Join(ErrInvalidDocument, unmarshalErr)
	}

	if doc.Tables == nil {
		return nil, ErrInvalidDocument
	}

	return &Backend{path: path, tables: doc.Tables}, nil
}

// Recognize reports whether the file at path parses as a tuck json
// document. It reads the file but leaves no state behind.
func Recognize(path string) bool {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return false
	}

	var doc document
	if unmarshalErr := json.Unmarshal(raw, &doc); unmarshalErr != nil {
		return false
	}

	return doc.Tables != nil
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

// Close releases the in-memory document.
func (b *Backend) Close() error {
	b.tables = nil

	return nil
}

// ListTables enumerates table names in sorted order.
func (b *Backend) ListTables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// AllRows hands out a copy of the full record set of one table.
func (b *Backend) AllRows(_ context.Context, table string) ([]map[string]any, error) {
	tbl, found := b.tables[table]
	if !found {
		return nil, fmt.Errorf("%w: %s", tabledata.ErrTableNotFound, table)
	}

	rows := make([]map[string]any, len(tbl.Records))
	copy(rows, tbl.Records)

	return rows, nil
}

// CountRows counts the records of one table.
func (b *Backend) CountRows(_ context.Context, table string) (int64, error) {
	tbl, found := b.tables[table]
	if !found {
		return 0, fmt.Errorf("%w: %s", tabledata.ErrTableNotFound, table)
	}

	return int64(len(tbl.Records)), nil
}

// Columns maps the document's column metadata to descriptors. Absent
// fields default to safe values: nullable when unstated, no primary
// key, no default.
func (b *Backend) Columns(_ context.Context, table string) ([]tabledata.ColumnDescriptor, error) {
	tbl, found := b.tables[table]
	if !found {
		return nil, fmt.Errorf("%w: %s", tabledata.ErrTableNotFound, table)
	}

	descriptors := make([]tabledata.ColumnDescriptor, 0, len(tbl.Columns))
	for _, column := range tbl.Columns {
		descriptor := tabledata.ColumnDescriptor{
			Name:          column.Name,
			DeclaredType:  column.Type,
			Nullable:      true,
			PrimaryKey:    column.PrimaryKey,
			AutoIncrement: column.AutoIncrement,
			Unique:        column.Unique,
		}

		if column.Type == "" {
			descriptor.DeclaredType = "unknown"
		}

		if column.Nullable != nil {
			descriptor.Nullable = *column.Nullable
		}

		if column.Default != nil {
			defaultValue := fmt.Sprint(column.Default)
			descriptor.DefaultValue = &defaultValue
		}

		if column.Comment != "" {
			comment := column.Comment
			descriptor.Comment = &comment
		}

		descriptors = append(descriptors, descriptor)
	}

	return descriptors, nil
}

// TableComment returns the table's comment when the document has one.
func (b *Backend) TableComment(_ context.Context, table string) (string, bool) {
	tbl, found := b.tables[table]
	if !found || tbl.Comment == "" {
		return "", false
	}

	return tbl.Comment, true
}
