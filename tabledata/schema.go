package tabledata

// ColumnDescriptor is one schema fact about a table column. Fields a
// backend cannot introspect default to safe/unknown values.
type ColumnDescriptor struct {
	Name          string  `json:"name"`
	DeclaredType  string  `json:"type"`
	Nullable      bool    `json:"nullable"`
	PrimaryKey    bool    `json:"primary_key"`
	DefaultValue  *string `json:"default_value,omitempty"`
	Comment       *string `json:"comment,omitempty"`
	AutoIncrement bool    `json:"autoincrement"`
	Unique        bool    `json:"unique"`
}

// TableDescriptor describes one table: best-effort row count (0 when
// unknown, never negative) and its columns in declaration order.
type TableDescriptor struct {
	Name     string             `json:"table_name"`
	RowCount int64              `json:"row_count"`
	Columns  []ColumnDescriptor `json:"columns"`
	Comment  *string            `json:"comment,omitempty"`
}

const (
	placeholderColumnName = "column information unavailable"
	placeholderColumnType = "placeholder"
)

// PlaceholderColumns is the degraded single-column schema returned when
// a backend exposes no column introspection, so that callers always
// receive a renderable descriptor instead of an error.
func PlaceholderColumns() []ColumnDescriptor {
	comment := "the connected backend does not expose column introspection"

	return []ColumnDescriptor{
		{
			Name:         placeholderColumnName,
			DeclaredType: placeholderColumnType,
			Nullable:     true,
			Comment:      &comment,
		},
	}
}

// IsPlaceholder reports whether the descriptor carries the degraded
// synthetic schema rather than introspected columns.
func (d TableDescriptor) IsPlaceholder() bool {
	return len(d.Columns) == 1 && d.Columns[0].DeclaredType == placeholderColumnType
}
