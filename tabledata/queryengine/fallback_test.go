package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go9sky/tuckview/tabledata"
)

func Test_applyFilters_ConjunctionSemantics(t *testing.T) {
	rows := []map[string]any{
		{"name": "alice", "age": 34},
		{"name": "bob", "age": 28},
		{"name": "carol", "age": 41},
	}
	filters := []tabledata.FilterPredicate{
		{Field: "age", Op: tabledata.OpGt, Value: int64(30)},
		{Field: "name", Op: tabledata.OpContains, Value: "a"},
	}

	filtered := applyFilters(rows, filters)

	require.Len(t, filtered, 2)
	assert.Equal(t, "alice", filtered[0]["name"])
	assert.Equal(t, "carol", filtered[1]["name"])
}

func Test_applyFilters_MissingFieldFailsTheRow(t *testing.T) {
	rows := []map[string]any{
		{"name": "alice", "age": 34},
		{"name": "bob"},
	}
	filters := []tabledata.FilterPredicate{
		{Field: "age", Op: tabledata.OpGte, Value: int64(0)},
	}

	filtered := applyFilters(rows, filters)

	require.Len(t, filtered, 1)
	assert.Equal(t, "alice", filtered[0]["name"])
}

func Test_predicateMatches_OrderedOperators(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		op       tabledata.FilterOp
		filter   any
		expected bool
	}{
		{name: "gt_int_matches", value: 10, op: tabledata.OpGt, filter: int64(5), expected: true},
		{name: "gt_equal_does_not_match", value: 5, op: tabledata.OpGt, filter: int64(5), expected: false},
		{name: "gte_equal_matches", value: 5, op: tabledata.OpGte, filter: int64(5), expected: true},
		{name: "lt_float_matches", value: 2.5, op: tabledata.OpLt, filter: 3.0, expected: true},
		{name: "lte_mixed_widths_match", value: int64(3), op: tabledata.OpLte, filter: 3.0, expected: true},
		{name: "numeric_string_row_value_coerces", value: "12", op: tabledata.OpGt, filter: int64(5), expected: true},
		{name: "bool_row_value_coerces_to_one", value: true, op: tabledata.OpGte, filter: int64(1), expected: true},
		{name: "non_numeric_row_value_fails", value: "abc", op: tabledata.OpGt, filter: int64(5), expected: false},
		{name: "non_numeric_filter_value_fails", value: 10, op: tabledata.OpGt, filter: "abc", expected: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			matched := predicateMatches(testCase.value, tabledata.FilterPredicate{
				Field: "x",
				Op:    testCase.op,
				Value: testCase.filter,
			})

			assert.Equal(t, testCase.expected, matched)
		})
	}
}

func Test_predicateMatches_ContainsIsCaseInsensitiveSubstring(t *testing.T) {
	filter := tabledata.FilterPredicate{Field: "name", Op: tabledata.OpContains, Value: "LI"}

	assert.True(t, predicateMatches("Alice", filter))
	assert.False(t, predicateMatches("Bob", filter))
}

func Test_predicateMatches_ContainsStringifiesNonStringValues(t *testing.T) {
	filter := tabledata.FilterPredicate{Field: "id", Op: tabledata.OpContains, Value: int64(23)}

	assert.True(t, predicateMatches(1234, filter))
}

func Test_predicateMatches_InMembership(t *testing.T) {
	filter := tabledata.FilterPredicate{
		Field: "id",
		Op:    tabledata.OpIn,
		Value: []any{int64(1), int64(2), int64(3)},
	}

	assert.True(t, predicateMatches(2, filter))
	assert.True(t, predicateMatches(2.0, filter))
	assert.False(t, predicateMatches(4, filter))
	assert.False(t, predicateMatches("2", filter))
}

func Test_looseEqual_CrossesWidthsButNotKinds(t *testing.T) {
	testCases := []struct {
		name     string
		a        any
		b        any
		expected bool
	}{
		{name: "int_equals_float_same_value", a: int64(5), b: 5.0, expected: true},
		{name: "int_widths_equal", a: 5, b: int64(5), expected: true},
		{name: "numeric_string_does_not_equal_number", a: "5", b: int64(5), expected: false},
		{name: "bool_does_not_equal_one", a: true, b: int64(1), expected: false},
		{name: "bools_equal", a: true, b: true, expected: true},
		{name: "strings_equal", a: "x", b: "x", expected: true},
		{name: "nil_equals_nil", a: nil, b: nil, expected: true},
		{name: "nil_does_not_equal_zero", a: nil, b: int64(0), expected: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, looseEqual(testCase.a, testCase.b))
		})
	}
}

func Test_sortRows_SortsNumericAndStringKeys(t *testing.T) {
	rows := []map[string]any{
		{"name": "carol", "age": 41},
		{"name": "alice", "age": 34},
		{"name": "bob", "age": 28},
	}

	byAge := sortRows(rows, "age", false)
	byNameDesc := sortRows(rows, "name", true)

	assert.Equal(t, "bob", byAge[0]["name"])
	assert.Equal(t, "alice", byAge[1]["name"])
	assert.Equal(t, "carol", byAge[2]["name"])

	assert.Equal(t, "carol", byNameDesc[0]["name"])
	assert.Equal(t, "bob", byNameDesc[1]["name"])
	assert.Equal(t, "alice", byNameDesc[2]["name"])
}

func Test_sortRows_IsStable(t *testing.T) {
	rows := []map[string]any{
		{"id": 1, "group": "b"},
		{"id": 2, "group": "a"},
		{"id": 3, "group": "a"},
		{"id": 4, "group": "b"},
	}

	sorted := sortRows(rows, "group", false)

	assert.Equal(t, 2, sorted[0]["id"])
	assert.Equal(t, 3, sorted[1]["id"])
	assert.Equal(t, 1, sorted[2]["id"])
	assert.Equal(t, 4, sorted[3]["id"])
}

func Test_sortRows_PreservesOrderOnMissingFieldOrMixedKinds(t *testing.T) {
	missingField := []map[string]any{
		{"id": 2, "age": 30},
		{"id": 1},
	}
	mixedKinds := []map[string]any{
		{"id": 2, "key": "b"},
		{"id": 1, "key": 7},
	}

	assert.Equal(t, missingField, sortRows(missingField, "age", false))
	assert.Equal(t, mixedKinds, sortRows(mixedKinds, "key", false))
}

func Test_sortRows_DoesNotMutateInput(t *testing.T) {
	rows := []map[string]any{
		{"id": 2},
		{"id": 1},
	}

	_ = sortRows(rows, "id", false)

	assert.Equal(t, 2, rows[0]["id"])
	assert.Equal(t, 1, rows[1]["id"])
}

func Test_slicePage_Bounds(t *testing.T) {
	rows := []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}}

	assert.Len(t, slicePage(rows, 0, 2), 2)
	assert.Len(t, slicePage(rows, 2, 2), 1)
	assert.Empty(t, slicePage(rows, 3, 2))
	assert.Empty(t, slicePage(rows, 100, 2))
}
