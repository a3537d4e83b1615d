package queryengine

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go9sky/tuckview/tabledata"
)

// applyFilters keeps the rows matching the conjunction of all
// predicates. A row missing the filtered field fails the predicate, and
// a type-coercion failure on a comparison operator fails the row; both
// are recovered locally and never abort the page.
func applyFilters(rows []map[string]any, filters []tabledata.FilterPredicate) []map[string]any {
	if len(filters) == 0 || len(rows) == 0 {
		return rows
	}

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if rowMatches(row, filters) {
			filtered = append(filtered, row)
		}
	}

	return filtered
}

func rowMatches(row map[string]any, filters []tabledata.FilterPredicate) bool {
	for _, filter := range filters {
		value, present := row[filter.Field]
		if !present {
			return false
		}

		if !predicateMatches(value, filter) {
			return false
		}
	}

	return true
}

func predicateMatches(value any, filter tabledata.FilterPredicate) bool {
	switch filter.Op {
	case tabledata.OpGt, tabledata.OpGte, tabledata.OpLt, tabledata.OpLte:
		return compareOrdered(value, filter.Value, filter.Op)

	case tabledata.OpContains:
		haystack := strings.ToLower(fmt.Sprint(value))
		needle := strings.ToLower(fmt.Sprint(filter.Value))

		return strings.Contains(haystack, needle)

	case tabledata.OpIn:
		list, isList := filter.Value.([]any)
		if !isList {
			return looseEqual(value, filter.Value)
		}
		for _, candidate := range list {
			if looseEqual(value, candidate) {
				return true
			}
		}

		return false

	case tabledata.OpEq:
		return looseEqual(value, filter.Value)

	default: // the parser never emits unknown operators; keep the row
		return true
	}
}

// compareOrdered compares two values numerically. Either side failing
// float coercion makes the predicate fail, matching the
// treat-as-non-matching error discipline.
func compareOrdered(rowValue any, filterValue any, op tabledata.FilterOp) bool {
	left, leftOK := coerceFloat(rowValue)
	right, rightOK := coerceFloat(filterValue)
	if !leftOK || !rightOK {
		return false
	}

	switch op {
	case tabledata.OpGt:
		return left > right
	case tabledata.OpGte:
		return left >= right
	case tabledata.OpLt:
		return left < right
	case tabledata.OpLte:
		return left <= right
	default:
		return false
	}
}

// coerceFloat converts numeric types, bools and numeric strings to
// float64 for comparison operators.
func coerceFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case bool:
		if tv {
			return 1, true
		}
		return 0, true
	case int:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case float32:
		return float64(tv), true
	case float64:
		return tv, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(tv), 64)
		return parsed, err == nil
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(tv)), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

// numericValue is the strict variant used for equality and sorting:
// actual numeric types only, no string coercion.
func numericValue(v any) (float64, bool) {
	switch tv := v.(type) {
	case int:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case float32:
		return float64(tv), true
	case float64:
		return tv, true
	default:
		return 0, false
	}
}

// looseEqual compares across numeric widths (5 == 5.0) but never across
// kinds: strings only equal strings, bools only equal bools.
func looseEqual(a any, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	aBool, aIsBool := a.(bool)
	bBool, bIsBool := b.(bool)
	if aIsBool || bIsBool {
		return aIsBool && bIsBool && aBool == bBool
	}

	if aNum, aOK := numericValue(a); aOK {
		bNum, bOK := numericValue(b)
		return bOK && aNum == bNum
	}

	if aStr, aOK := a.(string); aOK {
		bStr, bOK := b.(string)
		return bOK && aStr == bStr
	}

	return reflect.DeepEqual(a, b)
}

// sortRows stable-sorts rows by the given field. When any row lacks the
// field, or the keys are not of one comparable kind, the original order
// is preserved rather than failing the request.
func sortRows(rows []map[string]any, field string, descending bool) []map[string]any {
	keys, comparable := extractSortKeys(rows, field)
	if !comparable {
		return rows
	}

	sorted := make([]map[string]any, len(rows))
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		if descending {
			return keys[order[j]].less(keys[order[i]])
		}
		return keys[order[i]].less(keys[order[j]])
	})

	for position, index := range order {
		sorted[position] = rows[index]
	}

	return sorted
}

type sortKey struct {
	num     float64
	str     string
	numeric bool
}

func (k sortKey) less(other sortKey) bool {
	if k.numeric {
		return k.num < other.num
	}

	return k.str < other.str
}

func extractSortKeys(rows []map[string]any, field string) ([]sortKey, bool) {
	keys := make([]sortKey, 0, len(rows))
	sawNumeric := false
	sawString := false

	for _, row := range rows {
		value, present := row[field]
		if !present {
			return nil, false
		}

		if num, isNum := numericValue(value); isNum {
			sawNumeric = true
			keys = append(keys, sortKey{num: num, numeric: true})
			continue
		}

		str, isStr := value.(string)
		if !isStr {
			return nil, false
		}
		sawString = true
		keys = append(keys, sortKey{str: str})
	}

	if sawNumeric && sawString {
		return nil, false
	}

	return keys, true
}
