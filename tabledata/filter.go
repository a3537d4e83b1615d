package tabledata

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterOp identifies a filter comparison operator.
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpGt       FilterOp = "gt"
	OpGte      FilterOp = "gte"
	OpLt       FilterOp = "lt"
	OpLte      FilterOp = "lte"
	OpContains FilterOp = "contains"
	OpIn       FilterOp = "in"
)

const (
	filterParamPrefix = "filter_"
	filterOpSeparator = "__"
	inListSeparator   = ","
)

// FilterPredicate is one typed filter condition. Value holds a typed
// scalar (int64, float64, bool or string), or a []any of typed scalars
// when Op is OpIn.
type FilterPredicate struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"op"`
	Value any      `json:"value"`
}

// supportedFilterOps is the closed operator set of the wire grammar.
var supportedFilterOps = map[FilterOp]struct{}{
	OpEq:       {},
	OpGt:       {},
	OpGte:      {},
	OpLt:       {},
	OpLte:      {},
	OpContains: {},
	OpIn:       {},
}

// ParseFilterParams parses flat query parameters into filter predicates.
//
// Only keys with a "filter_" prefix are considered, following the
// filter_<field> (implicit eq) or filter_<field>__<op> grammar.
// Unsupported operator tokens silently fall back to eq; this leniency
// is a contract, not an accident. Values are type-guessed (int, float,
// bool, string); for the "in" operator the raw value is split on
// commas, each segment trimmed and independently guessed, with empty
// segments dropped.
//
// Duplicate predicates for the same field are preserved, repeated
// values for one key in their given order and distinct keys in sorted
// order so that parsing is deterministic.
func ParseFilterParams(params url.Values) []FilterPredicate {
	keys := make([]string, 0, len(params))
	for key := range params {
		if strings.HasPrefix(key, filterParamPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	filters := make([]FilterPredicate, 0, len(keys))

	for _, key := range keys {
		field, op := splitFilterKey(key)
		if field == "" {
			continue
		}

		for _, raw := range params[key] {
			filters = append(filters, FilterPredicate{
				Field: field,
				Op:    op,
				Value: filterValue(op, raw),
			})
		}
	}

	return filters
}

func splitFilterKey(key string) (field string, op FilterOp) {
	rest := strings.TrimPrefix(key, filterParamPrefix)

	field, opToken, found := strings.Cut(rest, filterOpSeparator)
	if !found {
		return field, OpEq
	}

	op = FilterOp(opToken)
	if _, supported := supportedFilterOps[op]; !supported {
		op = OpEq
	}

	return field, op
}

func filterValue(op FilterOp, raw string) any {
	if op != OpIn {
		return GuessTyped(raw)
	}

	segments := strings.Split(raw, inListSeparator)
	values := make([]any, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		values = append(values, GuessTyped(segment))
	}

	return values
}

// GuessTyped coerces a raw string to the first matching scalar type,
// trying integer, then float, then boolean, else keeping the string.
func GuessTyped(raw string) any {
	if raw == "" {
		return raw
	}

	if intValue, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return intValue
	}

	if floatValue, err := strconv.ParseFloat(raw, 64); err == nil {
		return floatValue
	}

	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}

	return raw
}
