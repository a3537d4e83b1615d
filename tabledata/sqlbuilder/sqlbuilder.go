// Package sqlbuilder builds the windowed SELECT and COUNT statements
// shared by the SQL-speaking backends. It is the only place filter
// predicates are translated into SQL, so dialect differences stay in
// one narrow seam.
package sqlbuilder

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect import

	"github.com/go9sky/tuckview/tabledata"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"

	aliasTotal = "total"
)

var ErrBuildingQueryFailed = errors.New("failed to build sql query")

// BuildWindowSelect builds the page SELECT and the matching COUNT
// statement for one windowed query. Both carry the same WHERE clause so
// that total always refers to the filtered row set.
func BuildWindowSelect(dialect string, table string, window tabledata.Window) (selectSQL string, countSQL string, err error) {
	builder := goqu.Dialect(dialect)

	where := predicateExpressions(dialect, window.Filters)

	selectStmt := builder.From(goqu.T(table)).Where(where...)

	if window.SortField != "" {
		if window.SortDescending {
			selectStmt = selectStmt.Order(goqu.I(window.SortField).Desc())
		} else {
			selectStmt = selectStmt.Order(goqu.I(window.SortField).Asc())
		}
	}

	selectStmt = selectStmt.
		Limit(uint(window.Limit)).
		Offset(uint(window.Offset))

	selectSQL, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	countStmt := builder.From(goqu.T(table)).
		Select(goqu.COUNT(goqu.Star()).As(aliasTotal)).
		Where(where...)

	countSQL, _, toSQLErr = countStmt.ToSQL()
	if toSQLErr != nil {
		return "", "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return selectSQL, countSQL, nil
}

func predicateExpressions(dialect string, filters []tabledata.FilterPredicate) []goqu.Expression {
	expressions := make([]goqu.Expression, 0, len(filters))
	for _, filter := range filters {
		expressions = append(expressions, predicateExpression(dialect, filter))
	}

	return expressions
}

func predicateExpression(dialect string, filter tabledata.FilterPredicate) goqu.Expression {
	column := goqu.C(filter.Field)

	switch filter.Op {
	case tabledata.OpGt:
		return column.Gt(filter.Value)

	case tabledata.OpGte:
		return column.Gte(filter.Value)

	case tabledata.OpLt:
		return column.Lt(filter.Value)

	case tabledata.OpLte:
		return column.Lte(filter.Value)

	case tabledata.OpContains:
		pattern := "%" + fmt.Sprint(filter.Value) + "%"
		if dialect == DialectPostgres {
			return column.ILike(pattern)
		}
		// sqlite LIKE is case-insensitive for ASCII already
		return column.Like(pattern)

	case tabledata.OpIn:
		if list, ok := filter.Value.([]any); ok {
			return column.In(list...)
		}

		return column.Eq(filter.Value)

	case tabledata.OpEq:
		return column.Eq(filter.Value)

	default: // unknown operators degrade to equality, same as the parser
		return column.Eq(filter.Value)
	}
}
