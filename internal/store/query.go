package store

import (
	"fmt"

	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/tablequery"

	"github.com/Masterminds/squirrel"
)

// MaxLimit caps the page size a client may request.
const MaxLimit = 1000

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// selectColumns aliases every column to its UI field name.
func selectColumns(res *resource.Resource) []string {
	cols := make([]string, 0, len(res.Columns))
	for _, c := range res.Columns {
		cols = append(cols, fmt.Sprintf(`%s AS "%s"`, columnExpr(c), c.Field))
	}
	return cols
}

func from(res *resource.Resource) string {
	return res.Table + " AS main"
}

// BuildListQuery builds the page query for q.
func BuildListQuery(res *resource.Resource, q tablequery.QueryDescriptor, preds []tablequery.Predicate, conv tablequery.Converter) squirrel.SelectBuilder {
	sb := psql.Select(selectColumns(res)...).From(from(res))
	if where := BuildWhere(res, preds, conv); where != nil {
		sb = sb.Where(where)
	}
	for _, o := range orderBy(res, q) {
		sb = sb.OrderBy(o)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	sb = sb.Limit(uint64(limit))
	if offset := (page - 1) * limit; offset > 0 {
		sb = sb.Offset(uint64(offset))
	}
	return sb
}

// BuildCountQuery counts the rows matching preds.
func BuildCountQuery(res *resource.Resource, preds []tablequery.Predicate, conv tablequery.Converter) squirrel.SelectBuilder {
	sb := psql.Select("COUNT(*)").From(from(res))
	if where := BuildWhere(res, preds, conv); where != nil {
		sb = sb.Where(where)
	}
	return sb
}

// orderBy falls back to the resource default sort when the requested field is
// unknown or not sortable, and appends the primary key as a tie-breaker.
func orderBy(res *resource.Resource, q tablequery.QueryDescriptor) []string {
	field := res.DefaultSort
	if q.SortField != nil {
		if c, ok := res.Column(*q.SortField); ok && (c.Sortable || c.Field == res.PrimaryKey) {
			field = c.Field
		}
	}
	dir := tablequery.SortAsc
	if q.SortDirection != nil && *q.SortDirection == tablequery.SortDesc {
		dir = tablequery.SortDesc
	}

	col, _ := res.Column(field)
	order := []string{fmt.Sprintf("%s %s", columnExpr(col), dir)}
	if field != res.PrimaryKey {
		pk, _ := res.Column(res.PrimaryKey)
		order = append(order, columnExpr(pk)+" ASC")
	}
	return order
}
