package store

import (
	"fmt"
	"strconv"
	"strings"

	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/tablequery"

	"github.com/Masterminds/squirrel"
)

// BuildWhere combines predicates into one condition. AND predicates are
// conjoined; every OR predicate joins a single disjunction that is ANDed with
// the rest. Predicates on unknown fields or with unsupported match modes are
// skipped. Date values are read with conv. Returns nil when nothing applies.
func BuildWhere(res *resource.Resource, preds []tablequery.Predicate, conv tablequery.Converter) squirrel.Sqlizer {
	var ands, ors []squirrel.Sqlizer
	for _, p := range preds {
		col, ok := res.Column(p.Field)
		if !ok {
			logger.Warn("filter_unknown_field", map[string]any{
				"resource": res.Name,
				"field":    p.Field,
			})
			continue
		}
		cond, err := predicateSQL(col, p, conv)
		if err != nil {
			logger.Warn("filter_skipped", map[string]any{
				"resource":   res.Name,
				"field":      p.Field,
				"match_mode": p.MatchMode,
				"error":      err.Error(),
			})
			continue
		}
		if strings.EqualFold(p.Operator, "OR") {
			ors = append(ors, cond)
		} else {
			ands = append(ands, cond)
		}
	}
	if len(ors) == 1 {
		ands = append(ands, ors[0])
	} else if len(ors) > 1 {
		ands = append(ands, squirrel.Or(ors))
	}
	switch len(ands) {
	case 0:
		return nil
	case 1:
		return ands[0]
	}
	return squirrel.And(ands)
}

func columnExpr(col resource.Column) string {
	return "main." + col.Column
}

// numericExpr widens integer columns so fractional or out-of-range
// arguments compare instead of failing to encode.
func numericExpr(col resource.Column) string {
	return fmt.Sprintf("CAST(%s AS NUMERIC)", columnExpr(col))
}

var compareOps = map[string]string{"LT": "<", "LTE": "<=", "GT": ">", "GTE": ">="}

// textExpr is the expression text matching runs against.
func textExpr(col resource.Column) string {
	switch col.Type {
	case resource.ColumnStringArray:
		return fmt.Sprintf("array_to_string(%s, ',')", columnExpr(col))
	case resource.ColumnString:
		return columnExpr(col)
	}
	return fmt.Sprintf("CAST(%s AS TEXT)", columnExpr(col))
}

func predicateSQL(col resource.Column, p tablequery.Predicate, conv tablequery.Converter) (squirrel.Sqlizer, error) {
	expr := columnExpr(col)
	switch p.MatchMode {
	case "STARTS_WITH":
		return squirrel.ILike{textExpr(col): escapeLike(toText(p.Value)) + "%"}, nil
	case "ENDS_WITH":
		return squirrel.ILike{textExpr(col): "%" + escapeLike(toText(p.Value))}, nil
	case "CONTAINS":
		return squirrel.ILike{textExpr(col): "%" + escapeLike(toText(p.Value)) + "%"}, nil
	case "NOT_CONTAINS":
		return squirrel.NotILike{textExpr(col): "%" + escapeLike(toText(p.Value)) + "%"}, nil
	case "EQUALS":
		return equals(col, p.Value, conv), nil
	case "NOT_EQUALS":
		return not{equals(col, p.Value, conv)}, nil
	case "IN":
		items, ok := p.Value.([]any)
		if !ok || len(items) == 0 {
			return nil, fmt.Errorf("IN expects a non-empty list")
		}
		parts := make(squirrel.Or, 0, len(items))
		for _, it := range items {
			parts = append(parts, equals(col, it, conv))
		}
		return parts, nil
	case "LT", "LTE", "GT", "GTE":
		return compare(col, p.MatchMode, p.Value, conv)
	case "BETWEEN":
		items, ok := p.Value.([]any)
		if !ok || len(items) != 2 {
			return nil, fmt.Errorf("BETWEEN expects two values")
		}
		lo, err := compare(col, "GTE", items[0], conv)
		if err != nil {
			return nil, err
		}
		hi, err := compare(col, "LTE", items[1], conv)
		if err != nil {
			return nil, err
		}
		return squirrel.And{lo, hi}, nil
	case "DATE_IS", "DATE_IS_NOT":
		t, ok := conv.ParseDate(p.Value)
		if !ok {
			return nil, fmt.Errorf("%v is not a date", p.Value)
		}
		op := "="
		if p.MatchMode == "DATE_IS_NOT" {
			op = "<>"
		}
		return squirrel.Expr(fmt.Sprintf("CAST(%s AS DATE) %s CAST(? AS DATE)", expr, op), t), nil
	case "DATE_BEFORE":
		return compare(col, "LT", p.Value, conv)
	case "DATE_AFTER":
		return compare(col, "GT", p.Value, conv)
	}
	return nil, fmt.Errorf("unsupported match mode %q", p.MatchMode)
}

// equals compares natively when the value matches the column type and falls
// back to a case-insensitive text comparison otherwise.
func equals(col resource.Column, v any, conv tablequery.Converter) squirrel.Sqlizer {
	expr := columnExpr(col)
	switch col.Type {
	case resource.ColumnNumber:
		if n, ok := toNumber(v); ok {
			return squirrel.Expr(numericExpr(col)+" = ?", n)
		}
	case resource.ColumnBoolean:
		if b, ok := v.(bool); ok {
			return squirrel.Eq{expr: b}
		}
	case resource.ColumnDate:
		if t, ok := conv.ParseDate(v); ok {
			return squirrel.Eq{expr: t}
		}
	case resource.ColumnStringArray:
		return squirrel.Expr(fmt.Sprintf("LOWER(?) = ANY(SELECT LOWER(x) FROM unnest(%s) AS x)", expr), toText(v))
	}
	return squirrel.Expr(fmt.Sprintf("LOWER(%s) = LOWER(?)", textExpr(col)), toText(v))
}

func compare(col resource.Column, mode string, v any, conv tablequery.Converter) (squirrel.Sqlizer, error) {
	expr := columnExpr(col)
	switch col.Type {
	case resource.ColumnNumber:
		n, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		return squirrel.Expr(fmt.Sprintf("%s %s ?", numericExpr(col), compareOps[mode]), n), nil
	case resource.ColumnDate:
		t, ok := conv.ParseDate(v)
		if !ok {
			return nil, fmt.Errorf("%v is not a date", v)
		}
		return squirrel.Expr(fmt.Sprintf("%s %s ?", expr, compareOps[mode]), t), nil
	case resource.ColumnString:
		s := toText(v)
		switch mode {
		case "LT":
			return squirrel.Lt{expr: s}, nil
		case "LTE":
			return squirrel.LtOrEq{expr: s}, nil
		case "GT":
			return squirrel.Gt{expr: s}, nil
		default:
			return squirrel.GtOrEq{expr: s}, nil
		}
	}
	return nil, fmt.Errorf("%s is not comparable on %s columns", mode, col.Type)
}

type not struct {
	inner squirrel.Sqlizer
}

func (n not) ToSql() (string, []any, error) {
	sql, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
