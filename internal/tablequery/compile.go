package tablequery

import (
	"strings"
)

const defaultLimit = 10

// Compiler turns snapshots into query descriptors for one view.
type Compiler struct {
	FieldTypes FieldTypes
	// SortAliases redirects sorting on a synthetic column to a real one.
	SortAliases map[string]string
	Converter   Converter
}

// Compile compiles snap with the given field types and no sort aliases.
func Compile(snap Snapshot, types FieldTypes) QueryDescriptor {
	return Compiler{FieldTypes: types}.Compile(snap)
}

// Compile builds the descriptor for snap. It never fails: inert filters are
// skipped and malformed values are degraded by the Converter.
func (c Compiler) Compile(snap Snapshot) QueryDescriptor {
	q := QueryDescriptor{
		Page:          1,
		Limit:         defaultLimit,
		SortField:     c.sortField(snap.SortField),
		SortDirection: sortDirection(snap.SortOrder),
		Filters:       EncodePredicates(c.Predicates(snap)),
	}
	if snap.PageIndex > 0 {
		q.Page = snap.PageIndex + 1
	}
	if snap.PageSize > 0 {
		q.Limit = snap.PageSize
	}
	return q
}

// Predicates returns the normalized filter conditions of snap in filter order.
// The result is never nil.
func (c Compiler) Predicates(snap Snapshot) []Predicate {
	preds := make([]Predicate, 0, len(snap.Filters))
	for _, e := range snap.Filters {
		switch spec := e.Spec.(type) {
		case SimpleFilter:
			preds = c.appendSimple(preds, e.Field, spec, snap.GlobalFilterFields)
		case *SimpleFilter:
			if spec != nil {
				preds = c.appendSimple(preds, e.Field, *spec, snap.GlobalFilterFields)
			}
		case ConstraintFilter:
			preds = c.appendConstraints(preds, e.Field, spec)
		case *ConstraintFilter:
			if spec != nil {
				preds = c.appendConstraints(preds, e.Field, *spec)
			}
		}
	}
	return preds
}

func (c Compiler) appendSimple(preds []Predicate, field string, spec SimpleFilter, globals []string) []Predicate {
	if !hasValue(spec.Value) || spec.MatchMode == "" {
		return preds
	}
	if field != GlobalField {
		return append(preds, Predicate{
			Field:     field,
			Value:     c.Converter.Convert(c.FieldTypes.Lookup(field), spec.Value),
			Operator:  operatorToken(""),
			MatchMode: ToUpperSnake(string(spec.MatchMode)),
		})
	}
	// global search is a disjunction across the listed columns
	for _, target := range globals {
		t := c.FieldTypes.Lookup(target)
		mode := spec.MatchMode
		if t == TypeNumber || t == TypeBoolean {
			mode = MatchEquals
		}
		preds = append(preds, Predicate{
			Field:     target,
			Value:     c.Converter.Convert(t, spec.Value),
			Operator:  operatorToken(OperatorOr),
			MatchMode: ToUpperSnake(string(mode)),
		})
	}
	return preds
}

func (c Compiler) appendConstraints(preds []Predicate, field string, spec ConstraintFilter) []Predicate {
	t := c.FieldTypes.Lookup(field)
	op := operatorToken(spec.Operator)
	for _, con := range spec.Constraints {
		if !hasValue(con.Value) || con.MatchMode == "" {
			continue
		}
		preds = append(preds, Predicate{
			Field:     field,
			Value:     c.Converter.Convert(t, con.Value),
			Operator:  op,
			MatchMode: ToUpperSnake(string(con.MatchMode)),
		})
	}
	return preds
}

func (c Compiler) sortField(field string) *string {
	if alias, ok := c.SortAliases[field]; ok {
		field = alias
	}
	if field == "" {
		return nil
	}
	return &field
}

func sortDirection(order int) *SortDirection {
	var d SortDirection
	switch order {
	case 1:
		d = SortAsc
	case -1:
		d = SortDesc
	default:
		return nil
	}
	return &d
}

func operatorToken(op Operator) string {
	if op == "" {
		op = OperatorAnd
	}
	return strings.ToUpper(string(op))
}

func hasValue(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}
