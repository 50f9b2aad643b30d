package tablequery

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var ErrInvalidJSON = errors.New("tablequery: invalid JSON")

// ParseEvent reads a grid lazy-load event:
//
//	{"page":0,"rows":10,"sortField":"name","sortOrder":1,"filters":{...},"globalFilterFields":[...]}
//
// Filter keys keep their document order.
func ParseEvent(data []byte) (TableEvent, error) {
	var ev TableEvent
	if !gjson.ValidBytes(data) {
		return ev, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return ev, fmt.Errorf("%w: event must be an object", ErrInvalidJSON)
	}

	ev.Page = int(root.Get("page").Int())
	ev.Rows = int(root.Get("rows").Int())
	ev.SortField = root.Get("sortField").String()
	ev.SortOrder = int(root.Get("sortOrder").Int())

	if f := root.Get("filters"); f.Exists() && f.Type != gjson.Null {
		filters, err := parseFilters(f)
		if err != nil {
			return ev, err
		}
		ev.Filters = filters
	}
	if g := root.Get("globalFilterFields"); g.IsArray() {
		ev.GlobalFilterFields = make([]string, 0, len(g.Array()))
		for _, name := range g.Array() {
			ev.GlobalFilterFields = append(ev.GlobalFilterFields, name.String())
		}
	}
	if m := root.Get("multiSortMeta"); m.IsArray() {
		for _, item := range m.Array() {
			ev.MultiSortMeta = append(ev.MultiSortMeta, SortMeta{
				Field: item.Get("field").String(),
				Order: int(item.Get("order").Int()),
			})
		}
	}
	return ev, nil
}

// ParseFilters reads a grid filter object such as
//
//	{"global":{"value":"x","matchMode":"contains"},
//	 "name":{"operator":"and","constraints":[{"value":"a","matchMode":"startsWith"}]}}
func ParseFilters(data []byte) (Filters, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return parseFilters(gjson.ParseBytes(data))
}

func parseFilters(obj gjson.Result) (Filters, error) {
	if !obj.IsObject() {
		return nil, fmt.Errorf("%w: filters must be an object", ErrInvalidJSON)
	}
	filters := Filters{}
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			err = fmt.Errorf("%w: filter %q must be an object", ErrInvalidJSON, key.String())
			return false
		}
		filters = append(filters, FilterEntry{Field: key.String(), Spec: parseSpec(value)})
		return true
	})
	if err != nil {
		return nil, err
	}
	return filters, nil
}

func parseSpec(value gjson.Result) FilterSpec {
	if cons := value.Get("constraints"); cons.IsArray() {
		spec := ConstraintFilter{Operator: Operator(value.Get("operator").String())}
		for _, c := range cons.Array() {
			spec.Constraints = append(spec.Constraints, Constraint{
				Value:     c.Get("value").Value(),
				MatchMode: MatchMode(c.Get("matchMode").String()),
			})
		}
		return spec
	}
	return SimpleFilter{
		Value:     value.Get("value").Value(),
		MatchMode: MatchMode(value.Get("matchMode").String()),
		DataType:  FieldType(value.Get("dataType").String()),
	}
}
