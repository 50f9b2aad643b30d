// Package tablequery turns the paging, sorting and filtering state of a data
// grid into the query descriptor understood by the record service.
//
// The flow is BuildSnapshot -> Compile -> QueryDescriptor. Both steps are pure:
// no I/O, no shared state, and Compile never fails on malformed filter values.
package tablequery

// GlobalField is the filter key of the free-text search spanning several columns.
const GlobalField = "global"

// FieldType is the declared data type of a filterable field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
)

// FieldTypes maps a field name to its declared type.
// Fields without an entry are treated as TypeString.
type FieldTypes map[string]FieldType

// Lookup returns the declared type of field, TypeString when unknown.
func (ft FieldTypes) Lookup(field string) FieldType {
	if t, ok := ft[field]; ok && t != "" {
		return t
	}
	return TypeString
}

// MatchMode is a grid filter match mode in its camelCase form.
type MatchMode string

const (
	MatchStartsWith         MatchMode = "startsWith"
	MatchContains           MatchMode = "contains"
	MatchNotContains        MatchMode = "notContains"
	MatchEndsWith           MatchMode = "endsWith"
	MatchEquals             MatchMode = "equals"
	MatchNotEquals          MatchMode = "notEquals"
	MatchIn                 MatchMode = "in"
	MatchLessThan           MatchMode = "lt"
	MatchLessThanOrEqual    MatchMode = "lte"
	MatchGreaterThan        MatchMode = "gt"
	MatchGreaterThanOrEqual MatchMode = "gte"
	MatchBetween            MatchMode = "between"
	MatchDateIs             MatchMode = "dateIs"
	MatchDateIsNot          MatchMode = "dateIsNot"
	MatchDateBefore         MatchMode = "dateBefore"
	MatchDateAfter          MatchMode = "dateAfter"
)

// Operator joins the constraints of a multi-constraint filter.
type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// FilterSpec is either a SimpleFilter or a ConstraintFilter.
type FilterSpec interface {
	isFilterSpec()
}

// SimpleFilter holds a single value and match mode.
// DataType mirrors the grid filter definition; coercion is driven by FieldTypes.
type SimpleFilter struct {
	Value     any
	MatchMode MatchMode
	DataType  FieldType
}

// Constraint is one condition of a ConstraintFilter.
type Constraint struct {
	Value     any
	MatchMode MatchMode
}

// ConstraintFilter holds several conditions joined by Operator.
type ConstraintFilter struct {
	Operator    Operator
	Constraints []Constraint
}

func (SimpleFilter) isFilterSpec()     {}
func (ConstraintFilter) isFilterSpec() {}

// FilterEntry binds a FilterSpec to its field name.
type FilterEntry struct {
	Field string
	Spec  FilterSpec
}

// Filters is the filter state of a grid in insertion order.
type Filters []FilterEntry

// Get returns the spec stored for field.
func (f Filters) Get(field string) (FilterSpec, bool) {
	for _, e := range f {
		if e.Field == field {
			return e.Spec, true
		}
	}
	return nil, false
}

// Set replaces the spec of field in place or appends a new entry.
func (f Filters) Set(field string, spec FilterSpec) Filters {
	for i := range f {
		if f[i].Field == field {
			f[i].Spec = spec
			return f
		}
	}
	return append(f, FilterEntry{Field: field, Spec: spec})
}

// Clone returns a deep copy; constraint slices are not shared.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for i, e := range f {
		out[i].Field = e.Field
		switch spec := e.Spec.(type) {
		case ConstraintFilter:
			spec.Constraints = append([]Constraint(nil), spec.Constraints...)
			out[i].Spec = spec
		case *ConstraintFilter:
			if spec == nil {
				continue
			}
			cp := *spec
			cp.Constraints = append([]Constraint(nil), spec.Constraints...)
			out[i].Spec = &cp
		case *SimpleFilter:
			if spec == nil {
				continue
			}
			cp := *spec
			out[i].Spec = &cp
		default:
			out[i].Spec = e.Spec
		}
	}
	return out
}

// SortMeta is one entry of a multi-column sort.
type SortMeta struct {
	Field string `json:"field"`
	Order int    `json:"order"`
}

// Snapshot is the immutable paging/sorting/filtering state of one interaction.
type Snapshot struct {
	PageIndex          int
	PageSize           int
	Filters            Filters
	SortField          string
	SortOrder          int
	MultiSortMeta      []SortMeta
	GlobalFilterFields []string
}

// Predicate is one normalized filter condition sent to the record service.
type Predicate struct {
	Field     string `json:"field"`
	Value     any    `json:"value"`
	Operator  string `json:"operator"`
	MatchMode string `json:"match_mode"`
}

// SortDirection is the wire form of a sort order.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)
