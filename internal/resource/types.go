package resource

import (
	"GatewayAdmin/internal/tablequery"
)

// ColumnType is the storage type of a column as declared in resource YAML.
type ColumnType string

const (
	ColumnString      ColumnType = "string"
	ColumnNumber      ColumnType = "number"
	ColumnBoolean     ColumnType = "boolean"
	ColumnDate        ColumnType = "date"
	ColumnStringArray ColumnType = "string_array"
)

// Resource describes one table exposed through the record service
// together with the grid defaults of its admin view.
type Resource struct {
	Name               string            `yaml:"-"`
	Table              string            `yaml:"table"`
	Path               string            `yaml:"path"`
	PrimaryKey         string            `yaml:"primary_key"`
	DefaultSort        string            `yaml:"default_sort"`
	Columns            Columns           `yaml:"columns"`
	GlobalFilterFields []string          `yaml:"global_filter_fields"`
	SortAliases        map[string]string `yaml:"sort_aliases"`
	ExcludeOnEdit      []string          `yaml:"exclude_on_edit"`
	Filters            FilterDefs        `yaml:"filters"`
	// Cascades names the resources whose rows are removed with this one's.
	Cascades []string `yaml:"cascades"`
}

// Column maps a UI field name onto a table column.
type Column struct {
	Field    string     `yaml:"-"`
	Column   string     `yaml:"column"`
	Type     ColumnType `yaml:"type"`
	Sortable bool       `yaml:"sortable"`
	Readonly bool       `yaml:"readonly"`
}

// Columns keeps the declaration order of the YAML mapping.
type Columns []Column

// FilterDefs is the default filter state of the view, in declaration order.
type FilterDefs tablequery.Filters

// Column returns the column bound to field.
func (r *Resource) Column(field string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// FieldTypes derives the compiler type map from the column declarations.
func (r *Resource) FieldTypes() tablequery.FieldTypes {
	types := make(tablequery.FieldTypes, len(r.Columns))
	for _, c := range r.Columns {
		types[c.Field] = c.Type.FieldType()
	}
	return types
}

// DefaultFilters returns a fresh copy of the view's initial filter state.
func (r *Resource) DefaultFilters() tablequery.Filters {
	return tablequery.Filters(r.Filters).Clone()
}

// Defaults returns the snapshot defaults of the view.
func (r *Resource) Defaults() tablequery.Defaults {
	return tablequery.Defaults{
		Limit:              10,
		Filters:            r.DefaultFilters(),
		GlobalFilterFields: append([]string(nil), r.GlobalFilterFields...),
	}
}

// Compiler returns a query compiler configured for this view.
func (r *Resource) Compiler(conv tablequery.Converter) tablequery.Compiler {
	return tablequery.Compiler{
		FieldTypes:  r.FieldTypes(),
		SortAliases: r.SortAliases,
		Converter:   conv,
	}
}

// StripForEdit copies record without the fields the edit form must not send.
func (r *Resource) StripForEdit(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	for _, f := range r.ExcludeOnEdit {
		delete(out, f)
	}
	return out
}

// FieldType maps a storage type onto the compiler's coercion type.
func (t ColumnType) FieldType() tablequery.FieldType {
	switch t {
	case ColumnNumber:
		return tablequery.TypeNumber
	case ColumnBoolean:
		return tablequery.TypeBoolean
	case ColumnDate:
		return tablequery.TypeDate
	}
	return tablequery.TypeString
}
