package resource

import (
	"fmt"
	"strings"

	"GatewayAdmin/internal/tablequery"

	"gopkg.in/yaml.v3"
)

var allowedResourceKeys = map[string]bool{
	"table":                true,
	"path":                 true,
	"primary_key":          true,
	"default_sort":         true,
	"columns":              true,
	"global_filter_fields": true,
	"sort_aliases":         true,
	"exclude_on_edit":      true,
	"filters":              true,
	"cascades":             true,
}

var allowedColumnKeys = map[string]bool{
	"column":   true,
	"type":     true,
	"sortable": true,
	"readonly": true,
}

var allowedFilterKeys = map[string]bool{
	"value":       true,
	"match_mode":  true,
	"data_type":   true,
	"operator":    true,
	"constraints": true,
}

var allowedConstraintKeys = map[string]bool{
	"value":      true,
	"match_mode": true,
}

var allowedColumnTypes = map[string]bool{
	string(ColumnString):      true,
	string(ColumnNumber):      true,
	string(ColumnBoolean):     true,
	string(ColumnDate):        true,
	string(ColumnStringArray): true,
}

var allowedOperators = map[string]bool{
	string(tablequery.OperatorAnd): true,
	string(tablequery.OperatorOr):  true,
}

// validateYAMLNode rejects unknown keys before the document is decoded.
func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "resource"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "resource":
			allowedKeys = allowedResourceKeys
		case "column":
			allowedKeys = allowedColumnKeys
		case "filter":
			allowedKeys = allowedFilterKeys
		case "constraint":
			allowedKeys = allowedConstraintKeys
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			valNode := node.Content[i+1]

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("line %d: unknown key '%s' in %s", node.Content[i].Line, key, context)
			}
			if context == "column" && key == "type" && !allowedColumnTypes[valNode.Value] {
				return fmt.Errorf("line %d: unknown column type '%s'", valNode.Line, valNode.Value)
			}
			if context == "filter" && key == "operator" && !allowedOperators[strings.ToLower(valNode.Value)] {
				return fmt.Errorf("line %d: unknown filter operator '%s'", valNode.Line, valNode.Value)
			}

			var next string
			switch {
			case context == "resource" && key == "columns":
				next = "columns-map"
			case context == "columns-map":
				next = "column"
			case context == "resource" && key == "filters":
				next = "filters-map"
			case context == "filters-map":
				next = "filter"
			case context == "filter" && key == "constraints":
				next = "constraints-seq"
			case context == "filter" || context == "constraint":
				// values are free form
				continue
			default:
				next = "value"
			}
			if err := validateYAMLNode(valNode, next); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		item := context
		if context == "constraints-seq" {
			item = "constraint"
		}
		for _, child := range node.Content {
			if err := validateYAMLNode(child, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// validate checks cross references once the resource is decoded.
func (r *Resource) validate() error {
	if !validIdent(r.Table) {
		return fmt.Errorf("resource %s: invalid or missing table %q", r.Name, r.Table)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("resource %s: path must start with '/'", r.Name)
	}
	if len(r.Columns) == 0 {
		return fmt.Errorf("resource %s: no columns", r.Name)
	}
	seen := map[string]bool{}
	for _, c := range r.Columns {
		if !validIdent(c.Field) || !validIdent(c.Column) {
			return fmt.Errorf("resource %s: invalid column identifier %q -> %q", r.Name, c.Field, c.Column)
		}
		if seen[c.Field] {
			return fmt.Errorf("resource %s: duplicate column %q", r.Name, c.Field)
		}
		seen[c.Field] = true
	}
	if r.PrimaryKey == "" {
		r.PrimaryKey = "id"
	}
	if !seen[r.PrimaryKey] {
		return fmt.Errorf("resource %s: primary key %q is not a column", r.Name, r.PrimaryKey)
	}
	if r.DefaultSort == "" {
		r.DefaultSort = r.PrimaryKey
	}
	if c, ok := r.Column(r.DefaultSort); !ok || !(c.Sortable || c.Field == r.PrimaryKey) {
		return fmt.Errorf("resource %s: default sort %q is not a sortable column", r.Name, r.DefaultSort)
	}
	for _, f := range r.GlobalFilterFields {
		if !seen[f] {
			return fmt.Errorf("resource %s: global filter field %q is not a column", r.Name, f)
		}
	}
	for from, to := range r.SortAliases {
		if !seen[to] {
			return fmt.Errorf("resource %s: sort alias %q -> %q targets an unknown column", r.Name, from, to)
		}
	}
	for _, e := range r.Filters {
		if e.Field != tablequery.GlobalField && !seen[e.Field] {
			return fmt.Errorf("resource %s: filter %q is not a column", r.Name, e.Field)
		}
	}
	return nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
