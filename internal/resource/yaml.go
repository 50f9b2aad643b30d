package resource

import (
	"fmt"

	"GatewayAdmin/internal/tablequery"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes the columns mapping keeping key order.
func (c *Columns) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: columns must be a mapping", node.Line)
	}
	out := make(Columns, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		var col Column
		if err := node.Content[i+1].Decode(&col); err != nil {
			return fmt.Errorf("column %q: %w", field, err)
		}
		col.Field = field
		if col.Column == "" {
			col.Column = tablequery.CamelToSnake(field)
		}
		if col.Type == "" {
			col.Type = ColumnString
		}
		out = append(out, col)
	}
	*c = out
	return nil
}

type constraintDef struct {
	Value     any    `yaml:"value"`
	MatchMode string `yaml:"match_mode"`
}

type filterDef struct {
	Value       any             `yaml:"value"`
	MatchMode   string          `yaml:"match_mode"`
	DataType    string          `yaml:"data_type"`
	Operator    string          `yaml:"operator"`
	Constraints []constraintDef `yaml:"constraints"`
}

// UnmarshalYAML decodes the filters mapping into grid filter specs.
// An entry has either value/match_mode or operator/constraints, never both.
func (f *FilterDefs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filters must be a mapping", node.Line)
	}
	out := make(FilterDefs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		var def filterDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("filter %q: %w", field, err)
		}
		simple := def.Value != nil || def.MatchMode != "" || def.DataType != ""
		multi := def.Operator != "" || len(def.Constraints) > 0
		switch {
		case simple && multi:
			return fmt.Errorf("filter %q mixes value and constraints forms", field)
		case multi:
			spec := tablequery.ConstraintFilter{Operator: tablequery.Operator(def.Operator)}
			for _, c := range def.Constraints {
				spec.Constraints = append(spec.Constraints, tablequery.Constraint{
					Value:     c.Value,
					MatchMode: tablequery.MatchMode(c.MatchMode),
				})
			}
			out = append(out, tablequery.FilterEntry{Field: field, Spec: spec})
		default:
			out = append(out, tablequery.FilterEntry{Field: field, Spec: tablequery.SimpleFilter{
				Value:     def.Value,
				MatchMode: tablequery.MatchMode(def.MatchMode),
				DataType:  tablequery.FieldType(def.DataType),
			}})
		}
	}
	*f = out
	return nil
}
