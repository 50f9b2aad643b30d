package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/tablequery"

	"gopkg.in/yaml.v3"
)

var ErrUnknownResource = errors.New("unknown resource")

// Registry holds the resources loaded from a directory, in file name order.
type Registry struct {
	byName map[string]*Resource
	byPath map[string]*Resource
	order  []*Resource
}

// LoadFromDir loads every *.yml file of dir. The file base name is the resource name.
func LoadFromDir(dir string) (*Registry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no resource files in %s", dir)
	}

	reg := &Registry{byName: map[string]*Resource{}, byPath: map[string]*Resource{}}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		res, err := Parse(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := reg.add(res); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("resource_loaded", map[string]any{
			"resource": name,
			"path":     res.Path,
			"columns":  len(res.Columns),
		})
	}
	if err := reg.checkCascades(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Parse validates and decodes one resource document.
func Parse(name string, data []byte) (*Resource, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "resource"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var res Resource
	if err := root.Decode(&res); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	res.Name = name
	if err := res.validate(); err != nil {
		return nil, err
	}
	res.fillFilterTypes()
	return &res, nil
}

// fillFilterTypes copies non-string column types onto simple filters lacking one.
func (r *Resource) fillFilterTypes() {
	for i, e := range r.Filters {
		spec, ok := e.Spec.(tablequery.SimpleFilter)
		if !ok || spec.DataType != "" {
			continue
		}
		c, ok := r.Column(e.Field)
		if !ok {
			continue
		}
		if t := c.Type.FieldType(); t != tablequery.TypeString {
			spec.DataType = t
			r.Filters[i].Spec = spec
		}
	}
}

// NewRegistry builds a registry from already parsed resources.
func NewRegistry(resources ...*Resource) (*Registry, error) {
	reg := &Registry{byName: map[string]*Resource{}, byPath: map[string]*Resource{}}
	for _, r := range resources {
		if err := reg.add(r); err != nil {
			return nil, err
		}
	}
	if err := reg.checkCascades(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (reg *Registry) checkCascades() error {
	for _, r := range reg.order {
		for _, name := range r.Cascades {
			if _, ok := reg.byName[name]; !ok {
				return fmt.Errorf("resource %s: cascade target %q is not loaded", r.Name, name)
			}
		}
	}
	return nil
}

func (reg *Registry) add(r *Resource) error {
	if _, dup := reg.byName[r.Name]; dup {
		return fmt.Errorf("duplicate resource name %q", r.Name)
	}
	if other, dup := reg.byPath[r.Path]; dup {
		return fmt.Errorf("path %s used by %s and %s", r.Path, other.Name, r.Name)
	}
	reg.byName[r.Name] = r
	reg.byPath[r.Path] = r
	reg.order = append(reg.order, r)
	return nil
}

func (reg *Registry) Get(name string) (*Resource, error) {
	if r, ok := reg.byName[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
}

func (reg *Registry) ByPath(path string) (*Resource, error) {
	if r, ok := reg.byPath[path]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, path)
}

func (reg *Registry) All() []*Resource {
	return append([]*Resource(nil), reg.order...)
}
