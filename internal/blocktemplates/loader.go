// Package blocktemplates loads block types defined in template files and
// adds them to a field registry.
//
// A template names a block type and lists the fields a block of that type
// has beyond the fields every block has:
//
//	block_type: tones
//	description: Auditory stimulus blocks
//	fields:
//	  - name: tone_frequency
//	    control: toneFrequency
//	    kind: numeric
//	  - name: tone_ramp
//	    control: toneRamp
//	    kind: numeric
//	    when:
//	      - field: tone_shape
//	        one_of: [sine, triangle]
package blocktemplates

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/internal/schema"
)

// Template is one block type definition
type Template struct {
	BlockType   string          `yaml:"block_type" json:"block_type"`
	Description string          `yaml:"description" json:"description,omitempty"`
	Fields      []TemplateField `yaml:"fields" json:"fields"`
}

// TemplateField is a field of a templated block type
type TemplateField struct {
	Name    string              `yaml:"name" json:"name"`
	Control string              `yaml:"control" json:"control"`
	Kind    string              `yaml:"kind" json:"kind"`
	When    []TemplateCondition `yaml:"when" json:"when,omitempty"`
}

// TemplateCondition gates a field on another field of the block. Exactly
// one of Equals and OneOf is set.
type TemplateCondition struct {
	Field  string `yaml:"field" json:"field"`
	Equals any    `yaml:"equals" json:"equals,omitempty"`
	OneOf  []any  `yaml:"one_of" json:"one_of,omitempty"`
}

// Load reads every .yaml, .yml and .json file under root in fsys, in
// lexical order. Files that fail to parse are collected and reported
// together; the templates that did parse are still returned.
func Load(fsys fs.FS, root string) ([]Template, error) {
	var templates []Template
	var parseErrors []string
	seen := make(map[string]string)

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("error accessing path %s: %v", p, walkErr))
			return nil
		}
		if d.IsDir() || !isTemplateFile(d.Name()) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("error reading template %s: %v", p, err))
			return nil
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("error parsing template %s: %v", p, err))
			return nil
		}
		if t.BlockType == "" {
			t.BlockType = strings.TrimSuffix(d.Name(), path.Ext(d.Name()))
		}
		if first, exists := seen[t.BlockType]; exists {
			parseErrors = append(parseErrors, fmt.Sprintf("duplicate block type '%s' in %s (first defined in %s)", t.BlockType, p, first))
			return nil
		}
		seen[t.BlockType] = p
		templates = append(templates, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking template directory %s: %w", root, err)
	}

	if len(parseErrors) > 0 {
		return templates, fmt.Errorf("encountered %d errors while loading block templates: %s", len(parseErrors), strings.Join(parseErrors, "; "))
	}
	return templates, nil
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Apply adds the block types of templates to r. A template may not
// redefine a block type r already has.
func Apply(r *schema.Registry, templates ...Template) error {
	for _, t := range templates {
		if _, exists := r.Types[t.BlockType]; exists {
			return fmt.Errorf("block type %q is already defined", t.BlockType)
		}
		entries, err := t.entries()
		if err != nil {
			return fmt.Errorf("block type %q: %w", t.BlockType, err)
		}
		for _, e := range entries {
			r.AddTyped(t.BlockType, e.Name, e.Descriptor)
		}
	}
	return nil
}

func (t Template) entries() ([]schema.Entry, error) {
	if len(t.Fields) == 0 {
		return nil, fmt.Errorf("no fields")
	}
	names := make(map[string]bool, len(t.Fields))
	out := make([]schema.Entry, 0, len(t.Fields))
	for _, f := range t.Fields {
		switch {
		case f.Name == "":
			return nil, fmt.Errorf("field without a name")
		case names[f.Name]:
			return nil, fmt.Errorf("field %q defined twice", f.Name)
		}
		names[f.Name] = true

		kind, err := field.ParseKind(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if kind == field.CameraSet {
			return nil, fmt.Errorf("field %q: camera fields are experiment wide", f.Name)
		}

		binding := f.Control
		if binding == "" {
			binding = f.Name
		}

		conditions := make([]field.Condition, 0, len(f.When))
		for _, w := range f.When {
			c, err := w.condition()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			conditions = append(conditions, c)
		}
		out = append(out, schema.Entry{Name: f.Name, Descriptor: field.New(binding, kind, conditions...)})
	}
	return out, nil
}

func (w TemplateCondition) condition() (field.Condition, error) {
	switch {
	case w.Field == "":
		return field.Condition{}, fmt.Errorf("condition without a field")
	case w.OneOf != nil && w.Equals != nil:
		return field.Condition{}, fmt.Errorf("condition on %q has both equals and one_of", w.Field)
	case w.OneOf != nil:
		return field.OneOf(w.Field, w.OneOf...), nil
	default:
		return field.Equals(w.Field, w.Equals), nil
	}
}
