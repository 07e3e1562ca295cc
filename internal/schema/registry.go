// Package schema holds the field registry that defines the experiment
// document: the top-level fields, the fields every block has, and the fields
// specific to each block type.
package schema

import (
	"sort"

	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Entry is a registry field: its document key and its descriptor
type Entry struct {
	Name       string           `json:"name"`
	Descriptor field.Descriptor `json:"descriptor"`
}

// Registry is the schema of the experiment document
type Registry struct {
	Top   []Entry
	Main  []Entry
	Types map[string][]Entry

	typeOrder []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{Types: make(map[string][]Entry)}
}

// AddTop appends a top-level field
func (r *Registry) AddTop(name string, d field.Descriptor) *Registry {
	r.Top = append(r.Top, Entry{Name: name, Descriptor: d})
	return r
}

// AddMain appends a field every block has
func (r *Registry) AddMain(name string, d field.Descriptor) *Registry {
	r.Main = append(r.Main, Entry{Name: name, Descriptor: d})
	return r
}

// AddTyped appends a field specific to blockType
func (r *Registry) AddTyped(blockType, name string, d field.Descriptor) *Registry {
	if _, ok := r.Types[blockType]; !ok {
		r.typeOrder = append(r.typeOrder, blockType)
	}
	r.Types[blockType] = append(r.Types[blockType], Entry{Name: name, Descriptor: d})
	return r
}

// TopLevel looks up a top-level field by document key
func (r *Registry) TopLevel(name string) (field.Descriptor, bool) {
	return find(r.Top, name)
}

// BlockTypes lists the block types in registration order
func (r *Registry) BlockTypes() []string {
	out := make([]string, 0, len(r.Types))
	out = append(out, r.typeOrder...)
	// Types filled in directly rather than through AddTyped
	var extra []string
	for t := range r.Types {
		if !contains(out, t) {
			extra = append(extra, t)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Compose returns the effective field list of a block of blockType.
//
// Merge policy: the main fields come first in registry order, followed by
// the type's fields. A type field named like a main field replaces the main
// entry in place. An unknown block type contributes no fields.
func (r *Registry) Compose(blockType string) []Entry {
	out := make([]Entry, 0, len(r.Main)+len(r.Types[blockType]))
	out = append(out, r.Main...)
	for _, e := range r.Types[blockType] {
		replaced := false
		for i := range out {
			if out[i].Name == e.Name {
				out[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds a field in the effective schema of blockType
func (r *Registry) Lookup(blockType, name string) (field.Descriptor, bool) {
	return find(r.Compose(blockType), name)
}

// BlockTypeField returns the descriptor of the block_type field
func (r *Registry) BlockTypeField() (field.Descriptor, bool) {
	return find(r.Main, types.KeyBlockType)
}

// Known reports whether name is a field of any block type
func (r *Registry) Known(name string) bool {
	if _, ok := find(r.Main, name); ok {
		return true
	}
	for _, entries := range r.Types {
		if _, ok := find(entries, name); ok {
			return true
		}
	}
	return false
}

func find(entries []Entry, name string) (field.Descriptor, bool) {
	// Later entries win, matching Compose
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Name == name {
			return entries[i].Descriptor, true
		}
	}
	return field.Descriptor{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
