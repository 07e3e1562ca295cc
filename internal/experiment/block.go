package experiment

import (
	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/internal/schema"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Named is a bound field with its document key
type Named struct {
	Name  string
	Field *field.Bound
}

// Block is one block of the experiment, resolved against the controls at
// construction: its type comes from its block_type control and its fields
// are the registry's main fields merged with that type's fields.
type Block struct {
	engine    *Engine
	index     int
	blockType string
	entries   []schema.Entry
}

func newBlock(e *Engine, index int) *Block {
	b := &Block{engine: e, index: index}
	b.resolve()
	return b
}

func (b *Block) resolve() {
	b.blockType = ""
	if d, ok := b.engine.registry.BlockTypeField(); ok {
		b.blockType = field.Stringify(d.Materialize(b.engine.surface, b.index).Value())
	}
	b.entries = b.engine.registry.Compose(b.blockType)
}

// Index returns the block's 1-based index
func (b *Block) Index() int {
	return b.index
}

// Type returns the block type read at construction
func (b *Block) Type() string {
	return b.blockType
}

// Schema returns the block's effective field list
func (b *Block) Schema() []schema.Entry {
	return append([]schema.Entry(nil), b.entries...)
}

func (b *Block) lookup(name string) (field.Descriptor, bool) {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].Name == name {
			return b.entries[i].Descriptor, true
		}
	}
	return field.Descriptor{}, false
}

// IsRelevant evaluates f's conditions against the current values of the
// fields they name in this block. A condition naming a field the block does
// not have is ignored; a field without conditions is always relevant.
func (b *Block) IsRelevant(f *field.Bound) bool {
	for _, c := range f.Conditions() {
		dep, ok := b.lookup(c.Field)
		if !ok {
			continue
		}
		if !c.Match(dep.Materialize(b.engine.surface, b.index).Value()) {
			return false
		}
	}
	return true
}

// Fields binds every field of the effective schema to this block. With
// filter set, fields that are not currently relevant are left out.
func (b *Block) Fields(filter bool) []Named {
	out := make([]Named, 0, len(b.entries))
	for _, e := range b.entries {
		f := e.Descriptor.Materialize(b.engine.surface, b.index)
		if filter && !b.IsRelevant(f) {
			continue
		}
		out = append(out, Named{Name: e.Name, Field: f})
	}
	return out
}

// Read returns the values of the block's relevant fields. An unset
// reward_bugs reads as the block's bug_types: every bug is a reward bug
// unless the operator picked some.
func (b *Block) Read() *types.Values {
	values := types.NewValues()
	for _, n := range b.Fields(true) {
		values.Set(n.Name, n.Field.Value())
	}

	if reward, ok := values.Get(types.KeyRewardBugs); ok && field.Empty(reward) {
		if d, ok := b.lookup(types.KeyBugTypes); ok {
			values.Set(types.KeyRewardBugs, d.Materialize(b.engine.surface, b.index).Value())
		}
	}
	return values
}

// Write assigns values to the block's fields in the order of values' keys,
// relevant or not. Fields absent from values keep their state and unknown
// keys are skipped. Writing block_type re-resolves the block's schema, so
// the fields of the new type are writable by the keys that follow it.
func (b *Block) Write(values *types.Values) {
	for _, key := range values.Keys() {
		v, _ := values.Get(key)
		d, ok := b.lookup(key)
		if !ok {
			b.engine.skip(blockPath(b.index, key))
			continue
		}
		d.Materialize(b.engine.surface, b.index).SetValue(v)
		if key == types.KeyBlockType {
			b.resolve()
		}
	}
}
