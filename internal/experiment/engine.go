// Package experiment projects the controls of the experiment form onto the
// experiment document and back.
//
// Nothing here keeps state: every read resolves block types, schemas and
// relevance from the controls as they are at that moment, and every write
// goes straight into the controls. Writes never fail on schema mismatches;
// keys the registry does not know are skipped.
package experiment

import (
	"fmt"
	"math"

	"github.com/pogona-hunter/arena-form/internal/control"
	"github.com/pogona-hunter/arena-form/internal/schema"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// SkipFunc is told about every document key a write ignored. path is the key
// for top-level fields and "blocks[i].key" (1-based i) for block fields.
type SkipFunc func(path string)

// Option configures an Engine
type Option func(*Engine)

// WithSkipHook installs a hook called for ignored keys
func WithSkipHook(fn SkipFunc) Option {
	return func(e *Engine) {
		e.onSkip = fn
	}
}

// Engine reads and writes experiment documents through a control surface
type Engine struct {
	surface  control.Surface
	registry *schema.Registry
	onSkip   SkipFunc
}

// New creates an Engine. A nil registry selects schema.Default().
func New(surface control.Surface, registry *schema.Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = schema.Default()
	}
	e := &Engine{surface: surface, registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine projects through
func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// Read returns the whole document: every top-level field in registry order,
// then "blocks".
func (e *Engine) Read() *types.Values {
	doc := types.NewValues()
	for _, entry := range e.registry.Top {
		doc.Set(entry.Name, entry.Descriptor.Materialize(e.surface, 0).Value())
	}
	doc.Set(types.KeyBlocks, e.ReadBlocks())
	return doc
}

// Write distributes a document into the controls in the document's key
// order. "blocks" is handed to WriteBlocks; unknown keys are skipped.
func (e *Engine) Write(doc *types.Values) {
	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)
		if key == types.KeyBlocks {
			list, ok := BlockList(v)
			if !ok {
				e.skip(key)
				continue
			}
			e.WriteBlocks(list)
			continue
		}
		d, ok := e.registry.TopLevel(key)
		if !ok {
			e.skip(key)
			continue
		}
		d.Materialize(e.surface, 0).SetValue(v)
	}
}

// MaxBlocks is the most blocks an experiment can have. Larger counts are
// clamped to it.
const MaxBlocks = 100

// NumBlocks returns the block count the num_blocks control currently holds.
// Fractions are truncated; NaN, infinite and counts below 1 read as 0,
// counts above MaxBlocks as MaxBlocks.
func (e *Engine) NumBlocks() int {
	d, ok := e.registry.TopLevel(types.KeyNumBlocks)
	if !ok {
		return 0
	}
	n, ok := d.Materialize(e.surface, 0).Value().(float64)
	switch {
	case !ok || math.IsNaN(n) || math.IsInf(n, 0) || n < 1:
		return 0
	case n > MaxBlocks:
		return MaxBlocks
	}
	return int(n)
}

// ReadBlocks reads blocks 1..num_blocks. The count comes from the
// num_blocks control, not from the block controls that exist.
func (e *Engine) ReadBlocks() []*types.Values {
	n := e.NumBlocks()
	blocks := []*types.Values{}
	for i := 1; i <= n; i++ {
		blocks = append(blocks, e.Block(i).Read())
	}
	return blocks
}

// WriteBlocks sets num_blocks to len(list), then writes list[i-1] into
// block i. Listeners of num_blocks run before the blocks are written, so
// block controls they create are in place. Blocks past MaxBlocks are
// skipped.
func (e *Engine) WriteBlocks(list []*types.Values) {
	if len(list) > MaxBlocks {
		for i := MaxBlocks + 1; i <= len(list); i++ {
			e.skip(fmt.Sprintf("%s[%d]", types.KeyBlocks, i))
		}
		list = list[:MaxBlocks]
	}
	if d, ok := e.registry.TopLevel(types.KeyNumBlocks); ok {
		d.Materialize(e.surface, 0).SetValue(float64(len(list)))
	}
	for i, values := range list {
		e.Block(i + 1).Write(values)
	}
}

// Block resolves block index against the current controls
func (e *Engine) Block(index int) *Block {
	return newBlock(e, index)
}

func (e *Engine) skip(path string) {
	if e.onSkip != nil {
		e.onSkip(path)
	}
}

// BlockList converts a decoded "blocks" value into block documents. It
// accepts []*types.Values, or []any holding *types.Values or plain maps;
// entries of any other type become empty blocks. ok is false when v is not
// a list at all.
func BlockList(v any) ([]*types.Values, bool) {
	switch list := v.(type) {
	case []*types.Values:
		return list, true
	case []any:
		out := make([]*types.Values, len(list))
		for i, item := range list {
			out[i] = blockValues(item)
		}
		return out, true
	case []map[string]any:
		out := make([]*types.Values, len(list))
		for i, item := range list {
			out[i] = blockValues(item)
		}
		return out, true
	default:
		return nil, false
	}
}

func blockValues(item any) *types.Values {
	switch b := item.(type) {
	case *types.Values:
		if b == nil {
			return types.NewValues()
		}
		return b
	case map[string]any:
		// Plain maps carry no order; block_type goes before the fields that
		// depend on it.
		return types.ValuesFromMap(b, "num_trials", "trial_duration", "iti", types.KeyBlockType)
	default:
		return types.NewValues()
	}
}

func blockPath(index int, key string) string {
	return fmt.Sprintf("%s[%d].%s", types.KeyBlocks, index, key)
}
