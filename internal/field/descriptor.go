package field

import (
	"encoding/json"
	"reflect"

	"github.com/pogona-hunter/arena-form/internal/control"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Condition gates a field on the current value of another field of the same
// block.
type Condition struct {
	Field   string
	Allowed []any
	set     bool
}

// Equals requires field to hold exactly v
func Equals(field string, v any) Condition {
	return Condition{Field: field, Allowed: []any{v}}
}

// OneOf requires field to hold one of vs
func OneOf(field string, vs ...any) Condition {
	return Condition{Field: field, Allowed: vs, set: true}
}

// IsSet reports whether the condition accepts a set of values
func (c Condition) IsSet() bool {
	return c.set
}

// Match reports whether v satisfies the condition
func (c Condition) Match(v any) bool {
	if !c.set {
		return len(c.Allowed) == 1 && sameValue(c.Allowed[0], v)
	}
	for _, allowed := range c.Allowed {
		if sameValue(allowed, v) {
			return true
		}
	}
	return false
}

// MarshalJSON renders {"field": ..., "equals": v} or {"field": ..., "one_of": [...]}
func (c Condition) MarshalJSON() ([]byte, error) {
	if c.set {
		return json.Marshal(struct {
			Field string `json:"field"`
			OneOf []any  `json:"one_of"`
		}{c.Field, c.Allowed})
	}
	var v any
	if len(c.Allowed) > 0 {
		v = c.Allowed[0]
	}
	return json.Marshal(struct {
		Field  string `json:"field"`
		Equals any    `json:"equals"`
	}{c.Field, v})
}

// sameValue is strict equality: values of different types never match and
// values that cannot be compared (lists, maps) never match either.
func sameValue(a, b any) bool {
	a, b = types.NormalizeNumber(a), types.NormalizeNumber(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Descriptor describes a field independently of any block
type Descriptor struct {
	Binding    string      `json:"binding"`
	Kind       Kind        `json:"kind"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// New creates a Descriptor
func New(binding string, kind Kind, conditions ...Condition) Descriptor {
	return Descriptor{Binding: binding, Kind: kind, Conditions: conditions}
}

// Ref returns the control reference the descriptor binds to in block index
// (0 for top level).
func (d Descriptor) Ref(index int) control.Ref {
	if index <= 0 {
		return control.Top(d.Binding)
	}
	return control.InBlock(d.Binding, index)
}

// Materialize binds the descriptor to its control in block index, or to the
// top-level control when index is 0. Every call returns a new binding; the
// control itself holds the state.
func (d Descriptor) Materialize(s control.Surface, index int) *Bound {
	return &Bound{desc: d, ref: d.Ref(index), surface: s}
}

// Bound is a Descriptor bound to one control
type Bound struct {
	desc    Descriptor
	ref     control.Ref
	surface control.Surface
}

// Value returns the control's current state coerced for the field's Kind
func (b *Bound) Value() any {
	return codecFor(b.desc.Kind).decode(b.surface, b.ref)
}

// SetValue writes v into the control and raises its change notification.
// When SetValue returns, listeners of that notification have run.
func (b *Bound) SetValue(v any) {
	codecFor(b.desc.Kind).encode(b.surface, b.ref, v)
}

// Ref returns the control the field is bound to
func (b *Bound) Ref() control.Ref {
	return b.ref
}

// Kind returns the field's Kind
func (b *Bound) Kind() Kind {
	return b.desc.Kind
}

// Conditions returns the conditions gating the field
func (b *Bound) Conditions() []Condition {
	return b.desc.Conditions
}
