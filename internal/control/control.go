// Package control defines the UI adapter the form engine reads and writes
// through, plus a headless in-memory implementation of it.
//
// A control is addressed by a Ref: the binding name of a field and, for
// block-scoped fields, the 1-based index of the block it belongs to. Surfaces
// hand out capability interfaces per control shape; a control that is not
// rendered is reported as nil, never as an error.
package control

import "strconv"

// Ref identifies a control on a Surface
type Ref struct {
	Name  string
	Block int // 0 for top-level controls, 1-based otherwise
}

// Top returns a Ref in the top-level namespace
func Top(name string) Ref {
	return Ref{Name: name}
}

// InBlock returns a Ref in the namespace of block index
func InBlock(name string, index int) Ref {
	return Ref{Name: name, Block: index}
}

// ID renders the element id the control has on the page ("bugSpeed3").
func (r Ref) ID() string {
	if r.Block <= 0 {
		return r.Name
	}
	return r.Name + strconv.Itoa(r.Block)
}

// String implements fmt.Stringer
func (r Ref) String() string {
	return r.ID()
}

// Input is a control holding a single string value: text and number inputs
// and single-choice selects.
type Input interface {
	Value() string
	SetValue(value string)
}

// Toggle is a checkbox
type Toggle interface {
	Checked() bool
	SetChecked(checked bool)
}

// MultiSelect is a multiple-choice select
type MultiSelect interface {
	// Selected returns the selected option values in option order
	Selected() []string
	Options() []string
	// Select marks the option with the given value selected. It reports
	// whether such an option exists.
	Select(value string) bool
	// Refresh rebuilds the widget's selection summary from the options
	Refresh()
}

// Checkbox is one entry of a CheckboxGroup
type Checkbox struct {
	Value    string `json:"value"`
	Checked  bool   `json:"checked"`
	Disabled bool   `json:"disabled"`
}

// CheckboxGroup is a fixed set of checkboxes
type CheckboxGroup interface {
	Boxes() []Checkbox
	SetChecked(value string, checked bool)
}

// Surface resolves Refs to controls and raises change notifications.
//
// Changed must deliver the notification to every listener before it returns,
// so state derived by listeners (visibility, materialized blocks) is current
// once a write completes.
type Surface interface {
	Input(ref Ref) Input
	Toggle(ref Ref) Toggle
	MultiSelect(ref Ref) MultiSelect
	CheckboxGroup(ref Ref) CheckboxGroup
	Changed(ref Ref)
}
