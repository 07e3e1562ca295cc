package control

import (
	"sort"
	"strings"
	"sync"
)

// Ensure Form implements Surface
var _ Surface = (*Form)(nil)

// Form is an in-memory Surface. It stands in for the browser page when the
// engine runs from the command line or from tests.
type Form struct {
	mu       sync.RWMutex
	elements map[Ref]element
	hidden   map[Ref]bool

	subMu  sync.RWMutex
	subs   []*Subscription
	nextID uint64
}

type element interface {
	ref() Ref
}

// NewForm creates an empty form
func NewForm() *Form {
	return &Form{
		elements: make(map[Ref]element),
		hidden:   make(map[Ref]bool),
	}
}

// AddInput registers a free-text input
func (f *Form) AddInput(ref Ref, value string) {
	f.put(&input{form: f, at: ref, value: value})
}

// AddSelect registers a single-choice select. Setting a value that is not one
// of the options clears the selection, as a browser select does.
func (f *Form) AddSelect(ref Ref, options []string, value string) {
	in := &input{form: f, at: ref, options: append([]string(nil), options...)}
	in.value = in.coerce(value)
	f.put(in)
}

// AddToggle registers a checkbox
func (f *Form) AddToggle(ref Ref, checked bool) {
	f.put(&toggle{form: f, at: ref, checked: checked})
}

// AddMultiSelect registers a multiple-choice select
func (f *Form) AddMultiSelect(ref Ref, options []string, selected ...string) {
	ms := &multiSelect{form: f, at: ref, selected: make(map[string]bool)}
	ms.options = append(ms.options, options...)
	for _, s := range selected {
		ms.selected[s] = true
	}
	ms.refreshLocked()
	f.put(ms)
}

// AddCheckboxGroup registers a group of checkboxes
func (f *Form) AddCheckboxGroup(ref Ref, boxes []Checkbox) {
	f.put(&checkboxGroup{form: f, at: ref, boxes: append([]Checkbox(nil), boxes...)})
}

func (f *Form) put(e element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[e.ref()] = e
}

// Remove drops a control
func (f *Form) Remove(ref Ref) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, ref)
	delete(f.hidden, ref)
}

// RemoveBlock drops every control of block index
func (f *Form) RemoveBlock(index int) {
	if index <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ref := range f.elements {
		if ref.Block == index {
			delete(f.elements, ref)
			delete(f.hidden, ref)
		}
	}
}

// Has reports whether a control is registered under ref
func (f *Form) Has(ref Ref) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.elements[ref]
	return ok
}

// Refs lists registered controls ordered by block, then name
func (f *Form) Refs() []Ref {
	f.mu.RLock()
	refs := make([]Ref, 0, len(f.elements))
	for ref := range f.elements {
		refs = append(refs, ref)
	}
	f.mu.RUnlock()

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Block != refs[j].Block {
			return refs[i].Block < refs[j].Block
		}
		return refs[i].Name < refs[j].Name
	})
	return refs
}

// BlockCount returns the highest block index that has a control
func (f *Form) BlockCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	highest := 0
	for ref := range f.elements {
		if ref.Block > highest {
			highest = ref.Block
		}
	}
	return highest
}

// SetHidden records whether a control is currently shown
func (f *Form) SetHidden(ref Ref, hidden bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hidden {
		f.hidden[ref] = true
	} else {
		delete(f.hidden, ref)
	}
}

// Hidden reports whether a control is currently hidden
func (f *Form) Hidden(ref Ref) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hidden[ref]
}

func (f *Form) lookup(ref Ref) element {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.elements[ref]
}

// Input returns the input registered under ref, or nil
func (f *Form) Input(ref Ref) Input {
	if in, ok := f.lookup(ref).(*input); ok {
		return in
	}
	return nil
}

// Toggle returns the checkbox registered under ref, or nil
func (f *Form) Toggle(ref Ref) Toggle {
	if t, ok := f.lookup(ref).(*toggle); ok {
		return t
	}
	return nil
}

// MultiSelect returns the multiple-choice select registered under ref, or nil
func (f *Form) MultiSelect(ref Ref) MultiSelect {
	if ms, ok := f.lookup(ref).(*multiSelect); ok {
		return ms
	}
	return nil
}

// CheckboxGroup returns the checkbox group registered under ref, or nil
func (f *Form) CheckboxGroup(ref Ref) CheckboxGroup {
	if g, ok := f.lookup(ref).(*checkboxGroup); ok {
		return g
	}
	return nil
}

// Summary returns the selection summary of a multiple-choice select as last
// rebuilt by Refresh.
func (f *Form) Summary(ref Ref) string {
	if ms, ok := f.lookup(ref).(*multiSelect); ok {
		f.mu.RLock()
		defer f.mu.RUnlock()
		return ms.summary
	}
	return ""
}

type input struct {
	form    *Form
	at      Ref
	value   string
	options []string
}

func (in *input) ref() Ref { return in.at }

func (in *input) Value() string {
	in.form.mu.RLock()
	defer in.form.mu.RUnlock()
	return in.value
}

func (in *input) SetValue(value string) {
	in.form.mu.Lock()
	defer in.form.mu.Unlock()
	in.value = in.coerce(value)
}

func (in *input) coerce(value string) string {
	if in.options == nil {
		return value
	}
	for _, o := range in.options {
		if o == value {
			return value
		}
	}
	return ""
}

type toggle struct {
	form    *Form
	at      Ref
	checked bool
}

func (t *toggle) ref() Ref { return t.at }

func (t *toggle) Checked() bool {
	t.form.mu.RLock()
	defer t.form.mu.RUnlock()
	return t.checked
}

func (t *toggle) SetChecked(checked bool) {
	t.form.mu.Lock()
	defer t.form.mu.Unlock()
	t.checked = checked
}

type multiSelect struct {
	form     *Form
	at       Ref
	options  []string
	selected map[string]bool
	summary  string
}

func (ms *multiSelect) ref() Ref { return ms.at }

func (ms *multiSelect) Selected() []string {
	ms.form.mu.RLock()
	defer ms.form.mu.RUnlock()
	return ms.selectedLocked()
}

func (ms *multiSelect) selectedLocked() []string {
	out := make([]string, 0, len(ms.selected))
	for _, o := range ms.options {
		if ms.selected[o] {
			out = append(out, o)
		}
	}
	return out
}

func (ms *multiSelect) Options() []string {
	ms.form.mu.RLock()
	defer ms.form.mu.RUnlock()
	return append([]string(nil), ms.options...)
}

func (ms *multiSelect) Select(value string) bool {
	ms.form.mu.Lock()
	defer ms.form.mu.Unlock()
	for _, o := range ms.options {
		if o == value {
			ms.selected[value] = true
			return true
		}
	}
	return false
}

func (ms *multiSelect) Refresh() {
	ms.form.mu.Lock()
	defer ms.form.mu.Unlock()
	ms.refreshLocked()
}

func (ms *multiSelect) refreshLocked() {
	ms.summary = strings.Join(ms.selectedLocked(), ", ")
}

type checkboxGroup struct {
	form  *Form
	at    Ref
	boxes []Checkbox
}

func (g *checkboxGroup) ref() Ref { return g.at }

func (g *checkboxGroup) Boxes() []Checkbox {
	g.form.mu.RLock()
	defer g.form.mu.RUnlock()
	return append([]Checkbox(nil), g.boxes...)
}

func (g *checkboxGroup) SetChecked(value string, checked bool) {
	g.form.mu.Lock()
	defer g.form.mu.Unlock()
	for i := range g.boxes {
		if g.boxes[i].Value == value {
			g.boxes[i].Checked = checked
		}
	}
}
