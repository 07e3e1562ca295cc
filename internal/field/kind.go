// Package field binds typed form fields to controls on a control.Surface.
//
// A Descriptor names a field's control binding, its Kind and the conditions
// under which it is relevant. Materializing a Descriptor against a surface
// and a block index yields a Bound field whose Value and SetValue coerce
// between the control's raw state and a typed value.
package field

import (
	"fmt"
	"math"
	"strings"

	"github.com/pogona-hunter/arena-form/internal/control"
)

// Kind selects how a control's state is coerced to and from a value
type Kind int

const (
	// Text passes the control's string through
	Text Kind = iota
	// Numeric reads the control's string as a float64
	Numeric
	// Boolean reads a checkbox's checked state
	Boolean
	// MultiSelect reads the selected options of a multiple-choice select
	MultiSelect
	// CameraSet reads the camera checkbox group as a comma-joined string
	CameraSet
)

// CameraGroup is the element id of the camera checkbox group. CameraSet
// fields always bind to it, whatever their binding name.
const CameraGroup = "cams-checkboxes"

var kindNames = map[Kind]string{
	Text:        "text",
	Numeric:     "numeric",
	Boolean:     "boolean",
	MultiSelect: "multiselect",
	CameraSet:   "cameras",
}

// String returns the kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind returns the Kind named name
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == strings.ToLower(name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", name)
}

// codec is the decode/encode pair for one Kind
type codec struct {
	decode func(s control.Surface, ref control.Ref) any
	encode func(s control.Surface, ref control.Ref, v any)
}

var codecs = map[Kind]codec{
	Text:        {decode: decodeText, encode: encodeText},
	Numeric:     {decode: decodeNumeric, encode: encodeText},
	Boolean:     {decode: decodeBoolean, encode: encodeBoolean},
	MultiSelect: {decode: decodeMultiSelect, encode: encodeMultiSelect},
	CameraSet:   {decode: decodeCameras, encode: encodeCameras},
}

func codecFor(k Kind) codec {
	if c, ok := codecs[k]; ok {
		return c
	}
	return codecs[Text]
}

func decodeText(s control.Surface, ref control.Ref) any {
	in := s.Input(ref)
	if in == nil {
		return ""
	}
	return in.Value()
}

func encodeText(s control.Surface, ref control.Ref, v any) {
	in := s.Input(ref)
	if in == nil {
		return
	}
	in.SetValue(Stringify(v))
	s.Changed(ref)
}

func decodeNumeric(s control.Surface, ref control.Ref) any {
	in := s.Input(ref)
	if in == nil {
		return math.NaN()
	}
	return ParseNumber(in.Value())
}

func decodeBoolean(s control.Surface, ref control.Ref) any {
	t := s.Toggle(ref)
	if t == nil {
		return false
	}
	return t.Checked()
}

func encodeBoolean(s control.Surface, ref control.Ref, v any) {
	t := s.Toggle(ref)
	if t == nil {
		return
	}
	t.SetChecked(Truthy(v))
	s.Changed(ref)
}

func decodeMultiSelect(s control.Surface, ref control.Ref) any {
	ms := s.MultiSelect(ref)
	if ms == nil {
		return []string{}
	}
	return ms.Selected()
}

// encodeMultiSelect only adds to the selection. An empty value leaves the
// current selection as it is.
func encodeMultiSelect(s control.Surface, ref control.Ref, v any) {
	values := StringList(v)
	if len(values) == 0 {
		return
	}
	ms := s.MultiSelect(ref)
	if ms == nil {
		return
	}
	for _, value := range values {
		ms.Select(value)
	}
	ms.Refresh()
	s.Changed(ref)
}

// decodeCameras skips disabled boxes: a disabled camera is unavailable, so
// its checked state does not count.
func decodeCameras(s control.Surface, _ control.Ref) any {
	g := s.CheckboxGroup(control.Top(CameraGroup))
	if g == nil {
		return ""
	}
	var names []string
	for _, box := range g.Boxes() {
		if box.Checked && !box.Disabled {
			names = append(names, box.Value)
		}
	}
	return strings.Join(names, ",")
}

func encodeCameras(s control.Surface, _ control.Ref, v any) {
	if v == nil {
		return
	}
	ref := control.Top(CameraGroup)
	g := s.CheckboxGroup(ref)
	if g == nil {
		return
	}
	wanted := make(map[string]bool)
	for _, name := range StringList(v) {
		wanted[name] = true
	}
	for _, box := range g.Boxes() {
		g.SetChecked(box.Value, wanted[box.Value])
	}
	s.Changed(ref)
}
