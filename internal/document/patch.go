package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/pogona-hunter/arena-form/pkg/types"
)

// ErrInvalidAssignment is returned for --set arguments without a path
var ErrInvalidAssignment = errors.New("assignment must have the form path=value")

// Assignment sets the value at a gjson-style path, e.g. "blocks.0.bug_speed"
type Assignment struct {
	Path  string
	Value string
}

// ParseAssignment parses "path=value". A value that is valid JSON is set as
// JSON, anything else as a string.
func ParseAssignment(s string) (Assignment, error) {
	path, value, ok := strings.Cut(s, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return Assignment{}, fmt.Errorf("%w: %q", ErrInvalidAssignment, s)
	}
	return Assignment{Path: path, Value: value}, nil
}

// Patch applies assignments to a document in order and returns the
// patched document. The input is left untouched.
func Patch(doc *types.Values, assignments ...Assignment) (*types.Values, error) {
	if len(assignments) == 0 {
		return doc, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document for patching: %w", err)
	}

	for _, a := range assignments {
		if gjson.Valid(a.Value) {
			data, err = sjson.SetRawBytes(data, a.Path, []byte(a.Value))
		} else {
			data, err = sjson.SetBytes(data, a.Path, a.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", a.Path, err)
		}
	}
	return Decode(JSON, data)
}

// Query returns the JSON text found at path in doc. ok is false when
// nothing matches.
func Query(doc *types.Values, path string) (result string, ok bool, err error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", false, fmt.Errorf("failed to encode document for query: %w", err)
	}
	r := gjson.GetBytes(data, path)
	if !r.Exists() {
		return "", false, nil
	}
	return r.Raw, true, nil
}
