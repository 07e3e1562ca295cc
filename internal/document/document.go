// Package document decodes and encodes experiment documents in the formats
// the command line accepts, and patches or queries them by path.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Format is a document serialization format
type Format string

// Supported formats
const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ErrUnknownFormat is returned for formats other than json, yaml and toml
var ErrUnknownFormat = errors.New("unknown document format")

// Formats lists the supported formats
func Formats() []Format {
	return []Format{JSON, YAML, TOML}
}

// ParseFormat resolves a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Decode parses a document. Key order of the input is kept for every format.
func Decode(format Format, data []byte) (*types.Values, error) {
	doc := types.NewValues()
	switch format {
	case JSON:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON document: %w", err)
		}
	case YAML:
		if len(bytes.TrimSpace(data)) == 0 {
			return doc, nil
		}
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode YAML document: %w", err)
		}
	case TOML:
		return decodeTOML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return doc, nil
}

// Encode serializes a document. JSON and YAML keep the document's key
// order; TOML output has its keys sorted, and tables after plain keys.
func Encode(format Format, doc *types.Values) ([]byte, error) {
	switch format {
	case JSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON document: %w", err)
		}
		return append(data, '\n'), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode YAML document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML document: %w", err)
		}
		return buf.Bytes(), nil
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(plain(doc)); err != nil {
			return nil, fmt.Errorf("failed to encode TOML document: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ReadFile decodes the document at path in the format its extension names
func ReadFile(path string) (*types.Values, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := Decode(format, data)
	if err != nil {
		return nil, "", err
	}
	return doc, format, nil
}

func decodeTOML(data []byte) (*types.Values, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML document: %w", err)
	}

	// MetaData.Keys lists keys in document order. Array indexes are not part
	// of a key, so every element of an array of tables shares one ordering.
	position := make(map[string]int)
	for i, key := range md.Keys() {
		path := key.String()
		if _, seen := position[path]; !seen {
			position[path] = i
		}
	}
	return orderedTable(raw, "", position), nil
}

func orderedTable(m map[string]any, prefix string, position map[string]int) *types.Values {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	pos := func(k string) int {
		if p, ok := position[join(prefix, k)]; ok {
			return p
		}
		return len(position)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := pos(keys[i]), pos(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	out := types.NewValues()
	for _, k := range keys {
		out.Set(k, orderedValue(m[k], join(prefix, k), position))
	}
	return out
}

func orderedValue(v any, path string, position map[string]int) any {
	switch x := v.(type) {
	case map[string]any:
		return orderedTable(x, path, position)
	case []map[string]any:
		list := make([]any, len(x))
		for i, item := range x {
			list[i] = orderedTable(item, path, position)
		}
		return list
	case []any:
		list := make([]any, len(x))
		for i, item := range x {
			list[i] = orderedValue(item, path, position)
		}
		return list
	default:
		return types.NormalizeNumber(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return toml.Key{key}.String()
	}
	return prefix + "." + toml.Key{key}.String()
}

// plain converts ordered values into the maps and slices the TOML encoder
// understands. Lists of documents become arrays of tables.
func plain(v any) any {
	switch x := v.(type) {
	case *types.Values:
		if x == nil {
			return nil
		}
		m := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			if val == nil {
				continue
			}
			m[k] = plain(val)
		}
		return m
	case []*types.Values:
		list := make([]map[string]any, len(x))
		for i, item := range x {
			list[i], _ = plain(item).(map[string]any)
		}
		return list
	case []any:
		tables := make([]map[string]any, 0, len(x))
		for _, item := range x {
			if t, ok := plain(item).(map[string]any); ok {
				tables = append(tables, t)
			}
		}
		if len(x) > 0 && len(tables) == len(x) {
			return tables
		}
		list := make([]any, len(x))
		for i, item := range x {
			list[i] = plain(item)
		}
		return list
	default:
		return v
	}
}
