package field

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pogona-hunter/arena-form/pkg/types"
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber converts a control string to a number the way a browser form
// script does: surrounding whitespace is ignored, a blank string is 0, and a
// string that is not a number yields NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}

	if !decimalPattern.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range values still carry their sign
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// Stringify renders a value the way a form control stores it
func Stringify(v any) string {
	switch x := types.NormalizeNumber(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN"
		case math.IsInf(x, 1):
			return "Infinity"
		case math.IsInf(x, -1):
			return "-Infinity"
		}
		return formatNumber(x)
	case json.Number:
		return x.String()
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// formatNumber writes x in the shortest form that reads back exactly,
// switching to exponent notation below 1e-6 and from 1e21 on the way
// browsers print numbers.
func formatNumber(x float64) string {
	if x == 0 {
		return "0"
	}
	if abs := math.Abs(x); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	s := strconv.FormatFloat(x, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

// Truthy reports whether v counts as set: nil, false, zero, NaN and the empty
// string do not.
func Truthy(v any) bool {
	switch x := types.NormalizeNumber(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// Empty reports whether v is falsy or an empty list
func Empty(v any) bool {
	switch x := v.(type) {
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return !Truthy(v)
}

// StringList converts a list value, or a comma-separated string, into its
// string items. Blank items are dropped.
func StringList(v any) []string {
	var raw []string
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		raw = x
	case []any:
		raw = make([]string, len(x))
		for i, item := range x {
			raw[i] = Stringify(item)
		}
	case string:
		raw = strings.Split(x, ",")
	default:
		if !Truthy(v) {
			return nil
		}
		raw = []string{Stringify(v)}
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
