package station

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Kind distinguishes a missing attribute from an explicit null and a value.
type Kind uint8

const (
	Absent Kind = iota
	Null
	Present
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Present:
		return "present"
	default:
		return "absent"
	}
}

// Value is a variable attribute on a station feature.
type Value struct {
	Kind   Kind
	Number float64
	// Text is the label form of a Present value: the shortest decimal for
	// JSON numbers ("72.0" reads "72"), the trimmed text for numeric strings.
	Text string
}

// Defined reports whether the attribute exists on the feature, null or not.
func (v Value) Defined() bool {
	return v.Kind != Absent
}

// String renders the value the way tooltips show it.
func (v Value) String() string {
	switch v.Kind {
	case Present:
		return v.Text
	case Null:
		return "null"
	default:
		return ""
	}
}

// coerce converts a raw record field into a Value. Anything that does not
// read as a finite number is Absent, never coerced to zero.
func coerce(raw any, ok bool) Value {
	if !ok {
		return Value{}
	}
	switch v := raw.(type) {
	case nil:
		return Value{Kind: Null}
	case json.Number:
		n := numeric(v.String())
		if n.Kind == Present {
			n.Text = formatNumber(n.Number)
		}
		return n
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Value{}
		}
		return Value{Kind: Present, Number: v, Text: formatNumber(v)}
	case int:
		return Value{Kind: Present, Number: float64(v), Text: strconv.Itoa(v)}
	case string:
		return numeric(v)
	default:
		return Value{}
	}
}

func numeric(s string) Value {
	s = strings.TrimSpace(s)
	// Empty strings stay Absent even though a browser would print them.
	if s == "" {
		return Value{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Kind: Present, Number: f, Text: s}
}

// formatNumber prints f the way a browser stringifies a number: plain
// decimals, exponent form only outside [1e-6, 1e21).
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if a := math.Abs(f); a >= 1e21 || a < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Attributes is the queryable attribute set of a station feature.
type Attributes struct {
	Name     string
	CountyID string
	// Values holds only defined variables; a missing key reads as Absent.
	Values map[variable.ID]Value
}

// Get returns the value of a variable, Absent when it was never set.
func (a Attributes) Get(id variable.ID) Value {
	return a.Values[id]
}
