package station

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// nonFinite are the bare tokens pandas writes for missing floats.
var nonFinite = []string{"-Infinity", "Infinity", "NaN"}

// Clean rewrites a station file so it is strict JSON: bare NaN and Infinity
// tokens become null and single quotes are stripped from string values.
func Clean(r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading station file: %w", err)
	}

	records, err := Decode(bytes.NewReader(nullifyNonFinite(raw)))
	if err != nil {
		return err
	}
	for _, rec := range records {
		for k, v := range rec {
			if s, ok := v.(string); ok {
				rec[k] = strings.ReplaceAll(s, "'", "")
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("writing station file: %w", err)
	}
	return nil
}

// nullifyNonFinite replaces non-finite number tokens outside of strings.
func nullifyNonFinite(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src))

	inString, escaped := false, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}

		matched := false
		for _, tok := range nonFinite {
			if bytes.HasPrefix(src[i:], []byte(tok)) {
				out.WriteString("null")
				i += len(tok) - 1
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}
