// Package jsoncanon produces the canonical JSON encoding used as the
// signature base for every signed envelope in the fabric: object keys
// sorted lexicographically at every nesting level, no insignificant
// whitespace, in the spirit of Python's json.dumps(obj, sort_keys=True,
// separators=(",", ":")). Number formatting follows Go's own int/float
// distinction rather than Python's (an integral float64 renders without
// a decimal point here, where Python's json.dumps would keep one), so
// this is a self-consistent canonical form for sign/verify round-trips
// within this codebase, not a byte-identical cross-language encoding.
package jsoncanon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Canonicalizer encodes values into their canonical JSON byte form.
type Canonicalizer struct{}

// NewCanonicalizer creates a new canonicalizer.
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{}
}

// Marshal returns the canonical JSON encoding of v.
//
// v is first round-tripped through encoding/json so struct tags and
// custom MarshalJSON methods are respected, then re-serialized with
// sorted keys and no whitespace.
func (c *Canonicalizer) Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsoncanon: marshal: %w", err)
	}

	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("jsoncanon: decode for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalString is a convenience wrapper around Marshal.
func (c *Canonicalizer) MarshalString(v interface{}) (string, error) {
	b, err := c.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(canonicalNumber(val))
	case string:
		encodeString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsoncanon: unsupported decoded type %T", v)
	}
	return nil
}

// canonicalNumber re-renders a json.Number: values that parse as int64
// with no decimal point, everything else via strconv's shortest
// round-tripping 'g' representation (which switches to exponent form for
// large or small magnitudes, unlike Python's json module).
func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return n.String()
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// encodeString writes v as a JSON string using encoding/json's escaping
// rules (HTML-safe escaping disabled to match non-browser JSON
// producers such as Python's json.dumps).
func encodeString(buf *bytes.Buffer, v string) {
	// json.Encoder always appends a trailing newline; trim it back off.
	var scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	s := scratch.Bytes()
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	buf.Write(s)
}
