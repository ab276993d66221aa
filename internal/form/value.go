package form

import (
	"encoding/json"
	"strings"
)

// ValueKind discriminates the representations a field value can take.
type ValueKind int

const (
	// ValueEmpty is an absent or cleared value.
	ValueEmpty ValueKind = iota
	// ValueText is free text for text widgets.
	ValueText
	// ValueBool is a normalized boolean toggle.
	ValueBool
	// ValueToken is an exact appearance-state token that must be echoed back
	// verbatim. Forms built from scanned layouts often use non-standard
	// tokens, and normalizing them would render the wrong glyph.
	ValueToken
)

// Value is a single logical value attached to a field name. The zero Value
// is empty.
type Value struct {
	kind ValueKind
	text string
	on   bool
}

// EmptyValue returns the absent value.
func EmptyValue() Value {
	return Value{}
}

// TextValue returns a free-text value. The empty string is a valid text
// value, distinct from an absent one.
func TextValue(s string) Value {
	return Value{kind: ValueText, text: s}
}

// BoolValue returns a normalized boolean toggle.
func BoolValue(on bool) Value {
	return Value{kind: ValueBool, on: on}
}

// TokenValue returns an exact appearance-state token.
func TokenValue(token string) Value {
	return Value{kind: ValueToken, text: token}
}

// Kind returns the value's representation.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsEmpty reports whether the value is absent. A text value holding the
// empty string is not empty.
func (v Value) IsEmpty() bool {
	return v.kind == ValueEmpty
}

// Text returns the free-text or token representation verbatim. Boolean
// values render as "true"/"false"; empty values as "".
func (v Value) Text() string {
	switch v.kind {
	case ValueBool:
		if v.on {
			return "true"
		}
		return "false"
	default:
		return v.text
	}
}

// True reports the value's truthiness under the shared token model.
func (v Value) True() bool {
	switch v.kind {
	case ValueBool:
		return v.on
	case ValueText, ValueToken:
		return Truthy(v.text)
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return v.Text()
}

// MarshalJSON encodes booleans as JSON booleans and everything else as the
// verbatim string form, keeping the wire shape compatible with the stored
// per-account value mappings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == ValueBool {
		return json.Marshal(v.on)
	}
	return json.Marshal(v.Text())
}

// UnmarshalJSON decodes JSON booleans as toggles, name-style strings as
// exact tokens, and all other strings as free text.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case bool:
		*v = BoolValue(t)
	case string:
		if strings.HasPrefix(t, "/") {
			*v = TokenValue(t)
		} else {
			*v = TextValue(t)
		}
	case nil:
		*v = EmptyValue()
	default:
		// Numbers and other scalars become their text form.
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		*v = TextValue(strings.Trim(string(b), `"`))
	}
	return nil
}

// ValueMapping maps field names to their values. Keys are unique; ordering
// is irrelevant.
type ValueMapping map[string]Value

// Clone returns an independent copy of the mapping.
func (m ValueMapping) Clone() ValueMapping {
	out := make(ValueMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
