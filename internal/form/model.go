package form

import "strings"

// WidgetKind classifies an interactive-form widget by its declared field type
type WidgetKind string

const (
	KindText        WidgetKind = "text"
	KindCheckbox    WidgetKind = "checkbox"
	KindRadioButton WidgetKind = "radio"
	KindPushButton  WidgetKind = "push_button"
	KindUnsupported WidgetKind = "unsupported"
)

// Field flag bits from the field dictionary Ff entry.
const (
	flagRequired   = 1 << 1  // Bit 2
	flagRadio      = 1 << 15 // Bit 16
	flagPushButton = 1 << 16 // Bit 17
)

// ClassifyFieldType resolves a declared field type (the FT entry, with or
// without the leading name slash) and its field flags into a WidgetKind.
// Button fields split three ways on the flag bits, matching how viewers
// distinguish checkboxes, radio groups, and push buttons.
func ClassifyFieldType(fieldType string, flags int) WidgetKind {
	switch strings.TrimPrefix(strings.TrimSpace(fieldType), "/") {
	case "Tx":
		return KindText
	case "Btn":
		if flags&flagRadio != 0 {
			return KindRadioButton
		}
		if flags&flagPushButton != 0 {
			return KindPushButton
		}
		return KindCheckbox
	default:
		return KindUnsupported
	}
}

// IsButton reports whether the kind carries button value semantics.
// Checkbox, radio, and push-button widgets are frequently confused within
// hand-authored forms, so they share one token model and differ only in how
// exact tokens are sourced.
func (k WidgetKind) IsButton() bool {
	return k == KindCheckbox || k == KindRadioButton || k == KindPushButton
}

// String returns the kind's stable identifier.
func (k WidgetKind) String() string {
	return string(k)
}

// Token spellings recognized as checked/unchecked. Name-style variants
// (leading slash) appear in values echoed back from PDF name objects.
var (
	trueTokens = map[string]struct{}{
		"true": {}, "1": {}, "yes": {}, "on": {},
	}
	falseTokens = map[string]struct{}{
		"false": {}, "0": {}, "no": {}, "off": {},
	}
)

// NormalizeToken strips a leading name slash and surrounding whitespace and
// lowercases the token for set membership tests. The original spelling must
// still be used when writing values back; normalization is only for
// classification.
func NormalizeToken(token string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), "/"))
}

// IsTrueToken reports whether the token spells a recognized "checked" state.
func IsTrueToken(token string) bool {
	_, ok := trueTokens[NormalizeToken(token)]
	return ok
}

// IsFalseToken reports whether the token spells a recognized "unchecked" state.
func IsFalseToken(token string) bool {
	_, ok := falseTokens[NormalizeToken(token)]
	return ok
}

// Truthy classifies a token as checked. Only recognized true-tokens count;
// custom appearance-state tokens are preserved verbatim elsewhere and are not
// boolean-coerced here.
func Truthy(token string) bool {
	return IsTrueToken(token)
}
