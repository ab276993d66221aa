package form

import (
	"bytes"
	"fmt"
	"log"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldFailure records one field that could not be filled and why. It is
// report data, never an error.
type FieldFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FillReport summarizes a fill pass. A degraded result with fewer fields
// filled than requested is preferred over a failed whole-document operation.
type FillReport struct {
	Filled   int            `json:"filled_count"`
	NotFound []string       `json:"not_found,omitempty"`
	Failed   []FieldFailure `json:"failed,omitempty"`
}

// CommitPolicy decides, per widget kind, whether the fill pass finalizes the
// on-page visual state after setting a value. Committing guarantees a
// standards-correct rendered appearance; skipping it preserves
// custom/scanned-form appearance streams exactly as authored but risks the
// value not rendering in strict viewers.
type CommitPolicy map[WidgetKind]bool

// DefaultCommitPolicy commits for every kind. The exact-token path still
// writes the literal appearance state, which keeps non-standard appearances
// correct even under commit.
func DefaultCommitPolicy() CommitPolicy {
	return CommitPolicy{
		KindText:        true,
		KindCheckbox:    true,
		KindRadioButton: true,
		KindPushButton:  true,
	}
}

// radioFallbackTokens are conventional on-state spellings tried, in order,
// when a radio widget does not accept the supplied token.
var radioFallbackTokens = []string{"Yes", "On", "1"}

// Filler injects widget values into a document and re-serializes it. The
// caller-supplied mapping is never mutated; all inputs stay immutable.
type Filler struct {
	policy    CommitPolicy
	debugMode bool
}

// NewFiller creates a filler. A nil policy means DefaultCommitPolicy.
func NewFiller(policy CommitPolicy, debugMode bool) *Filler {
	if policy == nil {
		policy = DefaultCommitPolicy()
	}
	return &Filler{policy: policy, debugMode: debugMode}
}

// Fill walks every page's widget annotations in document order, sets each
// matching widget's value using type-specific encoding, and returns the
// re-serialized document bytes plus a report. Document-level failures
// surface as SerializationError; per-widget failures land in the report.
func (f *Filler) Fill(doc []byte, values ValueMapping) ([]byte, FillReport, error) {
	var report FillReport

	ctx, err := readContext(doc)
	if err != nil {
		return nil, report, &SerializationError{Err: err}
	}

	pages, err := pageDicts(ctx)
	if err != nil {
		return nil, report, &SerializationError{Err: err}
	}

	matched := map[string]bool{}
	filled := map[string]bool{}
	failReason := map[string]string{}
	commit := false

	for _, page := range pages {
		for _, widget := range widgetAnnots(ctx, page) {
			name := fieldName(ctx, widget)
			if name == "" {
				continue
			}
			value, ok := values[name]
			if !ok {
				continue
			}
			matched[name] = true

			kind := ClassifyFieldType(fieldTypeOf(ctx, widget), fieldFlags(ctx, widget))
			if err := f.fillWidget(ctx, widget, kind, value); err != nil {
				if f.debugMode {
					log.Printf("fill %q (%s): %v", name, kind, err)
				}
				failReason[name] = err.Error()
				continue
			}
			filled[name] = true
			if f.policy[kind] {
				commit = true
			}
		}
	}

	report.Filled = len(filled)
	for name := range filled {
		// Another widget of the same field may have succeeded after an
		// earlier one failed; the field counts as filled.
		delete(failReason, name)
	}
	for name := range failReason {
		report.Failed = append(report.Failed, FieldFailure{Name: name, Reason: failReason[name]})
	}
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Name < report.Failed[j].Name })
	for name := range values {
		if !matched[name] {
			report.NotFound = append(report.NotFound, name)
		}
	}
	sort.Strings(report.NotFound)

	if commit {
		f.commitAppearances(ctx)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, report, &SerializationError{Err: err}
	}
	return buf.Bytes(), report, nil
}

// fillWidget dispatches on the widget kind.
func (f *Filler) fillWidget(ctx *model.Context, widget types.Dict, kind WidgetKind, value Value) error {
	switch kind {
	case KindText:
		return f.fillText(ctx, widget, value)
	case KindCheckbox, KindRadioButton, KindPushButton:
		return f.fillButton(ctx, widget, kind, value)
	default:
		return fmt.Errorf("unsupported widget kind %q", fieldTypeOf(ctx, widget))
	}
}

// fillText assigns the value's free-text representation verbatim. An empty
// or absent value still sets an explicit empty string: widgets require an
// explicit set to clear stale content.
func (f *Filler) fillText(ctx *model.Context, widget types.Dict, value Value) error {
	text := ""
	if !value.IsEmpty() {
		text = value.Text()
	}
	escaped, err := types.EscapedUTF16String(text)
	if err != nil {
		return fmt.Errorf("encode text value: %w", err)
	}
	target := valueTarget(ctx, widget)
	target["V"] = types.StringLiteral(*escaped)
	return nil
}

// fillButton sets a button-like widget's value, preserving exact tokens.
// Radio widgets vet the token against their declared appearance states and
// fall back through conventional alternatives before failing.
func (f *Filler) fillButton(ctx *model.Context, widget types.Dict, kind WidgetKind, value Value) error {
	token := buttonToken(value)

	if kind == KindRadioButton {
		accepted, ok := acceptRadioToken(ctx, widget, token)
		if !ok {
			return fmt.Errorf("widget accepts none of the attempted tokens for %q", token)
		}
		token = accepted
	}

	target := valueTarget(ctx, widget)
	target["V"] = types.Name(token)
	widget["AS"] = types.Name(token)
	return nil
}

// buttonToken picks the token to write for a button-like value.
//
// A non-empty, non-false token is echoed back verbatim so custom appearance
// states keep rendering the glyph the form's author drew. A recognized
// false-token is likewise written verbatim. Only an absent value falls back
// to a boolean toggle.
func buttonToken(value Value) string {
	if value.IsEmpty() || value.Kind() == ValueBool {
		if value.True() {
			return "Yes"
		}
		return "Off"
	}
	raw := stripNameSlash(value.Text())
	if raw == "" {
		return "Off"
	}
	return raw
}

// acceptRadioToken returns the first token the widget's appearance states
// accept, trying the supplied token then the conventional alternatives. A
// widget declaring no states cannot vet tokens and accepts any.
func acceptRadioToken(ctx *model.Context, widget types.Dict, token string) (string, bool) {
	states := appearanceStates(ctx, widget)
	if len(states) == 0 {
		return token, true
	}
	candidates := append([]string{token}, radioFallbackTokens...)
	for _, c := range candidates {
		for _, s := range states {
			if c == s {
				return c, true
			}
		}
	}
	return "", false
}

// stripNameSlash removes a leading PDF name slash; values stored as "/Yes"
// and "Yes" address the same appearance state.
func stripNameSlash(token string) string {
	if len(token) > 0 && token[0] == '/' {
		return token[1:]
	}
	return token
}

// commitAppearances finalizes the rendered state by asking viewers to
// regenerate widget appearances from the new values.
func (f *Filler) commitAppearances(ctx *model.Context) {
	root, err := ctx.Catalog()
	if err != nil {
		return
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil || acro == nil {
		return
	}
	acro["NeedAppearances"] = types.Boolean(true)
}
