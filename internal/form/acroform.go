package form

import (
	"bytes"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFieldDepth bounds Parent-chain and page-tree recursion so cyclic
// references in damaged documents cannot hang a pass.
const maxFieldDepth = 32

// readContext parses document bytes into a pdfcpu context. Validation is
// attempted first because it populates the context's form-dictionary
// accessor; documents the validator rejects are re-read raw so the manual
// walk still has a chance at them.
func readContext(doc []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), conf)
	if err == nil {
		if err = ctx.EnsurePageCount(); err == nil {
			return ctx, nil
		}
	}

	ctx, err = api.ReadContext(bytes.NewReader(doc), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// dictName resolves a name entry to its string form without the slash.
func dictName(ctx *model.Context, d types.Dict, key string) (string, bool) {
	obj, found := d.Find(key)
	if !found {
		return "", false
	}
	name, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return "", false
	}
	return string(name), true
}

// dictString resolves a string or hex literal entry.
func dictString(ctx *model.Context, d types.Dict, key string) (string, bool) {
	obj, found := d.Find(key)
	if !found {
		return "", false
	}
	s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return "", false
	}
	return s, true
}

// dictInt resolves an integer entry.
func dictInt(ctx *model.Context, d types.Dict, key string) (int, bool) {
	obj, found := d.Find(key)
	if !found {
		return 0, false
	}
	i, err := ctx.DereferenceInteger(obj)
	if err != nil || i == nil {
		return 0, false
	}
	return int(*i), true
}

// dictDict resolves a dictionary entry, returning nil when absent or
// unresolvable.
func dictDict(ctx *model.Context, d types.Dict, key string) types.Dict {
	obj, found := d.Find(key)
	if !found {
		return nil
	}
	sub, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return sub
}

// fieldName resolves a field or widget dictionary to its fully qualified
// name, joining partial names through the Parent chain with dots.
func fieldName(ctx *model.Context, d types.Dict) string {
	var parts []string
	for depth := 0; d != nil && depth < maxFieldDepth; depth++ {
		if t, ok := dictString(ctx, d, "T"); ok && t != "" {
			parts = append(parts, t)
		}
		d = dictDict(ctx, d, "Parent")
	}
	if len(parts) == 0 {
		return ""
	}
	// Parts were collected leaf-first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	name := parts[0]
	for _, p := range parts[1:] {
		name += "." + p
	}
	return name
}

// fieldTypeOf resolves the FT entry, walking the Parent chain for inherited
// types as radio kids and grouped widgets rely on.
func fieldTypeOf(ctx *model.Context, d types.Dict) string {
	for depth := 0; d != nil && depth < maxFieldDepth; depth++ {
		if ft, ok := dictName(ctx, d, "FT"); ok {
			return ft
		}
		d = dictDict(ctx, d, "Parent")
	}
	return ""
}

// fieldFlags resolves the Ff entry with Parent inheritance.
func fieldFlags(ctx *model.Context, d types.Dict) int {
	for depth := 0; d != nil && depth < maxFieldDepth; depth++ {
		if ff, ok := dictInt(ctx, d, "Ff"); ok {
			return ff
		}
		d = dictDict(ctx, d, "Parent")
	}
	return 0
}

// valueTarget returns the dictionary that owns the field's V entry: the
// widget itself when it carries a partial name, otherwise the nearest named
// ancestor (radio kids store their group's value on the parent).
func valueTarget(ctx *model.Context, widget types.Dict) types.Dict {
	d := widget
	for depth := 0; d != nil && depth < maxFieldDepth; depth++ {
		if _, ok := dictString(ctx, d, "T"); ok {
			return d
		}
		d = dictDict(ctx, d, "Parent")
	}
	return widget
}

// currentValue reads a field's present value with the V-then-AS precedence.
// Name objects become exact tokens, string literals free text; a field with
// neither yields an explicit empty string so blank fields stay discoverable.
func currentValue(ctx *model.Context, d types.Dict) Value {
	if obj, found := d.Find("V"); found {
		if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
			return TokenValue(string(name))
		}
		if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
			return TextValue(s)
		}
	}
	if as, ok := dictName(ctx, d, "AS"); ok {
		return TokenValue(as)
	}
	return TextValue("")
}

// pageDicts walks the page tree from the catalog and returns page
// dictionaries in document order.
func pageDicts(ctx *model.Context) ([]types.Dict, error) {
	root, err := ctx.Catalog()
	if err != nil {
		return nil, err
	}
	pagesObj, found := root.Find("Pages")
	if !found {
		return nil, nil
	}
	pages, err := ctx.DereferenceDict(pagesObj)
	if err != nil || pages == nil {
		return nil, err
	}
	var out []types.Dict
	collectPages(ctx, pages, &out, 0)
	return out, nil
}

// collectPages appends leaf page dictionaries in order, recursing through
// intermediate page-tree nodes.
func collectPages(ctx *model.Context, node types.Dict, out *[]types.Dict, depth int) {
	if depth >= maxFieldDepth {
		return
	}
	if t, _ := dictName(ctx, node, "Type"); t == "Page" {
		*out = append(*out, node)
		return
	}
	kidsObj, found := node.Find("Kids")
	if !found {
		return
	}
	kids, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return
	}
	for _, kid := range kids {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		collectPages(ctx, kidDict, out, depth+1)
	}
}

// widgetAnnots returns the page's widget annotation dictionaries in the
// order the Annots array declares them.
func widgetAnnots(ctx *model.Context, page types.Dict) []types.Dict {
	annotsObj, found := page.Find("Annots")
	if !found {
		return nil
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return nil
	}
	var out []types.Dict
	for _, a := range annots {
		d, err := ctx.DereferenceDict(a)
		if err != nil || d == nil {
			continue
		}
		if sub, _ := dictName(ctx, d, "Subtype"); sub == "Widget" {
			out = append(out, d)
		}
	}
	return out
}

// appearanceStates enumerates the appearance-state tokens a widget's
// appearance dictionary declares, from the normal and down sub-dictionaries.
// An empty result means the widget declares no states and cannot vet tokens.
func appearanceStates(ctx *model.Context, widget types.Dict) []string {
	ap := dictDict(ctx, widget, "AP")
	if ap == nil {
		return nil
	}
	set := map[string]struct{}{}
	for _, key := range []string{"N", "D"} {
		states := dictDict(ctx, ap, key)
		for state := range states {
			set[state] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for state := range set {
		out = append(out, state)
	}
	sort.Strings(out)
	return out
}

// placement records where a named field's first widget sits, for
// diagnostics in field definitions.
type placement struct {
	pageIndex int
	bounds    *BoundingBox
}

// widgetPlacements maps field names to the page and rectangle of their first
// widget encountered in document order.
func widgetPlacements(ctx *model.Context) map[string]placement {
	out := map[string]placement{}
	pages, err := pageDicts(ctx)
	if err != nil {
		return out
	}
	for pageIdx, page := range pages {
		for _, widget := range widgetAnnots(ctx, page) {
			name := fieldName(ctx, widget)
			if name == "" {
				continue
			}
			if _, seen := out[name]; seen {
				continue
			}
			out[name] = placement{
				pageIndex: pageIdx,
				bounds:    widgetBounds(ctx, widget),
			}
		}
	}
	return out
}

// widgetBounds parses the widget's Rect entry.
func widgetBounds(ctx *model.Context, widget types.Dict) *BoundingBox {
	rectObj, found := widget.Find("Rect")
	if !found {
		return nil
	}
	rect, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rect) != 4 {
		return nil
	}
	coords := make([]float64, 4)
	for i, c := range rect {
		f, err := ctx.DereferenceNumber(c)
		if err != nil {
			return nil
		}
		coords[i] = f
	}
	return &BoundingBox{
		LowerLeft:  Coordinate{X: coords[0], Y: coords[1]},
		UpperRight: Coordinate{X: coords[2], Y: coords[3]},
		Width:      coords[2] - coords[0],
		Height:     coords[3] - coords[1],
	}
}

// fieldOptions extracts the Opt entries of choice-like fields for
// diagnostics. Options may be plain strings or [export, display] pairs.
func fieldOptions(ctx *model.Context, d types.Dict) []string {
	optObj, found := d.Find("Opt")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}
	var options []string
	for _, opt := range arr {
		if s, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, s)
			continue
		}
		if pair, err := ctx.DereferenceArray(opt); err == nil && len(pair) >= 2 {
			if display, err := ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil); err == nil {
				options = append(options, display)
			}
		}
	}
	return options
}
