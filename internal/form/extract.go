package form

import (
	"log"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ExtractionReport describes which strategy produced a result and how many
// fields it found.
type ExtractionReport struct {
	Strategy   Method `json:"strategy_used"`
	FieldCount int    `json:"field_count"`
}

// Extractor reads interactive-form fields out of document bytes. Strategies
// are tried in order and the first non-empty result is final; results are
// never merged field-by-field.
type Extractor struct {
	debugMode bool
}

// NewExtractor creates an extractor. Debug mode logs per-field progress to
// the standard logger.
func NewExtractor(debugMode bool) *Extractor {
	return &Extractor{debugMode: debugMode}
}

// strategy is one extraction approach over an already-parsed context.
type strategy struct {
	method Method
	run    func(ctx *model.Context) []extractedField
}

// extractedField pairs a definition with the field's current value.
type extractedField struct {
	def   FieldDefinition
	value Value
}

// strategies returns the fallback chain in priority order.
func (e *Extractor) strategies() []strategy {
	return []strategy{
		{method: MethodStructured, run: e.structured},
		{method: MethodManualWalk, run: e.manualWalk},
	}
}

// Extract parses document bytes and returns the mapping of field names to
// their current values. Unparsable bytes yield a MalformedDocumentError.
func (e *Extractor) Extract(doc []byte) (ValueMapping, ExtractionReport, error) {
	fields, method, err := e.run(doc)
	if err != nil {
		return nil, ExtractionReport{}, err
	}
	values := make(ValueMapping, len(fields))
	for _, f := range fields {
		values[f.def.Name] = f.value
	}
	return values, ExtractionReport{Strategy: method, FieldCount: len(values)}, nil
}

// ExtractFields parses document bytes and returns the field-definition
// payload with extraction provenance.
func (e *Extractor) ExtractFields(doc []byte) (*Payload, error) {
	fields, method, err := e.run(doc)
	if err != nil {
		return nil, err
	}
	defs := make([]FieldDefinition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, f.def)
	}
	return &Payload{
		Fields: defs,
		Extraction: Provenance{
			Method:      method,
			ExtractedAt: time.Now().UTC().Truncate(time.Second),
			FieldCount:  len(defs),
		},
	}, nil
}

// run parses the document once and drives the strategy chain.
func (e *Extractor) run(doc []byte) ([]extractedField, Method, error) {
	ctx, err := readContext(doc)
	if err != nil {
		return nil, "", &MalformedDocumentError{Err: err}
	}

	method := MethodManualWalk
	for _, s := range e.strategies() {
		fields := s.run(ctx)
		if e.debugMode {
			log.Printf("extraction strategy %s found %d fields", s.method, len(fields))
		}
		if len(fields) > 0 {
			return fields, s.method, nil
		}
		method = s.method
	}
	return nil, method, nil
}

// structured enumerates fields through the form-dictionary accessor the
// library populates during validation. Nested field trees are walked so
// hierarchically named fields surface under their qualified names.
func (e *Extractor) structured(ctx *model.Context) []extractedField {
	if ctx.Form == nil {
		return nil
	}
	fieldsObj, found := ctx.Form.Find("Fields")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil
	}
	places := widgetPlacements(ctx)
	var out []extractedField
	e.collectFields(ctx, arr, places, &out, 0)
	return out
}

// collectFields appends definitions for every named field node, recursing
// into named children. Unnamed kids are widgets of their parent and carry no
// value of their own.
func (e *Extractor) collectFields(
	ctx *model.Context, arr types.Array, places map[string]placement, out *[]extractedField, depth int,
) {
	if depth >= maxFieldDepth {
		return
	}
	for _, obj := range arr {
		d, err := ctx.DereferenceDict(obj)
		if err != nil || d == nil {
			// One unresolvable field must not suppress the rest.
			continue
		}
		if _, named := dictString(ctx, d, "T"); named {
			*out = append(*out, e.fieldOf(ctx, d, places))
		}
		if kidsObj, found := d.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				var named types.Array
				for _, kid := range kids {
					kd, err := ctx.DereferenceDict(kid)
					if err != nil || kd == nil {
						continue
					}
					if _, ok := dictString(ctx, kd, "T"); ok {
						named = append(named, kid)
					}
				}
				e.collectFields(ctx, named, places, out, depth+1)
			}
		}
	}
}

// manualWalk locates the interactive-form dictionary from the trailer's
// root object and iterates its field array directly, reading T, then V,
// then AS. Invoked only when the structured accessor yields nothing.
func (e *Extractor) manualWalk(ctx *model.Context) []extractedField {
	root, err := ctx.Catalog()
	if err != nil {
		if e.debugMode {
			log.Printf("manual walk: no catalog: %v", err)
		}
		return nil
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil || acro == nil {
		return nil
	}
	fieldsObj, found := acro.Find("Fields")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil
	}
	places := widgetPlacements(ctx)
	var out []extractedField
	for _, obj := range arr {
		d, err := ctx.DereferenceDict(obj)
		if err != nil || d == nil {
			continue
		}
		if _, named := dictString(ctx, d, "T"); !named {
			continue
		}
		out = append(out, e.fieldOf(ctx, d, places))
	}
	return out
}

// fieldOf builds one extracted field from its dictionary.
func (e *Extractor) fieldOf(ctx *model.Context, d types.Dict, places map[string]placement) extractedField {
	name := fieldName(ctx, d)
	kind := ClassifyFieldType(fieldTypeOf(ctx, d), fieldFlags(ctx, d))
	def := FieldDefinition{
		Name:      name,
		Kind:      kind,
		PageIndex: -1,
		Required:  fieldFlags(ctx, d)&flagRequired != 0,
		Options:   fieldOptions(ctx, d),
	}
	if place, ok := places[name]; ok {
		def.PageIndex = place.pageIndex
		def.Bounds = place.bounds
	}
	return extractedField{def: def, value: currentValue(ctx, d)}
}
