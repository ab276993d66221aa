package form

import (
	"reflect"
	"time"
)

// Coordinate represents a point in PDF coordinate space.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox represents a rectangular area in PDF coordinate space. It is
// carried for diagnostics only and has no effect on fill semantics.
type BoundingBox struct {
	LowerLeft  Coordinate `json:"lower_left"`
	UpperRight Coordinate `json:"upper_right"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
}

// FieldDefinition describes the identity and shape of one interactive-form
// field. Field names are the sole join key between stored values and
// widgets; multiple widgets may alias one logical field (radio groups).
type FieldDefinition struct {
	Name      string       `json:"name"`
	Kind      WidgetKind   `json:"kind"`
	PageIndex int          `json:"page_index"`
	Bounds    *BoundingBox `json:"bounds,omitempty"`
	Required  bool         `json:"required,omitempty"`
	Options   []string     `json:"options,omitempty"`
}

// Method identifies which extraction strategy produced a result.
type Method string

const (
	// MethodStructured is the library's validated form-dictionary accessor.
	MethodStructured Method = "structured"
	// MethodManualWalk is the explicit trailer-root AcroForm traversal.
	MethodManualWalk Method = "manual-walk"
)

// Provenance records how and when a payload was extracted. The shape matches
// the persisted form_fields JSON of the surrounding application.
type Provenance struct {
	Method      Method    `json:"method"`
	ExtractedAt time.Time `json:"extracted_at"`
	FieldCount  int       `json:"field_count"`
}

// Payload is the ordered collection of field definitions plus extraction
// provenance. Payloads are discovered fresh on every extraction pass and
// never persisted standalone.
type Payload struct {
	Fields     []FieldDefinition `json:"fields"`
	Extraction Provenance        `json:"extraction"`
}

// Equal reports structural equality between two payloads. The extraction
// timestamp is ignored: it changes on every pass and comparing it would
// defeat the redundant-write guard.
func (p *Payload) Equal(other *Payload) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Extraction.Method != other.Extraction.Method {
		return false
	}
	if p.Extraction.FieldCount != other.Extraction.FieldCount {
		return false
	}
	if len(p.Fields) != len(other.Fields) {
		return false
	}
	return reflect.DeepEqual(p.Fields, other.Fields)
}
