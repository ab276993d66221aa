// Package template orchestrates the form engine for file-level template
// operations. Persistence of templates and per-account values lives outside
// this process; the service only moves bytes between the filesystem and the
// engine.
package template

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/certforge/formsync/internal/form"
)

// Service handles template file operations by orchestrating the form engine.
type Service struct {
	maxFileSize int64
	extractor   *form.Extractor
	filler      *form.Filler
}

// NewService creates a template service with the given file-size ceiling.
func NewService(maxFileSize int64, debugMode bool) *Service {
	return &Service{
		maxFileSize: maxFileSize,
		extractor:   form.NewExtractor(debugMode),
		filler:      form.NewFiller(nil, debugMode),
	}
}

// ExtractFieldsRequest asks for a template's field-definition payload.
type ExtractFieldsRequest struct {
	Path string `json:"path"`
}

// ExtractFieldsResult carries the extracted payload.
type ExtractFieldsResult struct {
	Path    string        `json:"path"`
	Payload *form.Payload `json:"payload"`
}

// ExtractValuesRequest asks for a template's current field values.
type ExtractValuesRequest struct {
	Path string `json:"path"`
}

// ExtractValuesResult carries the extracted value mapping and provenance.
type ExtractValuesResult struct {
	Path   string                 `json:"path"`
	Values form.ValueMapping     `json:"values"`
	Report form.ExtractionReport `json:"report"`
}

// FillRequest asks for a filled copy of a template.
type FillRequest struct {
	Path       string            `json:"path"`
	OutputPath string            `json:"output_path"`
	Values     form.ValueMapping `json:"values"`
}

// FillResult carries the fill report. FellBack is set when serialization
// failed and the original bytes were written out instead, so callers never
// see a hard failure for a recoverable document.
type FillResult struct {
	Path       string          `json:"path"`
	OutputPath string          `json:"output_path"`
	Report     form.FillReport `json:"report"`
	FellBack   bool            `json:"fell_back,omitempty"`
}

// SyncRequest reconciles a just-submitted document against caller-supplied
// values and the last-persisted field payload.
type SyncRequest struct {
	Path     string            `json:"path"`
	Supplied form.ValueMapping `json:"supplied"`
	Previous *form.Payload     `json:"previous,omitempty"`
}

// SyncResult carries the value set to persist and whether field metadata
// needs a write.
type SyncResult struct {
	Path            string            `json:"path"`
	Values          form.ValueMapping `json:"values"`
	Payload         *form.Payload     `json:"payload,omitempty"`
	MetadataChanged bool              `json:"metadata_changed"`
}

// InfoRequest asks for basic information about a template file.
type InfoRequest struct {
	Path string `json:"path"`
}

// InfoResult carries file-level facts about a template.
type InfoResult struct {
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	PageCount  int    `json:"page_count"`
	FieldCount int    `json:"field_count"`
	Strategy   string `json:"strategy_used,omitempty"`
}

// ExtractFields returns the field-definition payload for a template file.
func (s *Service) ExtractFields(req ExtractFieldsRequest) (*ExtractFieldsResult, error) {
	doc, err := s.readFile(req.Path)
	if err != nil {
		return nil, err
	}
	payload, err := s.extractor.ExtractFields(doc)
	if err != nil {
		return nil, fmt.Errorf("extract fields from %s: %w", req.Path, err)
	}
	return &ExtractFieldsResult{Path: req.Path, Payload: payload}, nil
}

// ExtractValues returns the current field values of a template file.
func (s *Service) ExtractValues(req ExtractValuesRequest) (*ExtractValuesResult, error) {
	doc, err := s.readFile(req.Path)
	if err != nil {
		return nil, err
	}
	values, report, err := s.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract values from %s: %w", req.Path, err)
	}
	return &ExtractValuesResult{Path: req.Path, Values: values, Report: report}, nil
}

// Info reports page count, size, and form facts for a template file. Page
// counting goes through a second parser so a document pdfcpu rejects can
// still report its shape.
func (s *Service) Info(req InfoRequest) (*InfoResult, error) {
	if err := s.validatePath(req.Path); err != nil {
		return nil, err
	}
	fileInfo, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	result := &InfoResult{Path: req.Path, SizeBytes: fileInfo.Size()}

	f, reader, err := pdf.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot parse PDF: %w", err)
	}
	defer func() { _ = f.Close() }()
	result.PageCount = reader.NumPage()

	doc, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	if _, report, err := s.extractor.Extract(doc); err == nil {
		result.FieldCount = report.FieldCount
		result.Strategy = string(report.Strategy)
	}
	return result, nil
}

// Fill writes a populated copy of the template to the output path. A
// serialization failure falls back to copying the original bytes.
func (s *Service) Fill(req FillRequest) (*FillResult, error) {
	if req.OutputPath == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}
	doc, err := s.readFile(req.Path)
	if err != nil {
		return nil, err
	}

	result := &FillResult{Path: req.Path, OutputPath: req.OutputPath}
	out, report, err := s.filler.Fill(doc, req.Values)
	if err != nil {
		if !form.IsSerializationFailure(err) {
			return nil, fmt.Errorf("fill %s: %w", req.Path, err)
		}
		// Degrade to the original, unfilled document rather than surfacing
		// the encoder's internals to the end user.
		out = doc
		result.FellBack = true
	} else {
		result.Report = report
	}

	if err := os.WriteFile(req.OutputPath, out, 0o600); err != nil {
		return nil, fmt.Errorf("write filled output: %w", err)
	}
	return result, nil
}

// Sync extracts values from a just-submitted document, merges them with the
// caller-supplied set, and decides whether field metadata changed. A
// document the parser rejects counts as "no fields extracted", not as a
// failure of the sync.
func (s *Service) Sync(req SyncRequest) (*SyncResult, error) {
	doc, err := s.readFile(req.Path)
	if err != nil {
		return nil, err
	}

	extracted, _, err := s.extractor.Extract(doc)
	if err != nil {
		if !form.IsMalformedDocument(err) {
			return nil, fmt.Errorf("sync %s: %w", req.Path, err)
		}
		extracted = form.ValueMapping{}
	}

	var fresh *form.Payload
	if len(extracted) > 0 {
		if fresh, err = s.extractor.ExtractFields(doc); err != nil {
			fresh = nil
		}
	}

	values, changed := form.Reconcile(extracted, req.Supplied, req.Previous, fresh)
	if fresh == nil {
		// Nothing extractable; keep the persisted metadata untouched.
		changed = false
	}
	return &SyncResult{Path: req.Path, Values: values, Payload: fresh, MetadataChanged: changed}, nil
}

// readFile validates the path and loads the template bytes.
func (s *Service) readFile(path string) ([]byte, error) {
	if err := s.validatePath(path); err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	return doc, nil
}

// validatePath performs the basic file checks before any parsing happens.
func (s *Service) validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if fileInfo.Size() > s.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), s.maxFileSize)
	}
	return nil
}
