package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certforge/formsync/internal/form"
)

const testMaxFileSize = 10 * 1024 * 1024

// writeTemplate assembles a single-page document with a prefilled text
// field and a checkbox whose on-state is the custom token "Accepted", and
// writes it into dir.
func writeTemplate(t *testing.T, dir string) string {
	t.Helper()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 7 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /Helv 8 0 R >> >> /Contents 9 0 R " +
			"/Annots [4 0 R 5 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (name) /V (Alice) /F 4 " +
			"/Rect [100 700 300 720] /DA (/Helv 0 Tf 0 g) >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (agree) /V /Off /AS /Off /F 4 " +
			"/Rect [100 660 120 680] " +
			"/AP << /N << /Accepted 6 0 R /Off 6 0 R >> >> >>",
		"<< /Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 0 >>\nstream\n\nendstream",
		"<< /Fields [4 0 R 5 0 R] /DA (/Helv 0 Tf 0 g) " +
			"/DR << /Font << /Helv 8 0 R >> >> >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< /Length 0 >>\nstream\n\nendstream",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	path := filepath.Join(dir, "template.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestService_ValidatePath(t *testing.T) {
	dir := t.TempDir()
	pdfPath := writeTemplate(t, dir)

	emptyFile := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0o600))
	textFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("hello"), 0o600))

	svc := NewService(testMaxFileSize, false)

	tests := []struct {
		name    string
		path    string
		svc     *Service
		wantErr string
	}{
		{name: "valid file", path: pdfPath, svc: svc},
		{name: "empty path", path: "", svc: svc, wantErr: "path cannot be empty"},
		{name: "missing file", path: filepath.Join(dir, "nope.pdf"), svc: svc, wantErr: "does not exist"},
		{name: "directory", path: dir, svc: svc, wantErr: "directory"},
		{name: "wrong extension", path: textFile, svc: svc, wantErr: "not a PDF"},
		{name: "empty file", path: emptyFile, svc: svc, wantErr: "file is empty"},
		{name: "too large", path: pdfPath, svc: NewService(16, false), wantErr: "file too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.svc.validatePath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestService_ExtractFields(t *testing.T) {
	svc := NewService(testMaxFileSize, false)
	path := writeTemplate(t, t.TempDir())

	result, err := svc.ExtractFields(ExtractFieldsRequest{Path: path})
	require.NoError(t, err)
	require.NotNil(t, result.Payload)

	require.Len(t, result.Payload.Fields, 2)
	assert.Equal(t, "name", result.Payload.Fields[0].Name)
	assert.Equal(t, form.KindText, result.Payload.Fields[0].Kind)
	assert.Equal(t, "agree", result.Payload.Fields[1].Name)
	assert.Equal(t, form.KindCheckbox, result.Payload.Fields[1].Kind)
	assert.Equal(t, 2, result.Payload.Extraction.FieldCount)
	assert.False(t, result.Payload.Extraction.ExtractedAt.IsZero())
}

func TestService_ExtractValues(t *testing.T) {
	svc := NewService(testMaxFileSize, false)
	path := writeTemplate(t, t.TempDir())

	result, err := svc.ExtractValues(ExtractValuesRequest{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "Alice", result.Values["name"].String())
	assert.Equal(t, "Off", result.Values["agree"].String())
	assert.Equal(t, 2, result.Report.FieldCount)
}

func TestService_FillWritesOutput(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(testMaxFileSize, false)
	path := writeTemplate(t, dir)
	outPath := filepath.Join(dir, "filled.pdf")

	result, err := svc.Fill(FillRequest{
		Path:       path,
		OutputPath: outPath,
		Values: form.ValueMapping{
			"name":  form.TextValue("Bob"),
			"agree": form.TokenValue("Accepted"),
		},
	})
	require.NoError(t, err)
	assert.False(t, result.FellBack)
	assert.Equal(t, 2, result.Report.Filled)

	filled, err := svc.ExtractValues(ExtractValuesRequest{Path: outPath})
	require.NoError(t, err)
	assert.Equal(t, "Bob", filled.Values["name"].String())
	assert.Equal(t, "Accepted", filled.Values["agree"].String())
}

func TestService_FillRejectsEmptyOutputPath(t *testing.T) {
	svc := NewService(testMaxFileSize, false)
	path := writeTemplate(t, t.TempDir())

	_, err := svc.Fill(FillRequest{Path: path, Values: form.ValueMapping{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output path")
}

func TestService_FillFallsBackOnUnserializableDocument(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("%PDF-1.7 not really a document"), 0o600))
	outPath := filepath.Join(dir, "out.pdf")

	svc := NewService(testMaxFileSize, false)
	result, err := svc.Fill(FillRequest{
		Path:       broken,
		OutputPath: outPath,
		Values:     form.ValueMapping{"name": form.TextValue("Bob")},
	})
	require.NoError(t, err)
	assert.True(t, result.FellBack)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 not really a document"), out)
}

func TestService_Sync(t *testing.T) {
	svc := NewService(testMaxFileSize, false)
	path := writeTemplate(t, t.TempDir())

	result, err := svc.Sync(SyncRequest{
		Path: path,
		Supplied: form.ValueMapping{
			"name":  form.TextValue("stale"),
			"notes": form.TextValue("kept"),
		},
	})
	require.NoError(t, err)

	// Extracted values win over supplied ones; supplied-only keys survive.
	assert.Equal(t, "Alice", result.Values["name"].String())
	assert.Equal(t, "kept", result.Values["notes"].String())
	require.NotNil(t, result.Payload)
	assert.True(t, result.MetadataChanged, "no previous payload means metadata must be written")

	// A second pass with the freshly extracted payload sees no change.
	again, err := svc.Sync(SyncRequest{Path: path, Supplied: nil, Previous: result.Payload})
	require.NoError(t, err)
	assert.False(t, again.MetadataChanged)
}

func TestService_SyncToleratesUnparseableDocument(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("%PDF-1.7 garbage"), 0o600))

	svc := NewService(testMaxFileSize, false)
	result, err := svc.Sync(SyncRequest{
		Path:     broken,
		Supplied: form.ValueMapping{"name": form.TextValue("kept")},
	})
	require.NoError(t, err)

	assert.Equal(t, "kept", result.Values["name"].String())
	assert.Nil(t, result.Payload)
	assert.False(t, result.MetadataChanged)
}

func TestService_Info(t *testing.T) {
	svc := NewService(testMaxFileSize, false)
	path := writeTemplate(t, t.TempDir())

	result, err := svc.Info(InfoRequest{Path: path})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PageCount)
	assert.Equal(t, 2, result.FieldCount)
	assert.Equal(t, string(form.MethodStructured), result.Strategy)
	assert.Greater(t, result.SizeBytes, int64(0))
}
