package form

import (
	"bytes"
	"fmt"
	"testing"
)

// makeBlankPDF assembles a well-formed single-page document with no
// interactive form at all.
func makeBlankPDF(t *testing.T) []byte {
	t.Helper()
	return assemblePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>",
		"<< /Length 0 >>\nstream\n\nendstream",
	})
}

// makeFormPDF assembles a minimal single-page AcroForm document with two
// text fields, a two-widget radio group with custom appearance states, and
// a checkbox whose on-state is the non-standard token "Accepted". Offsets
// are computed while writing so the cross-reference table is always valid.
func makeFormPDF(t *testing.T) []byte {
	t.Helper()

	objects := []string{
		// 1: catalog
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 10 0 R >>",
		// 2: page tree
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		// 3: page
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /Helv 11 0 R >> >> /Contents 12 0 R " +
			"/Annots [4 0 R 5 0 R 7 0 R 8 0 R 9 0 R] >>",
		// 4: text field "name" with a current value
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (name) /V (Alice) /F 4 " +
			"/Rect [100 700 300 720] /DA (/Helv 0 Tf 0 g) >>",
		// 5: blank text field "email"
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (email) /F 4 " +
			"/Rect [100 660 300 680] /DA (/Helv 0 Tf 0 g) >>",
		// 6: radio group "color", value held on the parent
		"<< /FT /Btn /T (color) /Ff 32768 /V /Off /Kids [7 0 R 8 0 R] >>",
		// 7: radio widget with on-state Red
		"<< /Type /Annot /Subtype /Widget /Parent 6 0 R /F 4 " +
			"/Rect [100 600 120 620] /AS /Off " +
			"/AP << /N << /Red 13 0 R /Off 14 0 R >> >> >>",
		// 8: radio widget with on-state Blue
		"<< /Type /Annot /Subtype /Widget /Parent 6 0 R /F 4 " +
			"/Rect [130 600 150 620] /AS /Off " +
			"/AP << /N << /Blue 13 0 R /Off 14 0 R >> >> >>",
		// 9: checkbox "agree" with the custom on-state Accepted
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (agree) /V /Off /AS /Off /F 4 " +
			"/Rect [100 560 120 580] " +
			"/AP << /N << /Accepted 13 0 R /Off 14 0 R >> >> >>",
		// 10: interactive-form dictionary
		"<< /Fields [4 0 R 5 0 R 6 0 R 9 0 R] /DA (/Helv 0 Tf 0 g) " +
			"/DR << /Font << /Helv 11 0 R >> >> >>",
		// 11: font resource
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		// 12: empty page content stream
		"<< /Length 0 >>\nstream\n\nendstream",
		// 13: on-state appearance form
		"<< /Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 0 >>\nstream\n\nendstream",
		// 14: off-state appearance form
		"<< /Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 0 >>\nstream\n\nendstream",
	}

	return assemblePDF(objects)
}

// assemblePDF serializes numbered objects (starting at 1) with a computed
// cross-reference table; object 1 must be the catalog.
func assemblePDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, body := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	return buf.Bytes()
}
