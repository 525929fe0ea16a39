// Package pdftest builds small, well-formed PDF documents for tests.
//
// The generated files carry an exact cross-reference table so every parser
// used by the service (ledongthuc/pdf, pdfcpu, MuPDF) opens them without
// repair.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const (
	// DefaultSize is the font size used when a Text leaves Size at zero.
	DefaultSize = 12

	// LineX and TopY position the lines produced by Lines.
	LineX   = 72
	TopY    = 720
	Leading = 18
)

// Text is a string drawn at a fixed position on a page.
type Text struct {
	X, Y float64
	S    string
	Size float64
}

// Page describes the content of one page.
type Page struct {
	Texts  []Text
	Images int    // number of distinct image XObjects painted on the page
	Raw    string // appended verbatim to the content stream
}

// Options tweaks how the document is written.
type Options struct {
	// OmitWidths drops the /Widths array from the font, the way many
	// producers do for the standard 14 fonts.
	OmitWidths bool
}

// Lines returns a page with one text line per argument, top to bottom.
func Lines(lines ...string) Page {
	p := Page{}
	for i, l := range lines {
		p.Texts = append(p.Texts, Text{X: LineX, Y: float64(TopY - i*Leading), S: l})
	}
	return p
}

// Table lays rows out on a grid whose top-left cell starts at (x, y).
// Empty cells are not drawn at all.
func Table(x, y, colWidth, rowHeight float64, rows [][]string) []Text {
	var out []Text
	for r, row := range rows {
		for c, cell := range row {
			if cell == "" {
				continue
			}
			out = append(out, Text{
				X: x + float64(c)*colWidth,
				Y: y - float64(r)*rowHeight,
				S: cell,
			})
		}
	}
	return out
}

// Build renders pages into a PDF file image.
func Build(pages []Page, opts Options) []byte {
	b := &builder{}

	// Fixed objects: 1 catalog, 2 page tree, 3 font.
	b.reserve(3)

	var kids []string
	for _, p := range pages {
		var images []int
		for i := 0; i < p.Images; i++ {
			images = append(images, b.add(imageObject(len(b.objects))))
		}
		content := b.add(contentStream(p))

		var xobjects strings.Builder
		for i, nr := range images {
			fmt.Fprintf(&xobjects, " /Im%d %d 0 R", i+1, nr)
		}
		resources := "<< /Font << /F1 3 0 R >>"
		if xobjects.Len() > 0 {
			resources += " /XObject <<" + xobjects.String() + " >>"
		}
		resources += " >>"

		page := b.add(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>",
			resources, content))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}

	b.set(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.set(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	b.set(3, fontObject(opts.OmitWidths))

	return b.bytes()
}

// Write builds a document into dir/name and returns its path.
func Write(t testing.TB, dir, name string, pages ...Page) string {
	t.Helper()
	return WriteWith(t, dir, name, Options{}, pages...)
}

// WriteWith is Write with explicit options.
func WriteWith(t testing.TB, dir, name string, opts Options, pages ...Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages, opts), 0o600); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
	return path
}

type builder struct {
	objects []string
}

func (b *builder) reserve(n int) {
	b.objects = append(b.objects, make([]string, n)...)
}

func (b *builder) add(obj string) int {
	b.objects = append(b.objects, obj)
	return len(b.objects)
}

func (b *builder) set(nr int, obj string) {
	b.objects[nr-1] = obj
}

func (b *builder) bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects))
	for i, obj := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, xref)
	return buf.Bytes()
}

func fontObject(omitWidths bool) string {
	if omitWidths {
		return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	}
	widths := make([]string, len(helveticaWidths))
	for i, w := range helveticaWidths {
		widths[i] = strconv.Itoa(w)
	}
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding" +
		" /FirstChar 32 /LastChar 126 /Widths [" + strings.Join(widths, " ") + "] >>"
}

// helveticaWidths are the Helvetica AFM advance widths for WinAnsi codes
// 32..126. Readers that place glyphs by /Widths (MuPDF among them) split
// words apart when these disagree with the real font.
var helveticaWidths = [...]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // 32-47
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556, // 48-63
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778, // 64-79
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556, // 80-95
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556, // 96-111
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584, // 112-126
}

// imageObject returns a 2x2 gray image. The seed varies the pixels so
// optimizers do not fold images together.
func imageObject(seed int) string {
	return "<< /Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceGray" +
		" /BitsPerComponent 8 /Length 4 >>\nstream\n" +
		string([]byte{byte(seed), 0x80, 0x40, 0xff}) + "\nendstream"
}

func contentStream(p Page) string {
	var s strings.Builder
	for _, t := range p.Texts {
		size := t.Size
		if size == 0 {
			size = DefaultSize
		}
		fmt.Fprintf(&s, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(size), num(t.X), num(t.Y), escape(t.S))
	}
	for i := 0; i < p.Images; i++ {
		fmt.Fprintf(&s, "q 100 0 0 100 %d %d cm /Im%d Do Q\n", 72+i*110, 100, i+1)
	}
	s.WriteString(p.Raw)
	data := s.String()
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
