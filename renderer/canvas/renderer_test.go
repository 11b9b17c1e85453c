package canvasrenderer

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/layout"
	"github.com/ByLCY/invoicecanvas/logging"
	"github.com/ByLCY/invoicecanvas/template"
)

func TestTextWidthIsLinearInSize(t *testing.T) {
	r := NewRenderer("")
	small := r.TextWidth("Invoice total", layout.FontSpec{}, 10)
	large := r.TextWidth("Invoice total", layout.FontSpec{}, 20)
	if small <= 0 {
		t.Fatalf("invalid measured width: %g", small)
	}
	if math.Abs(large-2*small) > 0.01*large {
		t.Fatalf("width should scale with size: %g vs %g", small, large)
	}
	if w := r.TextWidth("abc", layout.FontSpec{}, 0); w != 0 {
		t.Fatalf("zero size should measure 0, got %g", w)
	}
	fm := r.FontMetrics(layout.FontSpec{}, 12)
	if fm.Ascent <= 0 || fm.LineHeight < fm.Ascent+fm.Descent {
		t.Fatalf("bad metrics %+v", fm)
	}
}

func TestUnknownFamilyFallsBack(t *testing.T) {
	rec := logging.NewRecorder(slog.LevelDebug)
	r := NewRendererWithOptions(Options{Logger: slog.New(rec)})
	want := r.TextWidth("Invoice", layout.FontSpec{}, 12)
	for i := 0; i < 3; i++ {
		if got := r.TextWidth("Invoice", layout.FontSpec{Family: "Papyrus Display"}, 12); got != want {
			t.Fatalf("fallback width = %g, want %g", got, want)
		}
	}
	n := 0
	for _, rc := range rec.Records() {
		if strings.Contains(rc.Message, "字体不可用") {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("fallback should be logged once, got %d", n)
	}
}

// 行宽恰好等于容器宽度且后面紧跟换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer("")
	first := "SAMPLE-A"
	limit := r.TextWidth(first, layout.FontSpec{}, 12)
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}
	lines := layout.WrapPreserveSpaces(r, first+"\n"+first, layout.FontSpec{}, 12, limit)
	if diff := cmp.Diff([]string{"SAMPLE-A\n", "SAMPLE-A"}, lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

func TestWrapWithRealFontsHonorsWidth(t *testing.T) {
	r := NewRenderer("")
	limit := 85.0 // pt
	content := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa hello world again"
	lines := layout.Wrap(r, content, layout.FontSpec{Bold: true}, 12, limit)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
	for i, ln := range lines {
		if w := r.TextWidth(ln, layout.FontSpec{Bold: true}, 12); w-limit > 1e-6 {
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g", i, w, limit)
		}
	}
}

func TestLoadImage(t *testing.T) {
	r := NewRendererWithOptions(Options{Images: map[string]Resource{"stamp": {Bytes: []byte("png")}}})
	data, err := r.LoadImage("built-in:stamp")
	if err != nil || string(data) != "png" {
		t.Fatalf("built-in image = %q, %v", data, err)
	}
	if _, err := r.LoadImage("builtin:missing"); err == nil {
		t.Fatalf("missing built-in image should fail")
	}
	if _, err := r.LoadImage("logo.png"); err == nil {
		t.Fatalf("relative path without base dir should fail")
	}
}

func TestRenderWithoutPages(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.Render(&layout.Result{}); !errors.Is(err, layout.ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	if _, err := r.Render(nil); !errors.Is(err, layout.ErrNoPages) {
		t.Fatalf("expected ErrNoPages for nil result, got %v", err)
	}
}

func TestRenderInvoicePDF(t *testing.T) {
	var logo bytes.Buffer
	if err := png.Encode(&logo, image.NewRGBA(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	doc := template.New(template.Canvas{Width: 612, Height: 792, Background: "#ffffff"},
		&template.Element{ID: "title", Kind: template.KindText, Geometry: template.Geometry{X: 40, Y: 40, W: 300, H: 30},
			Style: template.Style{FontSize: 20, FontWeight: "bold", Underline: true}, Content: template.Content{Text: "Invoice {{invoice_number}}"}},
		&template.Element{ID: "logo", Kind: template.KindImage, Geometry: template.Geometry{X: 480, Y: 30, W: 80, H: 40},
			Style: template.Style{Stroke: "#cccccc", Radius: 4}, Content: template.Content{Src: "logo"}},
		&template.Element{ID: "labor", Kind: template.KindTable, Table: template.TableLabor, Geometry: template.Geometry{X: 40, Y: 100, W: 520, H: 100}},
	)
	snap := &invoice.Snapshot{InvoiceNumber: "INV-7", Business: invoice.Party{Name: "Acme"}, Logo: invoice.Logo{Bytes: logo.Bytes()}}
	for i := 0; i < 60; i++ {
		snap.LaborItems = append(snap.LaborItems, invoice.Labor{Description: "Rough-in wiring", Hours: 1.5, Rate: 80})
	}

	r := NewRenderer("")
	opts := layout.DefaultRenderOptions()
	opts.Measurer = r
	opts.Images = r
	res, err := layout.Render(doc, snap, opts)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(res.Pages) < 2 {
		t.Fatalf("60 rows should overflow, got %d page(s)", len(res.Pages))
	}
	out, err := r.Render(res)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}
