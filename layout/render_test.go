package layout

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/logging"
	"github.com/ByLCY/invoicecanvas/template"
)

func TestLaborTableOverflowsToContinuationPages(t *testing.T) {
	table := tableEl("labor", template.TableLabor, template.Geometry{X: 40, Y: 100, W: 500, H: 220})
	doc := template.New(template.Canvas{Width: 612, Height: 792, Background: "#fafafa"}, table)
	rec := logging.NewRecorder(slog.LevelDebug)
	opts := testOptions()
	opts.Logger = slog.New(rec)

	res, err := Render(doc, laborSnapshot(50), opts)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	n := FitRows(res.Layout.H["labor"], 20, 20)
	if n != 31 {
		t.Fatalf("fit count = %d, want 31", n)
	}
	if len(res.Pages) < 2 {
		t.Fatalf("expected continuation pages, got %d page(s)", len(res.Pages))
	}
	first := tableRowsOn(res.Pages[0], "labor", "Task")
	if len(first) != n {
		t.Fatalf("page 1 rows = %d, want %d", len(first), n)
	}
	var all []string
	for i, p := range res.Pages {
		if i > 0 && !p.Continuation {
			t.Fatalf("page %d should be a continuation page", i+1)
		}
		if bg := p.Ops[0]; bg.Kind != OpRect || bg.Rect.Width != 612 || bg.Rect.FillColor == nil {
			t.Fatalf("page %d should start with the background", i+1)
		}
		all = append(all, tableRowsOn(p, "labor", "Task")...)
	}
	var want []string
	for i := 1; i <= 50; i++ {
		want = append(want, fmt.Sprintf("Task %02d", i))
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("rows across pages (-want +got):\n%s", diff)
	}
	if got := tableRowsOn(res.Pages[1], "labor", "Description"); len(got) != 1 || got[0] != "Description (cont.)" {
		t.Fatalf("continuation header = %v", got)
	}
	if !rec.Contains("表格溢出到续页") {
		t.Fatalf("overflow should be logged")
	}
}

func TestTableRowCountsPreserved(t *testing.T) {
	for _, count := range []int{0, 1, 10, 31, 32, 120} {
		table := tableEl("labor", template.TableLabor, template.Geometry{X: 40, Y: 100, W: 500, H: 60})
		doc := template.New(letterCanvas, table)
		res, err := Render(doc, laborSnapshot(count), testOptions())
		if err != nil {
			t.Fatalf("Render error: %v", err)
		}
		total := 0
		for _, p := range res.Pages {
			total += len(tableRowsOn(p, "labor", "Task"))
		}
		if total != count {
			t.Fatalf("%d rows in, %d rows drawn", count, total)
		}
		if count == 0 && len(res.Pages) != 1 {
			t.Fatalf("empty table should not add pages")
		}
	}
}

func TestRenderSubstitutesTokens(t *testing.T) {
	title := textEl("title", template.Geometry{X: 40, Y: 40, W: 300, H: 30}, "Invoice {{invoice_number}} for {{ nickname }}")
	right := textEl("due", template.Geometry{X: 300, Y: 80, W: 200, H: 20}, "{{labor_total}}")
	right.Style.Align = "right"
	right.Style.Underline = true
	doc := template.New(letterCanvas, title, right)

	res, err := Render(doc, laborSnapshot(3), testOptions())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	texts := res.Pages[0].OpsOf(OpText)
	if len(texts) != 2 {
		t.Fatalf("expected 2 text ops, got %d", len(texts))
	}
	if got := texts[0].Text.Content; got != "Invoice INV-42 for {{nickname}}" {
		t.Fatalf("title = %q", got)
	}
	due := texts[1].Text
	if due.Content != "$30.00" {
		t.Fatalf("labor total = %q", due.Content)
	}
	if math.Abs(due.X+due.Width-500) > 1e-9 {
		t.Fatalf("right aligned text should end at the box edge, ends at %g", due.X+due.Width)
	}
	if lines := res.Pages[0].OpsOf(OpLine); len(lines) != 1 || lines[0].Line.Y1 <= due.Y {
		t.Fatalf("underline should sit below the baseline: %+v", lines)
	}
	if res.Meta.Title != "INV-42" || res.Meta.Author != "Acme Electric" {
		t.Fatalf("unexpected meta %+v", res.Meta)
	}
}

func TestRenderSkipsUnknownAndClampsSizes(t *testing.T) {
	doc, err := template.Load(strings.NewReader(`{"canvas":{"width":612,"height":792},"elements":[
	  {"id":"x","type":"sparkle","x":0,"y":0,"w":10,"h":10},
	  {"id":"flat","type":"box","x":10,"y":10,"w":0,"h":-5,"fill":"#ff0000"}
	]}`))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	rec := logging.NewRecorder(slog.LevelDebug)
	opts := testOptions()
	opts.Logger = slog.New(rec)
	res, err := Render(doc, nil, opts)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	rects := res.Pages[0].OpsOf(OpRect)
	if len(rects) != 1 {
		t.Fatalf("expected only the box, got %d rect ops", len(rects))
	}
	if r := rects[0].Rect; r.Width <= 0 || r.Height <= 0 {
		t.Fatalf("non-positive size should be clamped: %+v", r)
	}
	if !rec.Contains("跳过") {
		t.Fatalf("skipped element should be logged")
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRenderLogoFitsBox(t *testing.T) {
	logo := &template.Element{ID: "logo", Kind: template.KindImage, Geometry: template.Geometry{X: 0, Y: 0, W: 100, H: 100}, Content: template.Content{Src: "{{logo}}"}}
	doc := template.New(letterCanvas, logo)
	snap := laborSnapshot(0)
	snap.Logo.Bytes = pngBytes(t, 20, 10)

	res, err := Render(doc, snap, testOptions())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	imgs := res.Pages[0].OpsOf(OpImage)
	if len(imgs) != 1 {
		t.Fatalf("expected one image op, got %d", len(imgs))
	}
	got := *imgs[0].Image
	got.Image = nil
	want := ImageBox{Source: "{{logo}}", X: 0, Y: 25, Width: 100, Height: 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("image placement (-want +got):\n%s", diff)
	}
}

func TestRenderMissingImageKeepsBackground(t *testing.T) {
	img := &template.Element{
		ID:       "photo",
		Kind:     template.KindImage,
		Geometry: template.Geometry{X: 10, Y: 10, W: 50, H: 50},
		Style:    template.Style{Fill: "#eeeeee", Stroke: "#999"},
		Content:  template.Content{Src: "missing.png"},
	}
	doc := template.New(letterCanvas, img)
	rec := logging.NewRecorder(slog.LevelDebug)
	opts := testOptions()
	opts.Logger = slog.New(rec)
	opts.Images = FileLoader{BaseDir: t.TempDir()}

	res, err := Render(doc, nil, opts)
	if err != nil {
		t.Fatalf("image failure must not be fatal: %v", err)
	}
	if n := len(res.Pages[0].OpsOf(OpImage)); n != 0 {
		t.Fatalf("no image op expected, got %d", n)
	}
	if n := len(res.Pages[0].OpsOf(OpRect)); n != 1 {
		t.Fatalf("styled background should still be drawn, got %d rects", n)
	}
	if !rec.Contains("图片加载失败") {
		t.Fatalf("image failure should be logged")
	}
}

func TestRenderUsesFileLoaderByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stamp.png")
	if err := os.WriteFile(path, pngBytes(t, 8, 8), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	stamp := &template.Element{ID: "stamp", Kind: template.KindImage, Geometry: template.Geometry{X: 10, Y: 10, W: 40, H: 40}, Content: template.Content{Src: path}}
	doc := template.New(letterCanvas, stamp)

	opts := testOptions()
	opts.Images = nil
	if _, ok := opts.withDefaults().Images.(FileLoader); !ok {
		t.Fatalf("默认图片加载器应为 FileLoader")
	}
	res, err := Render(doc, nil, opts)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	imgs := res.Pages[0].OpsOf(OpImage)
	if len(imgs) != 1 {
		t.Fatalf("absolute path should load without a configured loader, got %d image ops", len(imgs))
	}
	if imgs[0].Image.Source != path {
		t.Fatalf("unexpected source %q", imgs[0].Image.Source)
	}

	// 默认加载器没有资源目录，相对路径只记录警告
	stamp.Content.Src = "stamp.png"
	rec := logging.NewRecorder(slog.LevelDebug)
	opts.Logger = slog.New(rec)
	res, err = Render(template.New(letterCanvas, stamp), nil, opts)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if n := len(res.Pages[0].OpsOf(OpImage)); n != 0 || !rec.Contains("图片加载失败") {
		t.Fatalf("relative path without base dir should be skipped with a warning, got %d image ops", n)
	}
}

func TestRenderNilDocument(t *testing.T) {
	if _, err := Render(nil, nil, testOptions()); err == nil {
		t.Fatalf("nil document should fail")
	}
}

func TestRenderScalesToA4(t *testing.T) {
	box := boxEl("b", template.Geometry{X: 100, Y: 100, W: 200, H: 100})
	doc := template.New(template.Canvas{Width: 800, Height: 1000}, box)
	opts := testOptions()
	opts.PageWidth, opts.PageHeight, _ = PageSize("a4")
	res, err := Render(doc, nil, opts)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	r := res.Pages[0].OpsOf(OpRect)[0].Rect
	sx, sy := 595.28/800, 841.89/1000
	if math.Abs(r.X-100*sx) > 1e-9 || math.Abs(r.Height-100*sy) > 1e-9 {
		t.Fatalf("rect not scaled: %+v", r)
	}
	if math.Abs(r.StrokeWidth-math.Min(sx, sy)) > 1e-9 {
		t.Fatalf("stroke width should use the font scale, got %g", r.StrokeWidth)
	}
}

func TestErrNoPagesIsSentinel(t *testing.T) {
	err := fmt.Errorf("render: %w", ErrNoPages)
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("ErrNoPages should survive wrapping")
	}
}

func TestLockedTableBelowPageBottomMovesToContinuation(t *testing.T) {
	labor := tableEl("labor", template.TableLabor, template.Geometry{X: 40, Y: 100, W: 500, H: 100})
	parts := tableEl("parts", template.TableMaterials, template.Geometry{X: 40, Y: 220, W: 500, H: 100})
	parts.Behavior.LockToID = "labor"
	doc := template.New(letterCanvas, labor, parts)
	snap := laborSnapshot(50)
	for i := 1; i <= 3; i++ {
		snap.Materials = append(snap.Materials, invoice.Material{Name: fmt.Sprintf("Part %d", i), Price: 5})
	}

	res, err := Render(doc, snap, testOptions())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if got := res.Layout.Y["parts"]; got != 776 {
		t.Fatalf("parts y = %g, want 776 (pushed below the bottom margin)", got)
	}
	var parts3, labor50 []string
	for i, p := range res.Pages {
		for _, op := range p.OpsOf(OpText) {
			if op.Text.Y > p.Height-36 {
				t.Fatalf("page %d: %q drawn at y=%g past the bottom margin", i+1, op.Text.Content, op.Text.Y)
			}
		}
		for _, l := range p.OpsOf(OpLine) {
			if l.Line.Y1 > p.Height {
				t.Fatalf("page %d: separator at y=%g off the page", i+1, l.Line.Y1)
			}
		}
		parts3 = append(parts3, tableRowsOn(p, "parts", "Part")...)
		labor50 = append(labor50, tableRowsOn(p, "labor", "Task")...)
	}
	if diff := cmp.Diff([]string{"Part 1", "Part 2", "Part 3"}, parts3); diff != "" {
		t.Fatalf("materials rows across pages (-want +got):\n%s", diff)
	}
	if len(labor50) != 50 {
		t.Fatalf("labor rows drawn = %d, want 50", len(labor50))
	}
	if got := tableRowsOn(res.Pages[0], "parts", "Item"); len(got) != 0 {
		t.Fatalf("no parts header expected on page 1, got %v", got)
	}
	last := res.Pages[len(res.Pages)-1]
	if got := tableRowsOn(last, "parts", "Item"); len(got) != 1 || got[0] != "Item (cont.)" {
		t.Fatalf("parts header on continuation page = %v", got)
	}
}

func TestTableClippedAtBottomMargin(t *testing.T) {
	// 声明高度超出页面下边距时，首页只画到下边距为止
	table := tableEl("labor", template.TableLabor, template.Geometry{X: 40, Y: 600, W: 500, H: 400})
	doc := template.New(letterCanvas, table)

	res, err := Render(doc, laborSnapshot(20), testOptions())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	// (792-36-600)=156 → 表头之后放得下 6 行
	if got := len(tableRowsOn(res.Pages[0], "labor", "Task")); got != 6 {
		t.Fatalf("page 1 rows = %d, want 6", got)
	}
	total := 0
	for _, p := range res.Pages {
		total += len(tableRowsOn(p, "labor", "Task"))
	}
	if total != 20 {
		t.Fatalf("rows drawn = %d, want 20", total)
	}
}
