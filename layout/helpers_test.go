package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/template"
)

// stubMeasurer 是测试用的等宽度量：每个字符宽 size/2，行高 1.2×size。
type stubMeasurer struct{}

func (stubMeasurer) TextWidth(text string, _ FontSpec, size float64) float64 {
	return size / 2 * float64(utf8.RuneCountInString(strings.TrimSuffix(text, "\n")))
}

func (stubMeasurer) FontMetrics(_ FontSpec, size float64) FontMetrics {
	return FontMetrics{Ascent: 0.8 * size, Descent: 0.2 * size, LineHeight: 1.2 * size}
}

// testOptions 使用 Letter 页面与 612×792 画布，比例为 1，表格行高为 20pt。
func testOptions() RenderOptions {
	opts := DefaultRenderOptions()
	opts.Measurer = stubMeasurer{}
	return opts
}

var letterCanvas = template.Canvas{Width: 612, Height: 792}

func laborSnapshot(n int) *invoice.Snapshot {
	snap := &invoice.Snapshot{InvoiceNumber: "INV-42", Business: invoice.Party{Name: "Acme Electric"}}
	for i := 1; i <= n; i++ {
		snap.LaborItems = append(snap.LaborItems, invoice.Labor{
			Description: fmt.Sprintf("Task %02d", i),
			Hours:       1,
			Rate:        10,
		})
	}
	return snap
}

func textEl(id string, g template.Geometry, text string) *template.Element {
	return &template.Element{ID: id, Kind: template.KindText, Geometry: g, Content: template.Content{Text: text}}
}

func boxEl(id string, g template.Geometry) *template.Element {
	return &template.Element{ID: id, Kind: template.KindBox, Geometry: g, Style: template.Style{Stroke: "#333333"}}
}

func tableEl(id string, kind template.TableKind, g template.Geometry) *template.Element {
	return &template.Element{ID: id, Kind: template.KindTable, Table: kind, Geometry: g}
}

// tableRowsOn 返回某页上属于表格 id 的数据行首列文本（按绘制顺序）。
func tableRowsOn(p Page, id, prefix string) []string {
	var out []string
	for _, op := range p.OpsOf(OpText) {
		if op.Text.Element == id && strings.HasPrefix(op.Text.Content, prefix) {
			out = append(out, op.Text.Content)
		}
	}
	return out
}
