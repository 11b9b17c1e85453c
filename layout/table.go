package layout

import (
	"math"
	"strings"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/template"
)

const (
	tableCellPadding     = 4.0 // pt
	tableBorderWidth     = 0.5 // pt
	defaultTableFontSize = 10.0
	contSuffix           = " (cont.)"
	ellipsis             = "..."
)

// Column 是表格的一列：标题、宽度占比以及是否右对齐（数值列）。
type Column struct {
	Title    string
	Fraction float64
	Numeric  bool
}

// TableSpec returns the columns for a table kind. Unknown kinds get the
// labor layout.
func TableSpec(kind template.TableKind) []Column {
	if kind == template.TableMaterials {
		return []Column{
			{Title: "Item", Fraction: 0.75},
			{Title: "Price", Fraction: 0.25, Numeric: true},
		}
	}
	return []Column{
		{Title: "Description", Fraction: 0.58},
		{Title: "Hours", Fraction: 0.17, Numeric: true},
		{Title: "Amount", Fraction: 0.25, Numeric: true},
	}
}

// TableRows 每次调用都从快照重新推导行数据，不做缓存。
func TableRows(kind template.TableKind, snap *invoice.Snapshot) []invoice.Row {
	if kind == template.TableMaterials {
		return snap.MaterialRows()
	}
	return snap.LaborRows()
}

// FitRows returns how many rows of height row fit below a header band of
// height header inside avail. Never negative.
func FitRows(avail, header, row float64) int {
	if row <= 0 {
		return 0
	}
	n := math.Floor((avail-header)/row + 1e-9)
	if n < 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// tableStyle 是某个表格元素在页面空间（pt）下的字体度量。
type tableStyle struct {
	font     FontSpec
	bold     FontSpec
	size     float64 // pt
	metrics  FontMetrics
	rowH     float64 // pt，表头与数据行同高
	color    Color
	fill     *Color
	stroke   *Color
	measurer Measurer
}

func newTableStyle(st template.Style, sc scale, m Measurer) tableStyle {
	size := st.FontSize
	if size <= 0 {
		size = defaultTableFontSize
	}
	font := FontSpec{Family: st.FontFamily, Italic: st.Italic()}
	ts := tableStyle{
		font:     font,
		bold:     FontSpec{Family: font.Family, Bold: true, Italic: font.Italic},
		size:     size * sc.font,
		color:    resolveColor(st.Color, defaultTextColor),
		fill:     optionalColor(st.Fill),
		stroke:   optionalColor(st.Stroke),
		measurer: m,
	}
	ts.metrics = Metrics(m, ts.font, ts.size)
	ts.rowH = ts.metrics.LineHeight + 2*tableCellPadding
	return ts
}

// rowHeight converts the page-space row height back to canvas units.
func (ts tableStyle) rowHeight(sc scale) float64 {
	return ts.rowH / sc.sy
}

// autoGrowTableHeight 计算一页内放下表头与全部行所需的画布高度，
// 受页面下边距限制，且不低于声明高度。
func autoGrowTableHeight(el *template.Element, y float64, rows int, ts tableStyle, sc scale, bottom float64) float64 {
	declared := el.MinHeight()
	need := float64(rows+1) * ts.rowHeight(sc)
	if room := bottom - y; need > room {
		need = room
	}
	return atLeast(math.Max(declared, need), minExtent)
}

// drawTable 在页面空间的 box 内绘制表头与能放下的行，返回未放下的后缀行（保持原顺序）。
// force 为 true 时至少绘制一行，保证续页能推进。
func drawTable(pw *pageWriter, id string, kind template.TableKind, rows []invoice.Row, box Rect, ts tableStyle, cont, force bool) []invoice.Row {
	cols := TableSpec(kind)
	n := FitRows(box.Height, ts.rowH, ts.rowH)
	if force && n < 1 {
		n = 1
	}
	if n > len(rows) {
		n = len(rows)
	}
	widths := make([]float64, len(cols))
	for i, c := range cols {
		widths[i] = box.Width * c.Fraction
	}

	if ts.fill != nil || ts.stroke != nil {
		frame := box
		frame.FillColor, frame.StrokeColor = ts.fill, ts.stroke
		frame.StrokeWidth = tableBorderWidth
		pw.rect(frame)
	}

	headerFill, headerBorder := tableHeaderFill, tableHeaderBorder
	pw.rect(Rect{X: box.X, Y: box.Y, Width: box.Width, Height: ts.rowH, FillColor: &headerFill, StrokeColor: &headerBorder, StrokeWidth: tableBorderWidth})
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.Title
	}
	if cont {
		titles[0] += contSuffix
	}
	drawTableRow(pw, id, titles, cols, widths, box.X, box.Y, ts, ts.bold)

	y := box.Y + ts.rowH
	for _, row := range rows[:n] {
		baseline := drawTableRow(pw, id, row, cols, widths, box.X, y, ts, ts.font)
		sepY := math.Max(y+ts.rowH, baseline+ts.metrics.Descent)
		pw.line(Line{X1: box.X, Y1: sepY, X2: box.X + box.Width, Y2: sepY, Color: tableBorderColor, Width: tableBorderWidth})
		y += ts.rowH
	}
	return rows[n:]
}

// drawTableRow 绘制一行单元格（单行，超宽时加省略号），返回基线位置。
func drawTableRow(pw *pageWriter, id string, cells []string, cols []Column, widths []float64, x, top float64, ts tableStyle, font FontSpec) float64 {
	baseline := top + tableCellPadding + ts.metrics.Ascent
	for i, col := range cols {
		cell := ""
		if i < len(cells) {
			cell = strings.TrimSpace(cells[i])
		}
		avail := widths[i] - 2*tableCellPadding
		if cell != "" && avail > 0 {
			cell = ellipsize(ts.measurer, cell, font, ts.size, avail)
			w := Measure(ts.measurer, cell, font, ts.size)
			cx := x + tableCellPadding
			align := "left"
			if col.Numeric {
				cx = x + widths[i] - tableCellPadding - w
				align = "right"
			}
			pw.text(TextBox{Content: cell, X: cx, Y: baseline, Width: w, Font: font, FontSize: ts.size, Color: ts.color, Align: align, Element: id})
		}
		x += widths[i]
	}
	return baseline
}

// ellipsize 截断到可用宽度并追加省略号；宽度足够时原样返回。
func ellipsize(m Measurer, s string, font FontSpec, size, avail float64) string {
	if Measure(m, s, font, size) <= avail {
		return s
	}
	runes := []rune(s)
	best := 0
	lo, hi := 1, len(runes)
	for lo <= hi {
		mid := (lo + hi) / 2
		if Measure(m, string(runes[:mid])+ellipsis, font, size) <= avail {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return strings.TrimRight(string(runes[:best]), " ") + ellipsis
}
