package layout

import (
	"github.com/ByLCY/invoicecanvas/binding"
	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/template"
)

const (
	defaultFontSize = 12.0
	// lineSpacing 不超过该值时视为倍数，否则视为绝对行高（画布单位）。
	maxSpacingFactor = 4.0
)

// textLayout 是文本元素在画布单位下的折行结果。
type textLayout struct {
	lines   []string
	font    FontSpec
	size    float64
	lineH   float64
	padding float64
}

func fontOf(st template.Style) FontSpec {
	return FontSpec{Family: st.FontFamily, Bold: st.Bold(), Italic: st.Italic()}
}

func fontSizeOf(st template.Style) float64 {
	if st.FontSize > 0 {
		return st.FontSize
	}
	return defaultFontSize
}

// layoutText 替换占位符后按元素宽度折行。富文本保留空白，普通文本折叠空白。
func layoutText(el *template.Element, snap *invoice.Snapshot, m Measurer) textLayout {
	tl := textLayout{
		font:    fontOf(el.Style),
		size:    fontSizeOf(el.Style),
		padding: atLeast(el.Style.Padding, 0),
	}
	fm := Metrics(m, tl.font, tl.size)
	tl.lineH = fm.LineHeight
	switch sp := el.Style.LineSpacing; {
	case sp > maxSpacingFactor:
		tl.lineH = sp
	case sp > 0:
		tl.lineH *= sp
	}
	width := atLeast(el.Geometry.W-2*tl.padding, minExtent)
	content := binding.Snapshot(el.Content.Text, snap)
	if el.Rich {
		tl.lines = WrapPreserveSpaces(m, content, tl.font, tl.size, width)
	} else {
		tl.lines = Wrap(m, content, tl.font, tl.size, width)
	}
	return tl
}

// height 是容纳全部行所需的画布高度。
func (tl textLayout) height() float64 {
	return float64(len(tl.lines))*tl.lineH + 2*tl.padding
}
