package layout

import "image"

// 该文件定义布局结果，供渲染器与调试 JSON 共用。所有页面坐标单位为 pt，原点在左上角。

// Result 保存分页后的页面、求解后的布局与文档元信息。
type Result struct {
	Pages  []Page         `json:"pages"`
	Layout ResolvedLayout `json:"layout"`
	Meta   DocumentMeta   `json:"meta"`
}

// Page 记录页面尺寸与按绘制顺序排列的操作。
type Page struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Continuation bool    `json:"continuation,omitempty"`
	Ops          []Op    `json:"ops"`
}

// OpKind names a drawing primitive.
type OpKind string

const (
	OpRect  OpKind = "rect"
	OpImage OpKind = "image"
	OpText  OpKind = "text"
	OpLine  OpKind = "line"
)

// Op 是单个绘制操作，Kind 决定哪个字段有效。
type Op struct {
	Kind  OpKind    `json:"kind"`
	Rect  *Rect     `json:"rect,omitempty"`
	Image *ImageBox `json:"image,omitempty"`
	Text  *TextBox  `json:"text,omitempty"`
	Line  *Line     `json:"line,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// FontSpec selects a face; Family is resolved by the Measurer/renderer.
type FontSpec struct {
	Family string `json:"family,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// TextBox 是一行已经定位好的文本，Y 为基线位置。
type TextBox struct {
	Content  string   `json:"content"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"` // 测得的行宽
	Font     FontSpec `json:"font"`
	FontSize float64  `json:"fontSize"`
	Color    Color    `json:"color"`
	Align    string   `json:"align,omitempty"`
	Element  string   `json:"element,omitempty"`
}

// ImageBox 是已解码并按比例缩放、居中后的图片。
type ImageBox struct {
	Source string      `json:"source"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Image  image.Image `json:"-"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // <=0 时由渲染器给默认值
}

// Rect 表示一个矩形；颜色为空表示不填充/不描边。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	FillColor   *Color  `json:"fillColor,omitempty"`
	StrokeColor *Color  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
}

// Margin 以 pt 为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// OpsOf returns the ops of one kind, in draw order.
func (p Page) OpsOf(kind OpKind) []Op {
	var out []Op
	for _, op := range p.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
