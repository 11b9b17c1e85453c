// Package template holds the canvas document model: an ordered list of
// positioned elements in author coordinates plus their relationships.
package template

// Kind is the closed set of element variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindBox
	KindImage
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBox:
		return "box"
	case KindImage:
		return "image"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// TableKind selects the row source of a table placeholder.
type TableKind string

const (
	TableLabor     TableKind = "labor"
	TableMaterials TableKind = "materials"
)

// LockMode places an element relative to its lock target.
type LockMode string

const (
	LockBelow       LockMode = "below"
	LockAbove       LockMode = "above"
	LockAlignTop    LockMode = "align_top"
	LockAlignBottom LockMode = "align_bottom"
)

// Document 是一次渲染的只读输入。
type Document struct {
	Canvas   Canvas     `json:"canvas"`
	Elements []*Element `json:"elements"`

	// Skipped 记录加载时被判定为无效的元素（仍保留在 Elements 中，Kind 为 KindUnknown）。
	Skipped []Skip `json:"skipped,omitempty"`

	index map[string]*Element
}

// Skip explains why an element was demoted to KindUnknown.
type Skip struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Canvas 描述作者坐标空间，与最终纸张尺寸无关。
type Canvas struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Background string  `json:"background,omitempty"`
}

// Geometry is the authored box in canvas units.
type Geometry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Bottom returns Y+H.
func (g Geometry) Bottom() float64 { return g.Y + g.H }

// Contains reports whether o lies fully inside g.
func (g Geometry) Contains(o Geometry) bool {
	return o.X >= g.X && o.Y >= g.Y && o.X+o.W <= g.X+g.W && o.Y+o.H <= g.Y+g.H
}

// Style 保存元素的视觉属性；颜色为 #RGB / #RRGGBB 字符串，渲染时解析。
type Style struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	Color       string  `json:"color,omitempty"`
	FontFamily  string  `json:"fontFamily,omitempty"`
	FontWeight  string  `json:"fontWeight,omitempty"`
	FontStyle   string  `json:"fontStyle,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	Align       string  `json:"align,omitempty"`
	LineSpacing float64 `json:"lineSpacing,omitempty"`
	Underline   bool    `json:"underline,omitempty"`
	Padding     float64 `json:"padding,omitempty"`
}

// Bold reports whether the weight asks for a bold face.
func (s Style) Bold() bool {
	switch s.FontWeight {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// Italic reports whether the style asks for an italic face.
func (s Style) Italic() bool {
	return s.FontStyle == "italic" || s.FontStyle == "oblique"
}

// Content 三选一：普通文本、富文本或图片来源。
type Content struct {
	Text     string `json:"text,omitempty"`
	RichText string `json:"richText,omitempty"`
	Src      string `json:"src,omitempty"`
}

// Behavior carries the layout relationships of an element.
type Behavior struct {
	AutoGrow   bool     `json:"autoGrow,omitempty"`
	MinH       float64  `json:"minH,omitempty"`
	LockToID   string   `json:"lockToId,omitempty"`
	LockMode   LockMode `json:"lockMode,omitempty"`
	LockOffset float64  `json:"lockOffset"`
	GrowWithID string   `json:"growWithId,omitempty"`
	GrowDelta  float64  `json:"growDelta"`

	// 为 false 时在加载阶段按作者布局推导偏移量/差值。
	LockOffsetSet bool `json:"-"`
	GrowDeltaSet  bool `json:"-"`
}

// Element is one positioned item on the canvas.
type Element struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"-"`
	Table    TableKind `json:"table,omitempty"`
	Geometry Geometry  `json:"geometry"`
	Style    Style     `json:"style"`
	Content  Content   `json:"content"`
	Behavior Behavior  `json:"behavior"`

	// ContainerID 是作者布局时完整包含本元素、且自身带 growWithId 的盒子。
	ContainerID string `json:"containerId,omitempty"`
	// Rich 表示文本来自 richText，需要保留空白。
	Rich bool `json:"rich,omitempty"`
	// RawType 保留模板中的原始 type，便于调试被跳过的元素。
	RawType string `json:"type"`
}

// MinHeight is the floor for the element's resolved height.
func (e *Element) MinHeight() float64 {
	if e.Behavior.MinH > e.Geometry.H {
		return e.Behavior.MinH
	}
	return e.Geometry.H
}

// Lookup returns the element with id. Unknown elements are never returned.
func (d *Document) Lookup(id string) (*Element, bool) {
	if d == nil || id == "" {
		return nil, false
	}
	if d.index != nil {
		el, ok := d.index[id]
		return el, ok
	}
	for _, el := range d.Elements {
		if el != nil && el.ID == id && el.Kind != KindUnknown {
			return el, true
		}
	}
	return nil, false
}

func (d *Document) reindex() {
	d.index = make(map[string]*Element, len(d.Elements))
	for _, el := range d.Elements {
		if el == nil || el.ID == "" || el.Kind == KindUnknown {
			continue
		}
		if _, dup := d.index[el.ID]; dup {
			continue
		}
		d.index[el.ID] = el
	}
}

// Rebuild refreshes the id index after Elements was replaced. Relations and
// containers are left untouched.
func Rebuild(d *Document) *Document {
	d.reindex()
	return d
}
