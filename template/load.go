package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/invoicecanvas/dsl"
	"github.com/ByLCY/invoicecanvas/invoice"
)

// ErrInvalidTemplate is returned when the template cannot be decoded at all.
// Individual bad elements never produce it; they are demoted to KindUnknown.
var ErrInvalidTemplate = errors.New("template: invalid document")

type rawDocument struct {
	Canvas struct {
		Width      invoice.Number `json:"width"`
		Height     invoice.Number `json:"height"`
		Background string         `json:"background"`
	} `json:"canvas"`
	Elements []json.RawMessage `json:"elements"`
}

// rawElement 对应模板 JSON 中扁平的元素结构。
type rawElement struct {
	ID       looseString    `json:"id"`
	Type     string         `json:"type"`
	Table    string         `json:"table"`
	X        invoice.Number `json:"x"`
	Y        invoice.Number `json:"y"`
	W        invoice.Number `json:"w"`
	H        invoice.Number `json:"h"`
	Text     string         `json:"text"`
	RichText string         `json:"richText"`
	Src      string         `json:"src"`

	Fill         string         `json:"fill"`
	Background   string         `json:"background"`
	Stroke       string         `json:"stroke"`
	BorderColor  string         `json:"borderColor"`
	StrokeWidth  invoice.Number `json:"strokeWidth"`
	BorderWidth  invoice.Number `json:"borderWidth"`
	Radius       invoice.Number `json:"radius"`
	BorderRadius invoice.Number `json:"borderRadius"`
	Color        string         `json:"color"`
	FontFamily   string         `json:"fontFamily"`
	FontWeight   looseString    `json:"fontWeight"`
	FontStyle    string         `json:"fontStyle"`
	FontSize     invoice.Number `json:"fontSize"`
	Align        string         `json:"align"`
	TextAlign    string         `json:"textAlign"`
	LineSpacing  invoice.Number `json:"lineSpacing"`
	LineHeight   invoice.Number `json:"lineHeight"`
	Underline    bool           `json:"underline"`
	Padding      invoice.Number `json:"padding"`

	AutoGrow   bool            `json:"autoGrow"`
	MinH       invoice.Number  `json:"minH"`
	LockToID   looseString     `json:"lockToId"`
	LockMode   string          `json:"lockMode"`
	LockOffset *invoice.Number `json:"lockOffset"`
	GrowWithID looseString     `json:"growWithId"`
	GrowDelta  *invoice.Number `json:"growDelta"`
}

// looseString accepts JSON strings and numbers (ids and font weights are
// frequently authored as numbers).
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(strings.Trim(string(b), `"`))
	return nil
}

// Load 解析模板 JSON。只有整体无法解析时才返回错误；单个元素的问题只会让它被跳过。
func Load(r io.Reader) (*Document, error) {
	var raw rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	doc := &Document{
		Canvas: Canvas{
			Width:      float64(raw.Canvas.Width),
			Height:     float64(raw.Canvas.Height),
			Background: strings.TrimSpace(raw.Canvas.Background),
		},
	}
	for i, msg := range raw.Elements {
		var re rawElement
		if err := json.Unmarshal(msg, &re); err != nil {
			doc.Elements = append(doc.Elements, &Element{ID: fmt.Sprintf("_%d", i), Kind: KindUnknown})
			doc.Skipped = append(doc.Skipped, Skip{Index: i, Reason: fmt.Sprintf("无法解析元素: %v", err)})
			continue
		}
		doc.Elements = append(doc.Elements, re.element(i))
	}
	doc.finalize()
	return doc, nil
}

// New builds a document from already-typed elements and runs the same
// load-time derivations as Load (ids, placeholders, offsets, containment).
func New(canvas Canvas, elements ...*Element) *Document {
	doc := &Document{Canvas: canvas, Elements: elements}
	doc.finalize()
	return doc
}

func (re rawElement) element(index int) *Element {
	el := &Element{
		ID:      strings.TrimSpace(string(re.ID)),
		RawType: strings.TrimSpace(re.Type),
		Table:   TableKind(strings.ToLower(strings.TrimSpace(re.Table))),
		Geometry: Geometry{
			X: float64(re.X), Y: float64(re.Y), W: float64(re.W), H: float64(re.H),
		},
		Style: Style{
			Fill:        firstNonEmpty(re.Fill, re.Background),
			Stroke:      firstNonEmpty(re.Stroke, re.BorderColor),
			StrokeWidth: firstNonZero(float64(re.StrokeWidth), float64(re.BorderWidth)),
			Radius:      firstNonZero(float64(re.Radius), float64(re.BorderRadius)),
			Color:       re.Color,
			FontFamily:  re.FontFamily,
			FontWeight:  strings.ToLower(strings.TrimSpace(string(re.FontWeight))),
			FontStyle:   strings.ToLower(strings.TrimSpace(re.FontStyle)),
			FontSize:    float64(re.FontSize),
			Align:       strings.ToLower(firstNonEmpty(re.Align, re.TextAlign)),
			LineSpacing: firstNonZero(float64(re.LineSpacing), float64(re.LineHeight)),
			Underline:   re.Underline,
			Padding:     float64(re.Padding),
		},
		Content: Content{Text: re.Text, RichText: re.RichText, Src: strings.TrimSpace(re.Src)},
		Behavior: Behavior{
			AutoGrow:   re.AutoGrow,
			MinH:       float64(re.MinH),
			LockToID:   strings.TrimSpace(string(re.LockToID)),
			LockMode:   LockMode(strings.ToLower(strings.TrimSpace(re.LockMode))),
			GrowWithID: strings.TrimSpace(string(re.GrowWithID)),
		},
	}
	if re.LockOffset != nil {
		el.Behavior.LockOffset = float64(*re.LockOffset)
		el.Behavior.LockOffsetSet = true
	}
	if re.GrowDelta != nil {
		el.Behavior.GrowDelta = float64(*re.GrowDelta)
		el.Behavior.GrowDeltaSet = true
	}
	if el.ID == "" {
		el.ID = "_" + strconv.Itoa(index)
	}
	return el
}

// finalize 负责类型判定、校验与作者布局下的关系推导。
func (d *Document) finalize() {
	seen := map[string]bool{}
	for i, el := range d.Elements {
		if el == nil {
			el = &Element{ID: fmt.Sprintf("_%d", i)}
			d.Elements[i] = el
		}
		switch el.Kind {
		case KindUnknown:
			el.Kind = classify(el)
		case KindText:
			if name, ok := dsl.TablePlaceholder(el.Content.Text); ok {
				el.Kind = KindTable
				el.Table = placeholderTable(name)
			}
		}
		reason := ""
		switch {
		case el.Kind == KindUnknown:
			reason = fmt.Sprintf("未知元素类型 %q", el.RawType)
		case !finite(el.Geometry):
			reason = "几何数据无效"
		case seen[el.ID]:
			reason = fmt.Sprintf("元素 id %q 重复", el.ID)
		}
		if reason != "" {
			if el.Kind != KindUnknown || !d.skipped(i) {
				d.Skipped = append(d.Skipped, Skip{Index: i, ID: el.ID, Reason: reason})
			}
			el.Kind = KindUnknown
			continue
		}
		seen[el.ID] = true
		if el.Content.RichText != "" && el.Kind == KindText {
			el.Content.Text = FlattenRichText(el.Content.RichText)
			el.Rich = true
		}
		if el.Behavior.LockMode == "" {
			el.Behavior.LockMode = LockBelow
		}
		switch el.Behavior.LockMode {
		case LockBelow, LockAbove, LockAlignTop, LockAlignBottom:
		default:
			el.Behavior.LockMode = LockBelow
		}
	}
	d.reindex()
	d.captureRelations()
	d.trackContainers()
}

func (d *Document) skipped(index int) bool {
	for _, s := range d.Skipped {
		if s.Index == index {
			return true
		}
	}
	return false
}

func classify(el *Element) Kind {
	t := strings.ToLower(el.RawType)
	switch t {
	case "text", "richtext", "rich_text", "label", "field":
		if name, ok := dsl.TablePlaceholder(firstNonEmpty(el.Content.Text, el.Content.RichText)); ok {
			el.Table = placeholderTable(name)
			return KindTable
		}
		return KindText
	case "box", "rect", "rectangle", "shape":
		return KindBox
	case "image", "logo", "img":
		return KindImage
	case "table", "labor_table", "parts_table", "materials_table":
		switch {
		case el.Table == TableLabor || el.Table == TableMaterials:
		case t == "labor_table":
			el.Table = TableLabor
		case t == "parts_table" || t == "materials_table" || el.Table == "parts":
			el.Table = TableMaterials
		default:
			if name, ok := dsl.TablePlaceholder(el.Content.Text); ok {
				el.Table = placeholderTable(name)
			} else {
				return KindUnknown
			}
		}
		return KindTable
	}
	return KindUnknown
}

func placeholderTable(name string) TableKind {
	if name == dsl.PartsTable {
		return TableMaterials
	}
	return TableLabor
}

// captureRelations 记录作者布局下的锁定偏移与 grow-with 差值，并丢弃指向无效目标的关系。
func (d *Document) captureRelations() {
	for _, el := range d.Elements {
		if el.Kind == KindUnknown {
			continue
		}
		b := &el.Behavior
		if b.LockToID != "" {
			target, ok := d.Lookup(b.LockToID)
			if !ok || target == el {
				b.LockToID = ""
			} else if !b.LockOffsetSet {
				b.LockOffset = el.Geometry.Y - LockAnchor(b.LockMode, target.Geometry.Y, target.Geometry.H, el.Geometry.H)
				b.LockOffsetSet = true
			}
		}
		if b.GrowWithID != "" {
			target, ok := d.Lookup(b.GrowWithID)
			if !ok || target == el {
				b.GrowWithID = ""
			} else if !b.GrowDeltaSet {
				b.GrowDelta = el.Geometry.H - target.Geometry.H
				b.GrowDeltaSet = true
			}
		}
	}
}

// trackContainers 找出作者布局时被带 growWithId 的盒子完整包含的元素。
// 取面积最小的盒子作为容器；自身有锁定关系的元素不参与。
func (d *Document) trackContainers() {
	for _, el := range d.Elements {
		el.ContainerID = ""
		if el.Kind == KindUnknown || el.Behavior.LockToID != "" {
			continue
		}
		best := math.Inf(1)
		for _, box := range d.Elements {
			if box == el || box.Kind != KindBox || box.Behavior.GrowWithID == "" {
				continue
			}
			if box.Behavior.LockToID == el.ID {
				continue
			}
			if !box.Geometry.Contains(el.Geometry) {
				continue
			}
			if area := box.Geometry.W * box.Geometry.H; area < best {
				best = area
				el.ContainerID = box.ID
			}
		}
	}
}

// LockAnchor returns the y an element of height h is placed at (before the
// offset) when locked to a target at ty with height th.
func LockAnchor(mode LockMode, ty, th, h float64) float64 {
	switch mode {
	case LockAbove:
		return ty - h
	case LockAlignTop:
		return ty
	case LockAlignBottom:
		return ty + th - h
	default:
		return ty + th
	}
}

func finite(g Geometry) bool {
	for _, v := range []float64{g.X, g.Y, g.W, g.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
