package layout

import (
	"math"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/template"
)

// ResolvedLayout 是一次渲染中每个元素的有效 y 与高度（画布单位），用完即弃。
type ResolvedLayout struct {
	Y         map[string]float64 `json:"y"`
	H         map[string]float64 `json:"h"`
	Passes    int                `json:"passes"`
	Converged bool               `json:"converged"`
}

// Geometry returns el's authored geometry with the resolved y and h.
func (l ResolvedLayout) Geometry(el *template.Element) template.Geometry {
	g := el.Geometry
	if y, ok := l.Y[el.ID]; ok {
		g.Y = y
	}
	if h, ok := l.H[el.ID]; ok {
		g.H = h
	}
	return g
}

// Apply returns a copy of doc whose elements carry the resolved geometry.
// Captured offsets, deltas and containers are kept as they are.
func (l ResolvedLayout) Apply(doc *template.Document) *template.Document {
	out := &template.Document{Canvas: doc.Canvas, Skipped: doc.Skipped}
	elements := make([]*template.Element, len(doc.Elements))
	for i, el := range doc.Elements {
		cp := *el
		if el.Kind != template.KindUnknown {
			cp.Geometry = l.Geometry(el)
		}
		elements[i] = &cp
	}
	out.Elements = elements
	return template.Rebuild(out)
}

// state 是一次迭代的输入或输出；每个 pass 都返回新的 state，不修改入参。
type state struct {
	y, h map[string]float64
}

func (s state) clone() state {
	n := state{y: make(map[string]float64, len(s.y)), h: make(map[string]float64, len(s.h))}
	for k, v := range s.y {
		n.y[k] = v
	}
	for k, v := range s.h {
		n.h[k] = v
	}
	return n
}

func (s state) delta(o state) float64 {
	d := 0.0
	for k, v := range s.y {
		d = math.Max(d, math.Abs(v-o.y[k]))
	}
	for k, v := range s.h {
		d = math.Max(d, math.Abs(v-o.h[k]))
	}
	return d
}

type resolver struct {
	doc      *template.Document
	snap     *invoice.Snapshot
	opts     RenderOptions
	sc       scale
	bottom   float64 // 画布单位的页面下边界
	elements []*template.Element
	text     map[string]float64 // autoGrow 文本所需高度，与状态无关，预先计算
	tables   map[string]tableNeed
}

type tableNeed struct {
	rows  int
	style tableStyle
}

func newResolver(doc *template.Document, snap *invoice.Snapshot, opts RenderOptions) *resolver {
	sc := newScale(doc.Canvas.Width, doc.Canvas.Height, opts.PageWidth, opts.PageHeight)
	r := &resolver{
		doc:    doc,
		snap:   snap,
		opts:   opts,
		sc:     sc,
		bottom: (opts.PageHeight - opts.Margin.Bottom) / sc.sy,
		text:   map[string]float64{},
		tables: map[string]tableNeed{},
	}
	for _, el := range doc.Elements {
		if el == nil || el.Kind == template.KindUnknown {
			continue
		}
		if got, ok := doc.Lookup(el.ID); !ok || got != el {
			continue
		}
		r.elements = append(r.elements, el)
		switch {
		case el.Kind == template.KindTable:
			r.tables[el.ID] = tableNeed{
				rows:  len(TableRows(el.Table, snap)),
				style: newTableStyle(el.Style, sc, opts.Measurer),
			}
		case el.Kind == template.KindText && el.Behavior.AutoGrow:
			r.text[el.ID] = layoutText(el, snap, opts.Measurer).height()
		}
	}
	return r
}

// Resolve 从声明的几何开始迭代 lock、内容增高、grow-with 三个 pass，
// 直到变化不超过阈值或达到最多 6 轮。只有显式关联的元素会移动或变高。
func Resolve(doc *template.Document, snap *invoice.Snapshot, opts RenderOptions) ResolvedLayout {
	opts = opts.withDefaults()
	if doc == nil {
		return ResolvedLayout{Y: map[string]float64{}, H: map[string]float64{}, Converged: true}
	}
	return newResolver(doc, snap, opts).run()
}

func (r *resolver) run() ResolvedLayout {
	cur := r.initial()
	out := ResolvedLayout{}
	for out.Passes < r.opts.MaxPasses {
		next := r.growWithPass(r.growPass(r.lockPass(cur)))
		out.Passes++
		d := next.delta(cur)
		cur = next
		if d <= r.opts.Tolerance {
			out.Converged = true
			break
		}
	}
	out.Y, out.H = cur.y, cur.h
	return out
}

func (r *resolver) initial() state {
	s := state{y: map[string]float64{}, h: map[string]float64{}}
	for _, el := range r.elements {
		s.y[el.ID] = el.Geometry.Y
		s.h[el.ID] = atLeast(el.MinHeight(), minExtent)
	}
	return s
}

// lockPass 计算锁定元素与被容器跟随元素的 y。锁链在同一轮内递归解析，
// 遇到环时取目标上一轮的值。
func (r *resolver) lockPass(cur state) state {
	next := cur.clone()
	done := map[string]bool{}
	visiting := map[string]bool{}
	var place func(el *template.Element) float64
	place = func(el *template.Element) float64 {
		if done[el.ID] {
			return next.y[el.ID]
		}
		if visiting[el.ID] {
			return cur.y[el.ID]
		}
		visiting[el.ID] = true
		defer delete(visiting, el.ID)

		y := el.Geometry.Y
		b := el.Behavior
		if target, ok := r.doc.Lookup(b.LockToID); ok {
			ty := place(target)
			y = template.LockAnchor(b.LockMode, ty, cur.h[target.ID], cur.h[el.ID]) + b.LockOffset
		} else if box, ok := r.doc.Lookup(el.ContainerID); ok {
			y = place(box) + (el.Geometry.Y - box.Geometry.Y)
		}
		y = math.Max(y, 0)
		next.y[el.ID] = y
		done[el.ID] = true
		return y
	}
	for _, el := range r.elements {
		place(el)
	}
	return next
}

// growPass 计算表格与 autoGrow 文本的内容高度。
func (r *resolver) growPass(cur state) state {
	next := cur.clone()
	for _, el := range r.elements {
		switch el.Kind {
		case template.KindTable:
			need := r.tables[el.ID]
			next.h[el.ID] = autoGrowTableHeight(el, cur.y[el.ID], need.rows, need.style, r.sc, r.bottom)
		case template.KindText:
			if h, ok := r.text[el.ID]; ok {
				next.h[el.ID] = math.Max(atLeast(el.MinHeight(), minExtent), h)
			}
		}
	}
	return next
}

// growWithPass 让带 growWithId 的盒子跟随目标高度，保持加载时记录的差值。
func (r *resolver) growWithPass(cur state) state {
	next := cur.clone()
	done := map[string]bool{}
	visiting := map[string]bool{}
	var size func(el *template.Element) float64
	size = func(el *template.Element) float64 {
		if done[el.ID] {
			return next.h[el.ID]
		}
		if visiting[el.ID] || el.Kind != template.KindBox || el.Behavior.GrowWithID == "" {
			return cur.h[el.ID]
		}
		target, ok := r.doc.Lookup(el.Behavior.GrowWithID)
		if !ok {
			return cur.h[el.ID]
		}
		visiting[el.ID] = true
		defer delete(visiting, el.ID)
		h := math.Max(atLeast(el.MinHeight(), minExtent), size(target)+el.Behavior.GrowDelta)
		next.h[el.ID] = h
		done[el.ID] = true
		return h
	}
	for _, el := range r.elements {
		size(el)
	}
	return next
}
