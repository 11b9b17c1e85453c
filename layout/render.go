package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/logging"
	"github.com/ByLCY/invoicecanvas/template"
)

// ErrNoPages is returned by renderers handed a result without pages.
var ErrNoPages = errors.New("layout: 缺少可渲染的页面")

const (
	defaultStrokeWidth = 1.0
	creator            = "invoicecanvas"
)

// pageWriter 按绘制顺序收集一页的操作。
type pageWriter struct {
	page *Page
}

func (pw *pageWriter) rect(r Rect) {
	pw.page.Ops = append(pw.page.Ops, Op{Kind: OpRect, Rect: &r})
}

func (pw *pageWriter) line(l Line) {
	pw.page.Ops = append(pw.page.Ops, Op{Kind: OpLine, Line: &l})
}

func (pw *pageWriter) text(t TextBox) {
	pw.page.Ops = append(pw.page.Ops, Op{Kind: OpText, Text: &t})
}

func (pw *pageWriter) image(i ImageBox) {
	pw.page.Ops = append(pw.page.Ops, Op{Kind: OpImage, Image: &i})
}

// overflowJob 是首页放不下、待排到续页的表格行。
type overflowJob struct {
	id    string
	kind  template.TableKind
	rows  []invoice.Row
	x, w  float64 // pt
	style tableStyle
}

// renderer 持有一次渲染的全部状态，不跨调用复用。
type renderer struct {
	doc    *template.Document
	snap   *invoice.Snapshot
	opts   RenderOptions
	sc     scale
	log    *slog.Logger
	layout ResolvedLayout
	res    *resolver

	pages []*Page
	jobs  []overflowJob
}

// Render 解析布局并生成分页结果：首页按作者顺序绘制全部元素，
// 放不下的表格行作为溢出任务依次排到续页。
func Render(doc *template.Document, snap *invoice.Snapshot, opts RenderOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	opts = opts.withDefaults()
	r := &renderer{
		doc:  doc,
		snap: snap,
		opts: opts,
		log:  logging.Or(opts.Logger),
	}
	for _, s := range doc.Skipped {
		r.log.Debug("跳过无效元素", "index", s.Index, "id", s.ID, "reason", s.Reason)
	}

	// Resolving
	r.res = newResolver(doc, snap, opts)
	r.sc = r.res.sc
	r.layout = r.res.run()
	if !r.layout.Converged {
		r.log.Debug("布局未在限定轮数内收敛", "passes", r.layout.Passes)
	}

	// FirstPageDrawing
	first := r.newPage(false)
	for _, el := range doc.Elements {
		r.drawElement(first, el)
	}

	// ContinuationDrawing
	for _, job := range r.jobs {
		r.drain(job)
	}

	if len(r.pages) == 0 {
		return nil, ErrNoPages
	}
	pages := make([]Page, len(r.pages))
	for i, p := range r.pages {
		pages[i] = *p
	}
	return &Result{Pages: pages, Layout: r.layout, Meta: r.meta()}, nil
}

func (r *renderer) newPage(cont bool) *pageWriter {
	page := &Page{Width: r.opts.PageWidth, Height: r.opts.PageHeight, Continuation: cont}
	r.pages = append(r.pages, page)
	pw := &pageWriter{page: page}
	if bg := optionalColor(r.doc.Canvas.Background); bg != nil {
		pw.rect(Rect{Width: r.opts.PageWidth, Height: r.opts.PageHeight, FillColor: bg})
	}
	return pw
}

// pageBox 把元素的已解析几何换算为页面坐标，非正宽高钳制到最小值。
func (r *renderer) pageBox(el *template.Element) Rect {
	g := r.layout.Geometry(el)
	return Rect{
		X:      r.sc.x(g.X),
		Y:      r.sc.y(g.Y),
		Width:  r.sc.x(atLeast(g.W, minExtent)),
		Height: r.sc.y(atLeast(g.H, minExtent)),
	}
}

func (r *renderer) drawElement(pw *pageWriter, el *template.Element) {
	if el == nil {
		return
	}
	switch el.Kind {
	case template.KindBox:
		r.drawBox(pw, el)
	case template.KindImage:
		r.drawImage(pw, el)
	case template.KindText:
		r.drawText(pw, el)
	case template.KindTable:
		r.drawTableElement(pw, el)
	default:
		r.log.Debug("跳过未知元素", "id", el.ID, "type", el.RawType)
	}
}

// styledRect 生成带样式的背景/边框；没有填充和描边时返回 false。
func (r *renderer) styledRect(el *template.Element, box Rect) (Rect, bool) {
	fill, stroke := optionalColor(el.Style.Fill), optionalColor(el.Style.Stroke)
	if fill == nil && stroke == nil {
		return Rect{}, false
	}
	box.FillColor, box.StrokeColor = fill, stroke
	if stroke != nil {
		w := el.Style.StrokeWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		box.StrokeWidth = w * r.sc.font
	}
	box.Radius = atLeast(el.Style.Radius, 0) * r.sc.font
	return box, true
}

func (r *renderer) drawBox(pw *pageWriter, el *template.Element) {
	if rect, ok := r.styledRect(el, r.pageBox(el)); ok {
		pw.rect(rect)
	}
}

func (r *renderer) drawImage(pw *pageWriter, el *template.Element) {
	box := r.pageBox(el)
	if rect, ok := r.styledRect(el, box); ok {
		pw.rect(rect)
	}
	img, src, err := loadImage(el.Content.Src, r.snap, r.opts.Images)
	if err != nil {
		r.log.Warn("图片加载失败", "id", el.ID, "src", src, "error", err)
		return
	}
	fit, ok := fitImage(img, box)
	if !ok {
		r.log.Warn("图片加载失败", "id", el.ID, "src", src, "error", "图片尺寸为空")
		return
	}
	pw.image(ImageBox{Source: src, X: fit.X, Y: fit.Y, Width: fit.Width, Height: fit.Height, Image: img})
}

func (r *renderer) drawText(pw *pageWriter, el *template.Element) {
	box := r.pageBox(el)
	if rect, ok := r.styledRect(el, box); ok {
		pw.rect(rect)
	}
	tl := layoutText(el, r.snap, r.opts.Measurer)
	size := tl.size * r.sc.font
	fm := Metrics(r.opts.Measurer, tl.font, size)
	color := resolveColor(el.Style.Color, defaultTextColor)
	pad := r.sc.x(tl.padding)
	left, width := box.X+pad, box.Width-2*pad
	for i, raw := range tl.lines {
		line := trimBreak(raw)
		if line == "" {
			continue
		}
		top := box.Y + r.sc.y(tl.padding+float64(i)*tl.lineH)
		baseline := top + fm.Ascent
		w := Measure(r.opts.Measurer, line, tl.font, size)
		x := left + alignOffset(width, w, el.Style.Align)
		pw.text(TextBox{
			Content:  line,
			X:        x,
			Y:        baseline,
			Width:    w,
			Font:     tl.font,
			FontSize: size,
			Color:    color,
			Align:    el.Style.Align,
			Element:  el.ID,
		})
		if el.Style.Underline {
			uy := baseline + fm.Descent/2
			pw.line(Line{X1: x, Y1: uy, X2: x + w, Y2: uy, Color: color, Width: size / 16})
		}
	}
}

func (r *renderer) drawTableElement(pw *pageWriter, el *template.Element) {
	need := r.res.tables[el.ID]
	rows := TableRows(el.Table, r.snap)
	box := r.pageBox(el)
	// 首页可用高度同时受页面下边距限制，被锁定推到页底以下的表格整体转到续页
	if room := r.opts.PageHeight - r.opts.Margin.Bottom - box.Y; room < box.Height {
		box.Height = math.Max(room, 0)
	}
	rest := rows
	if box.Height >= need.style.rowH {
		rest = drawTable(pw, el.ID, el.Table, rows, box, need.style, false, false)
	}
	if len(rest) == 0 {
		return
	}
	r.log.Info("表格溢出到续页", "id", el.ID, "rows", len(rows), "overflow", len(rest))
	r.jobs = append(r.jobs, overflowJob{id: el.ID, kind: el.Table, rows: rest, x: box.X, w: box.Width, style: need.style})
}

// drain 把一个溢出任务排到若干续页上，直到行全部绘制完。每页至少一行。
func (r *renderer) drain(job overflowJob) {
	top := r.opts.Margin.Top
	height := r.opts.PageHeight - r.opts.Margin.Bottom - top
	rows := job.rows
	for len(rows) > 0 {
		pw := r.newPage(true)
		box := Rect{X: job.x, Y: top, Width: job.w, Height: height}
		rows = drawTable(pw, job.id, job.kind, rows, box, job.style, true, true)
	}
}

func (r *renderer) meta() DocumentMeta {
	meta := DocumentMeta{Subject: "Invoice", Creator: creator}
	if r.snap != nil {
		meta.Title = r.snap.InvoiceNumber
		meta.Author = r.snap.Business.Name
		if r.snap.Customer.Name != "" {
			meta.Keywords = append(meta.Keywords, r.snap.Customer.Name)
		}
	}
	return meta
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch align {
	case "center", "middle":
		return (container - width) / 2
	case "right", "end":
		return container - width
	default:
		return 0
	}
}
