package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/invoicecanvas/fonts"
	"github.com/ByLCY/invoicecanvas/layout"
	"github.com/ByLCY/invoicecanvas/logging"
	"github.com/ByLCY/invoicecanvas/renderer"
)

const hairline = 0.5 // pt

// Renderer draws paginated results via github.com/tdewolff/canvas. It also
// measures text with the same font faces it draws with, so it can be passed
// to the layout as its Measurer.
type Renderer struct {
	baseDir string
	log     *slog.Logger

	// injected resources
	fontBlobs  map[string][]byte // by lower-cased family name
	imageBlobs map[string][]byte // by unique name

	fontMu   sync.Mutex
	families map[string]*fontEntry
	warned   map[string]bool
}

var (
	_ renderer.Renderer  = (*Renderer)(nil)
	_ layout.Measurer    = (*Renderer)(nil)
	_ layout.ImageLoader = (*Renderer)(nil)
)

type fontEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // extra font families, looked up by family name
	Images  map[string]Resource // built-in images accessible via built-in:<name>
	Logger  *slog.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:    opts.BaseDir,
		log:        logging.Or(opts.Logger),
		fontBlobs:  map[string][]byte{},
		imageBlobs: map[string][]byte{},
		families:   map[string]*fontEntry{},
		warned:     map[string]bool{},
	}
	for name, res := range opts.Fonts {
		if data := res.load(); len(data) > 0 && name != "" {
			r.fontBlobs[strings.ToLower(strings.TrimSpace(name))] = data
		}
	}
	for name, res := range opts.Images {
		if data := res.load(); len(data) > 0 && name != "" {
			r.imageBlobs[name] = data
		}
	}
	return r
}

// load 读取失败时返回 nil，真正使用时再报错。
func (res Resource) load() []byte {
	if len(res.Bytes) > 0 {
		return res.Bytes
	}
	if res.Path == "" {
		return nil
	}
	data, _ := os.ReadFile(res.Path)
	return data
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, layout.ErrNoPages
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, toMm(first.Width), toMm(first.Height), nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(toMm(page.Width), toMm(page.Height))
		}
		c := canvas.New(toMm(page.Width), toMm(page.Height))
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawPage 按记录顺序回放绘制操作，后绘制的覆盖先绘制的。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page) error {
	for _, op := range page.Ops {
		switch op.Kind {
		case layout.OpRect:
			if op.Rect != nil {
				r.drawRect(ctx, *op.Rect)
			}
		case layout.OpLine:
			if op.Line != nil {
				r.drawLine(ctx, *op.Line)
			}
		case layout.OpText:
			if op.Text != nil {
				if err := r.drawText(ctx, *op.Text); err != nil {
					return err
				}
			}
		case layout.OpImage:
			if op.Image != nil {
				r.drawImage(ctx, *op.Image)
			}
		}
	}
	return nil
}

func (r *Renderer) drawRect(ctx *canvas.Context, rc layout.Rect) {
	if rc.FillColor != nil {
		ctx.SetFillColor(colorFromLayout(*rc.FillColor))
	} else {
		ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	}
	if rc.StrokeColor != nil && rc.StrokeWidth > 0 {
		ctx.SetStrokeColor(colorFromLayout(*rc.StrokeColor))
		ctx.SetStrokeWidth(toMm(rc.StrokeWidth))
	} else {
		ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
		ctx.SetStrokeWidth(0)
	}
	w, h := toMm(rc.Width), toMm(rc.Height)
	shape := canvas.Rectangle(w, h)
	if rc.Radius > 0 {
		shape = canvas.RoundedRectangle(w, h, toMm(rc.Radius))
	}
	ctx.DrawPath(toMm(rc.X), toMm(rc.Y), shape)
}

func (r *Renderer) drawLine(ctx *canvas.Context, ln layout.Line) {
	w := ln.Width
	if w <= 0 {
		w = hairline
	}
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeColor(colorFromLayout(ln.Color))
	ctx.SetStrokeWidth(toMm(w))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(ln.X2-ln.X1), toMm(ln.Y2-ln.Y1))
	ctx.DrawPath(toMm(ln.X1), toMm(ln.Y1), p)
}

// drawText 绘制单行文本。X 为左端、Y 为基线，对齐已在布局阶段算好。
func (r *Renderer) drawText(ctx *canvas.Context, tb layout.TextBox) error {
	if tb.Content == "" || tb.FontSize <= 0 {
		return nil
	}
	face, err := r.fontFace(tb.Font, tb.FontSize, tb.Color)
	if err != nil {
		return err
	}
	ctx.DrawText(toMm(tb.X), toMm(tb.Y), canvas.NewTextLine(face, tb.Content, canvas.Left))
	return nil
}

func (r *Renderer) drawImage(ctx *canvas.Context, ib layout.ImageBox) {
	img := ib.Image
	if img == nil {
		data, err := r.LoadImage(ib.Source)
		if err == nil {
			img, _, err = image.Decode(bytes.NewReader(data))
		}
		if err != nil {
			r.log.Warn("图片加载失败", "src", ib.Source, "error", err)
			return
		}
	}
	px := float64(img.Bounds().Dx())
	w := toMm(ib.Width)
	if px <= 0 || w <= 0 {
		return
	}
	// CartesianIV 下图片以左下角定位
	ctx.DrawImage(toMm(ib.X), toMm(ib.Y+ib.Height), img, canvas.DPMM(px/w))
}

// LoadImage 实现 layout.ImageLoader：built-in: 前缀读取注入的图片，其余按路径读取。
func (r *Renderer) LoadImage(src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, fmt.Errorf("图片来源为空")
	case strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:"):
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 built-in:%s", name)
		}
		return blob, nil
	}
	data, err := layout.FileLoader{BaseDir: r.baseDir}.LoadImage(src)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
	}
	return data, nil
}

// TextWidth 实现 layout.Measurer，size 与返回值均为 pt。
func (r *Renderer) TextWidth(text string, font layout.FontSpec, size float64) float64 {
	text = strings.TrimRight(text, "\r\n")
	if size <= 0 || text == "" {
		return 0
	}
	face, err := r.fontFace(font, size, layout.Color{})
	if err != nil {
		return layout.EstimateMeasurer{}.TextWidth(text, font, size)
	}
	return toPt(face.TextWidth(text))
}

// FontMetrics 实现 layout.Measurer。
func (r *Renderer) FontMetrics(font layout.FontSpec, size float64) layout.FontMetrics {
	if size <= 0 {
		return layout.FontMetrics{}
	}
	face, err := r.fontFace(font, size, layout.Color{})
	if err != nil {
		return layout.EstimateMeasurer{}.FontMetrics(font, size)
	}
	m := face.Metrics()
	fm := layout.FontMetrics{
		Ascent:     toPt(m.Ascent),
		Descent:    toPt(m.Descent),
		LineHeight: toPt(m.LineHeight),
	}
	if fm.LineHeight < fm.Ascent+fm.Descent {
		fm.LineHeight = fm.Ascent + fm.Descent
	}
	return fm
}

func (r *Renderer) fontFace(font layout.FontSpec, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	entry, err := r.ensureFamily(font)
	if err != nil {
		return nil, err
	}
	return entry.family.Face(sizePt, colorFromLayout(col), entry.style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFamily(font layout.FontSpec) (*fontEntry, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.families[key]; ok {
		return entry, nil
	}
	style := fontStyle(font)
	data, err := r.loadFontBytes(font)
	if err != nil {
		name := strings.ToLower(strings.TrimSpace(font.Family))
		if !r.warned[name] {
			r.warned[name] = true
			r.log.Warn("字体不可用，使用默认字体", "family", font.Family, "error", err)
		}
		data, err = fonts.Load(fonts.DefaultFamily, fonts.Face{Bold: font.Bold, Italic: font.Italic})
		if err != nil {
			return nil, err
		}
	}
	family := canvas.NewFontFamily(key)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("加载字体 %q 失败: %w", font.Family, err)
	}
	entry := &fontEntry{family: family, style: style}
	r.families[key] = entry
	return entry, nil
}

// loadFontBytes 优先使用注入的字体，其次是内置字体。
func (r *Renderer) loadFontBytes(font layout.FontSpec) ([]byte, error) {
	if blob, ok := r.fontBlobs[strings.ToLower(strings.TrimSpace(font.Family))]; ok {
		return blob, nil
	}
	return fonts.Load(font.Family, fonts.Face{Bold: font.Bold, Italic: font.Italic})
}

func fontStyle(font layout.FontSpec) canvas.FontStyle {
	style := canvas.FontRegular
	if font.Bold {
		style = canvas.FontBold
	}
	if font.Italic {
		style |= canvas.FontItalic
	}
	return style
}

func fontCacheKey(font layout.FontSpec) string {
	return fmt.Sprintf("%s|%t|%t", strings.ToLower(strings.TrimSpace(font.Family)), font.Bold, font.Italic)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
