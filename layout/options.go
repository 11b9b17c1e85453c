package layout

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// 页面预设，单位 pt。
var pageSizes = map[string][2]float64{
	"letter": {612, 792},
	"legal":  {612, 1008},
	"a4":     {595.28, 841.89},
	"a5":     {419.53, 595.28},
}

// PageSize 解析页面尺寸：预设名（letter/a4/...）或 "宽x高"（默认 pt，可带 mm/cm/in/pt 单位）。
func PageSize(spec string) (float64, float64, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		s = "letter"
	}
	if size, ok := pageSizes[s]; ok {
		return size[0], size[1], nil
	}
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("无法识别的页面尺寸 %q", spec)
	}
	wPt, hPt := ParseRawLengthStr(parts[0]).ToPT(), ParseRawLengthStr(parts[1]).ToPT()
	if wPt <= 0 || hPt <= 0 {
		return 0, 0, fmt.Errorf("页面尺寸必须为正数: %q", spec)
	}
	return wPt, hPt, nil
}

// ImageLoader 按来源字符串读取图片字节（路径、内置资源名等）。
type ImageLoader interface {
	LoadImage(src string) ([]byte, error)
}

// RenderOptions 配置一次渲染所需的依赖。零值字段由 DefaultRenderOptions 补齐。
type RenderOptions struct {
	PageWidth  float64 // pt
	PageHeight float64 // pt
	Margin     Margin  // pt；续页内容区与表格自动增高的下边界

	Measurer Measurer
	Images   ImageLoader
	Logger   *slog.Logger

	// 解析器收敛阈值（画布单位）与最大迭代次数。
	Tolerance float64
	MaxPasses int
}

const (
	defaultTolerance = 0.01
	defaultMaxPasses = 6
	defaultMargin    = 36
)

// DefaultRenderOptions returns US Letter with half-inch margins, the
// estimate measurer and a FileLoader that only accepts absolute paths.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		PageWidth:  612,
		PageHeight: 792,
		Margin:     Margin{Top: defaultMargin, Right: defaultMargin, Bottom: defaultMargin, Left: defaultMargin},
		Measurer:   EstimateMeasurer{},
		Images:     FileLoader{},
		Tolerance:  defaultTolerance,
		MaxPasses:  defaultMaxPasses,
	}
}

func (o RenderOptions) withDefaults() RenderOptions {
	def := DefaultRenderOptions()
	if o.PageWidth <= 0 || o.PageHeight <= 0 {
		o.PageWidth, o.PageHeight = def.PageWidth, def.PageHeight
	}
	if o.Margin == (Margin{}) {
		o.Margin = def.Margin
	}
	if o.Measurer == nil {
		o.Measurer = def.Measurer
	}
	if o.Images == nil {
		o.Images = def.Images
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	// 迭代次数上限固定为 6，调用方只能调低。
	if o.MaxPasses <= 0 || o.MaxPasses > defaultMaxPasses {
		o.MaxPasses = defaultMaxPasses
	}
	return o
}

// scale 把画布单位映射到页面 pt。字号按两个方向中较小的比例缩放，保证文本不会比按画布折行时更宽。
type scale struct {
	sx, sy, font float64
}

// 画布尺寸无效时按页面尺寸处理（比例为 1）。
func newScale(canvasW, canvasH, pageW, pageH float64) scale {
	if !usableWidth(canvasW) {
		canvasW = pageW
	}
	if !usableWidth(canvasH) {
		canvasH = pageH
	}
	s := scale{sx: pageW / canvasW, sy: pageH / canvasH}
	s.font = math.Min(s.sx, s.sy)
	return s
}

func (s scale) x(v float64) float64 { return v * s.sx }
func (s scale) y(v float64) float64 { return v * s.sy }

// minExtent 是非正宽高被钳制到的最小值（画布单位）。
const minExtent = 1.0

func atLeast(v, floor float64) float64 {
	if math.IsNaN(v) || v < floor {
		return floor
	}
	return v
}

var (
	defaultTextColor  = Color{R: 30, G: 30, B: 30}
	tableBorderColor  = Color{R: 200, G: 200, B: 200}
	tableHeaderFill   = Color{R: 243, G: 244, B: 246}
	tableHeaderBorder = Color{R: 209, G: 213, B: 219}
)

// parseColor 支持 #RGB / #RRGGBB / #RRGGBBAA。
func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return Color{R: mustHex(r), G: mustHex(g), B: mustHex(b)}, nil
	case 6, 8:
		return Color{R: mustHex(value[0:2]), G: mustHex(value[2:4]), B: mustHex(value[4:6])}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

// optionalColor 返回 nil 表示不绘制（空、transparent、none 或无法解析）。
func optionalColor(value string) *Color {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "transparent", "none":
		return nil
	}
	c, err := parseColor(value)
	if err != nil {
		return nil
	}
	return &c
}

func resolveColor(value string, fallback Color) Color {
	if c := optionalColor(value); c != nil {
		return *c
	}
	return fallback
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}
