package layout

import (
	"math"
	"strings"
	"unicode/utf8"
)

// FontMetrics 与字号同单位。
type FontMetrics struct {
	Ascent     float64
	Descent    float64
	LineHeight float64
}

// Measurer 负责文本测量。返回值与 size 使用同一单位，要求关于 size 线性。
type Measurer interface {
	TextWidth(text string, font FontSpec, size float64) float64
	FontMetrics(font FontSpec, size float64) FontMetrics
}

// EstimateMeasurer approximates widths from the rune count. It is the
// fallback when no font-backed measurer is configured.
type EstimateMeasurer struct{}

var _ Measurer = EstimateMeasurer{}

// TextWidth implements Measurer.
func (EstimateMeasurer) TextWidth(text string, _ FontSpec, size float64) float64 {
	if size <= 0 {
		return 0
	}
	return size * 0.55 * float64(utf8.RuneCountInString(strings.TrimSuffix(text, "\n")))
}

// FontMetrics implements Measurer.
func (EstimateMeasurer) FontMetrics(_ FontSpec, size float64) FontMetrics {
	if size <= 0 {
		return FontMetrics{}
	}
	return FontMetrics{Ascent: size * 0.8, Descent: size * 0.2, LineHeight: size * 1.2}
}

// Measure returns the width of text. A nil measurer falls back to
// EstimateMeasurer; a non-finite result is reported as 0.
func Measure(m Measurer, text string, font FontSpec, size float64) float64 {
	if m == nil {
		m = EstimateMeasurer{}
	}
	w := m.TextWidth(text, font, size)
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// Metrics is the nil-safe counterpart of Measure. LineHeight never falls
// below Ascent+Descent.
func Metrics(m Measurer, font FontSpec, size float64) FontMetrics {
	if m == nil {
		m = EstimateMeasurer{}
	}
	fm := m.FontMetrics(font, size)
	if fm.LineHeight < fm.Ascent+fm.Descent {
		fm.LineHeight = fm.Ascent + fm.Descent
	}
	if fm.LineHeight <= 0 && size > 0 {
		fm = EstimateMeasurer{}.FontMetrics(font, size)
	}
	return fm
}
