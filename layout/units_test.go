package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

// TestParseRawLengthStr 覆盖常见单位到 pt 的换算。
func TestParseRawLengthStr(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"612", 612},
		{"12pt", 12},
		{"1in", 25.4 * MmToPt},
		{"2.54cm", 25.4 * MmToPt},
		{" 10 MM ", 10 * MmToPt},
		{"abc", 0},
	}
	for _, tc := range cases {
		if got := ParseRawLengthStr(tc.in).ToPT(); math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("ParseRawLengthStr(%q).ToPT() = %g, want %g", tc.in, got, tc.want)
		}
	}
}

func TestPageSize(t *testing.T) {
	w, h, err := PageSize("")
	if err != nil || w != 612 || h != 792 {
		t.Fatalf("默认页面应为 Letter, got %g×%g err=%v", w, h, err)
	}
	w, h, err = PageSize("A4")
	if err != nil || w != 595.28 || h != 841.89 {
		t.Fatalf("A4 尺寸错误: %g×%g err=%v", w, h, err)
	}
	w, h, err = PageSize("210mmx297mm")
	if err != nil || math.Abs(w-210*MmToPt) > 1e-6 || math.Abs(h-297*MmToPt) > 1e-6 {
		t.Fatalf("自定义尺寸错误: %g×%g err=%v", w, h, err)
	}
	if _, _, err := PageSize("tabloid-ish"); err == nil {
		t.Fatalf("无法识别的尺寸应返回错误")
	}
}

func TestParseMargin(t *testing.T) {
	m, ok := ParseMargin("36")
	if !ok || m != (Margin{Top: 36, Right: 36, Bottom: 36, Left: 36}) {
		t.Fatalf("单值边距错误: %+v", m)
	}
	m, ok = ParseMargin("10, 20")
	if !ok || m != (Margin{Top: 10, Right: 20, Bottom: 10, Left: 20}) {
		t.Fatalf("双值边距错误: %+v", m)
	}
	if _, ok := ParseMargin("1 2 x"); ok {
		t.Fatalf("无效边距应失败")
	}
}
