package layout

import (
	"strconv"
	"strings"
)

// Unit is the unit a length was written in (page sizes, margins).
type Unit int

const (
	UnitNone Unit = iota // 纯数字，按 pt 处理
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// pt 与 mm 的换算常数；tdewolff/canvas 以 mm 为单位，布局结果以 pt 为单位。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
	mm     float64 // 1 单位对应的毫米数
}{
	{"mm", UnitMM, 1},
	{"cm", UnitCM, 10},
	{"in", UnitIN, 25.4},
	{"pt", UnitPT, PtToMm},
}

func (u Unit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToMM converts to millimetres. Unit-less values are taken as points.
func (l Length) ToMM() float64 {
	for _, s := range unitSuffixes {
		if s.unit == l.Unit {
			return l.Value * s.mm
		}
	}
	return l.Value * PtToMm
}

// ToPT converts to points.
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT || l.Unit == UnitNone {
		return l.Value
	}
	return l.ToMM() * MmToPt
}

// ParseRawLengthStr parses "210mm", "8.5in", "612" and friends. Invalid
// input yields a zero Length.
func ParseRawLengthStr(value string) Length {
	l, _ := parseLength(value)
	return l
}

func parseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	unit := UnitNone
	for _, s := range unitSuffixes {
		if strings.HasSuffix(v, s.suffix) {
			unit = s.unit
			v = strings.TrimSpace(strings.TrimSuffix(v, s.suffix))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// ParseMargin 解析 1 到 4 个以逗号或空格分隔的长度，顺序同 CSS（上 右 下 左），单位 pt。
func ParseMargin(value string) (Margin, bool) {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	vals := make([]float64, 0, 4)
	for _, f := range fields {
		l, ok := parseLength(f)
		if !ok {
			return Margin{}, false
		}
		vals = append(vals, l.ToPT())
	}
	switch len(vals) {
	case 1:
		return Margin{Top: vals[0], Right: vals[0], Bottom: vals[0], Left: vals[0]}, true
	case 2:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}, true
	case 3:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}, true
	case 4:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}, true
	}
	return Margin{}, false
}
