package binding

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/invoicecanvas/dsl"
	"github.com/ByLCY/invoicecanvas/invoice"
)

// Interpolate 将文本中的 {{path | filter}} 替换为 data 中的值。
// 路径不存在时保留原占位符，便于模板作者发现拼写错误。
func Interpolate(text string, data any, f invoice.Formatter) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	tpl := dsl.ParseLenient(text)
	var b strings.Builder
	for _, seg := range tpl.Segments {
		if seg.Text != nil {
			b.WriteString(*seg.Text)
			continue
		}
		b.WriteString(render(seg.Token, data, f))
	}
	return b.String()
}

// Snapshot interpolates text against an invoice snapshot.
func Snapshot(text string, snap *invoice.Snapshot) string {
	return Interpolate(text, snap.Fields(), snap.Formatter())
}

func render(tok *dsl.Token, data any, f invoice.Formatter) string {
	val, ok := resolvePath(data, tok.Path)
	if !ok {
		// default 过滤器可以兜底缺失字段
		for _, flt := range tok.Filters {
			if flt.Name == "default" && len(flt.Args) > 0 {
				return flt.Args[0].Value()
			}
		}
		return tok.Source()
	}
	for _, flt := range tok.Filters {
		val = apply(flt, val, f)
	}
	return stringify(val, f)
}

func apply(flt *dsl.Filter, val any, f invoice.Formatter) any {
	arg := func(i int) string {
		if i < len(flt.Args) {
			return flt.Args[i].Value()
		}
		return ""
	}
	switch strings.ToLower(flt.Name) {
	case "money", "currency":
		return f.Money(toFloat(val))
	case "number":
		return f.Number(toFloat(val))
	case "date":
		if t, ok := val.(time.Time); ok {
			return f.Date(t, arg(0))
		}
		return val
	case "upper":
		return strings.ToUpper(stringify(val, f))
	case "lower":
		return strings.ToLower(stringify(val, f))
	case "trim":
		return strings.TrimSpace(stringify(val, f))
	case "default":
		if isEmpty(val) {
			return arg(0)
		}
		return val
	default:
		return val
	}
}

// toFloat 数值转换失败时一律按 0 处理。
func toFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case invoice.Number:
		return float64(v)
	case string:
		return invoice.Coerce(v)
	default:
		return 0
	}
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case time.Time:
		return v.IsZero()
	default:
		return false
	}
}

func stringify(val any, f invoice.Formatter) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return f.Number(v)
	case int:
		return strconv.Itoa(v)
	case time.Time:
		return f.Date(v, "")
	default:
		return fmt.Sprint(v)
	}
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	indexes := []string{}
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 {
			if rest[0] != '[' {
				break
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
