package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体全部来自 Go 字体家族，模板中常见的字体名会映射到比例字体或等宽字体。

// DefaultFamily 是无法识别字体名时使用的兜底字体。
const DefaultFamily = "go"

// Face 描述一个字重/字形组合。
type Face struct {
	Bold   bool
	Italic bool
	Medium bool
}

var proportional = map[string]bool{
	"go": true, "sans": true, "sans-serif": true, "serif": true, "helvetica": true,
	"arial": true, "inter": true, "roboto": true, "open sans": true, "lato": true,
	"system-ui": true, "times": true, "times new roman": true, "georgia": true,
	"verdana": true, "default": true,
}

var monospace = map[string]bool{
	"mono": true, "monospace": true, "go mono": true, "courier": true,
	"courier new": true, "menlo": true, "consolas": true,
}

// Known 报告 family 是否有内置字体可用。
func Known(family string) bool {
	key := normalize(family)
	return proportional[key] || monospace[key]
}

// Load 返回 family/face 对应的 TrueType 字节。未知字体返回错误，由调用方决定兜底。
func Load(family string, face Face) ([]byte, error) {
	key := normalize(family)
	switch {
	case monospace[key]:
		switch {
		case face.Bold && face.Italic:
			return gomonobolditalic.TTF, nil
		case face.Bold:
			return gomonobold.TTF, nil
		case face.Italic:
			return gomonoitalic.TTF, nil
		default:
			return gomono.TTF, nil
		}
	case proportional[key]:
		switch {
		case face.Bold && face.Italic:
			return gobolditalic.TTF, nil
		case face.Bold:
			return gobold.TTF, nil
		case face.Italic:
			return goitalic.TTF, nil
		case face.Medium:
			return gomedium.TTF, nil
		default:
			return goregular.TTF, nil
		}
	}
	return nil, fmt.Errorf("找不到内置字体 %q", family)
}

func normalize(family string) string {
	f := strings.ToLower(strings.TrimSpace(family))
	f = strings.Trim(f, `"'`)
	if f == "" {
		return DefaultFamily
	}
	// "Helvetica, Arial, sans-serif" 取第一个可识别的候选
	if strings.Contains(f, ",") {
		for _, part := range strings.Split(f, ",") {
			p := strings.Trim(strings.TrimSpace(part), `"'`)
			if proportional[p] || monospace[p] {
				return p
			}
		}
	}
	return f
}
