package layout

import (
	"math"
	"strings"
	"unicode"
)

// Wrap 将文本按宽度折行：连续空白（含换行）折叠为单个空格，优先在词边界断行，
// 单个词超宽时按字符硬切。至少返回一行，不会丢弃任何非空白字符。
func Wrap(m Measurer, text string, font FontSpec, size, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	if !usableWidth(maxWidth) {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if Measure(m, candidate, font, size) <= maxWidth {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
			line = ""
		}
		if Measure(m, word, font, size) <= maxWidth {
			line = word
			continue
		}
		chunks := breakToken(m, word, font, size, maxWidth)
		lines = append(lines, chunks[:len(chunks)-1]...)
		line = chunks[len(chunks)-1]
	}
	return append(lines, line)
}

// WrapPreserveSpaces 保留用户输入的空白：空白串作为有实际宽度的词参与折行，
// 换行符强制断行并留在它所结束的那一行末尾。所有行拼接后与输入完全一致。
func WrapPreserveSpaces(m Measurer, text string, font FontSpec, size, maxWidth float64) []string {
	if text == "" {
		return []string{""}
	}
	limit := maxWidth
	if !usableWidth(limit) {
		limit = math.MaxFloat64
	}
	var lines []string
	var line strings.Builder
	emit := func() {
		lines = append(lines, line.String())
		line.Reset()
	}
	for _, token := range tokenizePreserving(text) {
		if token == "\n" {
			line.WriteString(token)
			emit()
			continue
		}
		if Measure(m, line.String()+token, font, size) <= limit {
			line.WriteString(token)
			continue
		}
		if line.Len() > 0 {
			emit()
		}
		if Measure(m, token, font, size) <= limit {
			line.WriteString(token)
			continue
		}
		chunks := breakToken(m, token, font, size, limit)
		lines = append(lines, chunks[:len(chunks)-1]...)
		line.WriteString(chunks[len(chunks)-1])
	}
	// 以换行结尾时保留末尾空行
	if line.Len() > 0 || len(lines) == 0 || strings.HasSuffix(lines[len(lines)-1], "\n") {
		emit()
	}
	return lines
}

// breakToken 通过对字符数二分查找最长可容纳前缀，逐段切分超宽的词。每段至少一个字符。
func breakToken(m Measurer, token string, font FontSpec, size, maxWidth float64) []string {
	rest := []rune(token)
	var parts []string
	for len(rest) > 0 {
		n := fitPrefix(m, rest, font, size, maxWidth)
		parts = append(parts, string(rest[:n]))
		rest = rest[n:]
	}
	if len(parts) == 0 {
		parts = []string{""}
	}
	return parts
}

func fitPrefix(m Measurer, runes []rune, font FontSpec, size, maxWidth float64) int {
	best := 1
	lo, hi := 1, len(runes)
	for lo <= hi {
		mid := (lo + hi) / 2
		if Measure(m, string(runes[:mid]), font, size) <= maxWidth {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// tokenizePreserving 把文本拆为非空白串、空白串与单独的 "\n"，拼接后等于输入。
func tokenizePreserving(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}
	for _, r := range s {
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() > 0 && lastWasSpace != isSpace {
			flush()
		}
		lastWasSpace = isSpace
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func usableWidth(w float64) bool {
	return w > 0 && !math.IsNaN(w) && !math.IsInf(w, 0)
}

// trimBreak 去掉行尾的换行符，绘制与测量时使用。
func trimBreak(line string) string {
	return strings.TrimRight(line, "\r\n")
}
