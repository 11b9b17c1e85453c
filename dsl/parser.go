// Package dsl parses the token mini-language embedded in template text:
//
//	Invoice {{invoice_number}} due {{dueDate | date "2 Jan 2006"}}
//	Total: {{totals.total | money}}
//
// Everything outside {{ }} is literal text.
package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Reserved placeholders that turn a text element into a table.
const (
	LaborTable = "labor_table"
	PartsTable = "parts_table"
)

var (
	tokenLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Open", Pattern: `\{\{`, Action: lexer.Push("Token")},
			{Name: "Brace", Pattern: `\{`},
			{Name: "Literal", Pattern: `[^{]+`},
		},
		"Token": {
			{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
			{Name: "Close", Pattern: `\}\}`, Action: lexer.Pop()},
			{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
			{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
			{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.\[\]]*`},
			{Name: "Pipe", Pattern: `\|`},
		},
	})

	templateParser = participle.MustBuild[Template](
		participle.Lexer(tokenLexer),
		participle.Elide("Whitespace"),
	)
)

// Template is the parsed form of one text value.
type Template struct {
	Segments []*Segment `parser:"@@*"`
}

// Segment is either literal text or a token.
type Segment struct {
	Text  *string `parser:"  @(Literal | Brace)"`
	Token *Token  `parser:"| Open @@ Close"`
}

// Token is `{{ path | filter arg ... }}`.
type Token struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Path    string         `parser:"@Ident"`
	Filters []*Filter      `parser:"( Pipe @@ )*"`
}

// Filter transforms a resolved value, e.g. `date "Jan 2"`.
type Filter struct {
	Name string `parser:"@Ident"`
	Args []*Arg `parser:"@@*"`
}

// Arg is a filter argument.
type Arg struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Ident  *string        `parser:"| @Ident"`
}

// Value returns the argument as text.
func (a *Arg) Value() string {
	switch {
	case a == nil:
		return ""
	case a.String != nil:
		return string(*a.String)
	case a.Number != nil:
		return *a.Number
	case a.Ident != nil:
		return *a.Ident
	default:
		return ""
	}
}

// Source reconstructs the token as written (normalised spacing).
func (t *Token) Source() string {
	var b strings.Builder
	b.WriteString("{{")
	b.WriteString(t.Path)
	for _, f := range t.Filters {
		b.WriteString(" | ")
		b.WriteString(f.Name)
		for _, a := range f.Args {
			b.WriteByte(' ')
			if a.String != nil {
				b.WriteString(strconv.Quote(string(*a.String)))
			} else {
				b.WriteString(a.Value())
			}
		}
	}
	b.WriteString("}}")
	return b.String()
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses text into segments. Adjacent literal segments are merged.
func Parse(text string) (*Template, error) {
	if text == "" {
		return &Template{}, nil
	}
	tpl, err := templateParser.ParseString("", text)
	if err != nil {
		return nil, err
	}
	tpl.Segments = mergeLiterals(tpl.Segments)
	return tpl, nil
}

// ParseLenient never fails: text with an unterminated or malformed token is
// returned as a single literal segment.
func ParseLenient(text string) *Template {
	tpl, err := Parse(text)
	if err != nil {
		lit := text
		return &Template{Segments: []*Segment{{Text: &lit}}}
	}
	return tpl
}

// Tokens lists every token in the template in order.
func (t *Template) Tokens() []*Token {
	if t == nil {
		return nil
	}
	var out []*Token
	for _, s := range t.Segments {
		if s.Token != nil {
			out = append(out, s.Token)
		}
	}
	return out
}

// TablePlaceholder reports which reserved table token text consists of, if any.
// Surrounding whitespace is ignored; any other content disqualifies it.
func TablePlaceholder(text string) (string, bool) {
	tpl, err := Parse(strings.TrimSpace(text))
	if err != nil || len(tpl.Segments) != 1 || tpl.Segments[0].Token == nil {
		return "", false
	}
	tok := tpl.Segments[0].Token
	if len(tok.Filters) > 0 {
		return "", false
	}
	switch tok.Path {
	case LaborTable, PartsTable:
		return tok.Path, true
	}
	return "", false
}

func mergeLiterals(in []*Segment) []*Segment {
	out := make([]*Segment, 0, len(in))
	for _, s := range in {
		if s.Text != nil && len(out) > 0 && out[len(out)-1].Text != nil {
			merged := *out[len(out)-1].Text + *s.Text
			out[len(out)-1] = &Segment{Text: &merged}
			continue
		}
		out = append(out, s)
	}
	return out
}
