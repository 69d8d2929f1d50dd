// Package highlight 对 Java 源码做关键字着色
//
// 源码只扫描一遍，字符串和注释中的关键字不会被着色
package highlight

import (
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind 词法单元类型
type Kind int

const (
	Text Kind = iota
	Keyword
	String
	Comment
	Number
	Ident
)

var kindNames = [...]string{"text", "keyword", "string", "comment", "number", "ident"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token 词法单元，所有 Token 的 Value 按顺序拼接后等于原文
type Token struct {
	Kind  Kind
	Value string
}

var keywords = map[string]bool{
	"class": true, "public": true, "private": true, "protected": true,
	"static": true, "void": true, "int": true, "String": true, "boolean": true,
	"return": true, "if": true, "else": true, "for": true, "while": true,
	"try": true, "catch": true, "new": true,
}

// IsKeyword 是否为着色的关键字
func IsKeyword(word string) bool {
	return keywords[word]
}

// Tokenize 把源码切分为词法单元，相邻的 Text 会合并
func Tokenize(src string) []Token {
	var tokens []Token
	emit := func(kind Kind, value string) {
		if value == "" {
			return
		}
		if kind == Text && len(tokens) > 0 && tokens[len(tokens)-1].Kind == Text {
			tokens[len(tokens)-1].Value += value
			return
		}
		tokens = append(tokens, Token{Kind: kind, Value: value})
	}

	for i := 0; i < len(src); {
		rest := src[i:]
		var n int
		var kind Kind

		switch {
		case strings.HasPrefix(rest, "//"):
			kind, n = Comment, lineEnd(rest)
		case strings.HasPrefix(rest, "/*"):
			kind, n = Comment, blockEnd(rest)
		case strings.HasPrefix(rest, `"""`):
			kind, n = String, textBlockEnd(rest)
		case rest[0] == '"' || rest[0] == '\'':
			kind, n = String, quotedEnd(rest)
		case isDigit(rest[0]) || (rest[0] == '.' && len(rest) > 1 && isDigit(rest[1])):
			kind, n = Number, numberEnd(rest)
		default:
			r, size := utf8.DecodeRuneInString(rest)
			if isIdentStart(r) {
				n = identEnd(rest)
				kind = Ident
				if IsKeyword(rest[:n]) {
					kind = Keyword
				}
			} else {
				kind, n = Text, size
			}
		}

		emit(kind, rest[:n])
		i += n
	}
	return tokens
}

// lineEnd 行注释到换行符为止，不包含换行符
func lineEnd(s string) int {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return i
	}
	return len(s)
}

// blockEnd 块注释未闭合时延伸到文件末尾
func blockEnd(s string) int {
	if i := strings.Index(s[2:], "*/"); i >= 0 {
		return i + 4
	}
	return len(s)
}

func textBlockEnd(s string) int {
	for i := 3; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
		case strings.HasPrefix(s[i:], `"""`):
			return i + 3
		}
	}
	return len(s)
}

// quotedEnd 字符串和字符字面量，未闭合时在行尾结束
func quotedEnd(s string) int {
	quote := s[0]
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
		case quote:
			return i + 1
		case '\n':
			return i
		}
	}
	return len(s)
}

func numberEnd(s string) int {
	hex := len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isDigit(c) || isASCIILetter(c) || c == '_' || c == '.':
			i++
		case (c == '+' || c == '-') && !hex && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E'):
			i++
		default:
			return i
		}
	}
	return i
}

func identEnd(s string) int {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isIdentPart(r) {
			break
		}
		i += size
	}
	return i
}

func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
func isASCIILetter(c byte) bool { return c|0x20 >= 'a' && c|0x20 <= 'z' }

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// HTML 返回着色后的 HTML 片段
// 每个词法单元都会被转义，关键字、字符串和注释包在对应 class 的 span 中
func HTML(src string) template.HTML {
	var b strings.Builder
	b.Grow(len(src) + len(src)/2)

	for _, tok := range Tokenize(src) {
		escaped := template.HTMLEscapeString(tok.Value)
		switch tok.Kind {
		case Keyword, String, Comment:
			b.WriteString(`<span class="`)
			b.WriteString(tok.Kind.String())
			b.WriteString(`">`)
			b.WriteString(escaped)
			b.WriteString(`</span>`)
		default:
			b.WriteString(escaped)
		}
	}
	return template.HTML(b.String())
}
