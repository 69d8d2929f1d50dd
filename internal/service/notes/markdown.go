package notes

import (
	"bytes"
	"html/template"
	"io"

	"github.com/russross/blackfriday/v2"
	"github.com/weiwangfds/javanotes/internal/highlight"
)

const (
	extensions = blackfriday.CommonExtensions
	htmlFlags  = blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.Safelink
)

// renderer 在 blackfriday 默认 HTML 输出的基础上给 java 代码块着色
type renderer struct {
	*blackfriday.HTMLRenderer
}

func newRenderer() *renderer {
	return &renderer{blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: htmlFlags})}
}

func (r *renderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	if node.Type == blackfriday.CodeBlock && isJava(node.Info) {
		io.WriteString(w, `<pre class="code-block"><code class="language-java">`)
		io.WriteString(w, string(highlight.HTML(string(node.Literal))))
		io.WriteString(w, "</code></pre>\n")
		return blackfriday.GoToNext
	}
	return r.HTMLRenderer.RenderNode(w, node, entering)
}

func isJava(info []byte) bool {
	lang := info
	if i := bytes.IndexAny(info, " \t{"); i >= 0 {
		lang = info[:i]
	}
	return string(lang) == "java"
}

// Markdown 把 markdown 渲染为 HTML，原始 HTML 标签会被丢弃
func Markdown(src string) template.HTML {
	out := blackfriday.Run([]byte(src),
		blackfriday.WithExtensions(extensions),
		blackfriday.WithRenderer(newRenderer()),
	)
	return template.HTML(out)
}
