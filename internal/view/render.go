package view

import (
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/kapu/kfp-startpage/internal/routes"
	"github.com/russross/blackfriday/v2"
)

var lineBreakTag = regexp.MustCompile(`^<br\s*/?>$`)

var unsafeSchemes = []string{"javascript:", "vbscript:", "data:"}

// Renderer is the blackfriday HTML renderer with anchors rendered as app links:
// hash routes stay in the app, everything else opens in a new tab. Raw HTML in
// the source is escaped, apart from bare line breaks.
type Renderer struct {
	base *blackfriday.HTMLRenderer
}

func NewRenderer() *Renderer {
	return &Renderer{
		base: blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.UseXHTML,
		}),
	}
}

func (r *Renderer) Render(markdown string) string {
	out := blackfriday.Run([]byte(markdown),
		blackfriday.WithRenderer(r),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
	)
	return string(out)
}

func (r *Renderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	switch node.Type {
	case blackfriday.Link:
		r.renderLink(w, node, entering)
		return blackfriday.GoToNext
	case blackfriday.HTMLSpan, blackfriday.HTMLBlock:
		r.renderRawHTML(w, node)
		return blackfriday.GoToNext
	}
	return r.base.RenderNode(w, node, entering)
}

func (r *Renderer) RenderHeader(w io.Writer, ast *blackfriday.Node) {
	r.base.RenderHeader(w, ast)
}

func (r *Renderer) RenderFooter(w io.Writer, ast *blackfriday.Node) {
	r.base.RenderFooter(w, ast)
}

func (r *Renderer) renderLink(w io.Writer, node *blackfriday.Node, entering bool) {
	dest := string(node.LinkData.Destination)
	if !safeHref(dest) {
		// children still render as plain text
		return
	}
	if !entering {
		io.WriteString(w, "</a>")
		return
	}

	var sb strings.Builder
	sb.WriteString(`<a href="`)
	sb.WriteString(html.EscapeString(dest))
	sb.WriteString(`" class="link"`)
	if title := node.LinkData.Title; len(title) > 0 {
		sb.WriteString(` title="`)
		sb.WriteString(html.EscapeString(string(title)))
		sb.WriteString(`"`)
	}
	if !routes.IsInternal(dest) {
		sb.WriteString(` target="_blank" rel="noopener"`)
	}
	sb.WriteString(">")
	io.WriteString(w, sb.String())
}

func (r *Renderer) renderRawHTML(w io.Writer, node *blackfriday.Node) {
	literal := strings.TrimSpace(string(node.Literal))
	if lineBreakTag.MatchString(literal) {
		io.WriteString(w, "<br/>")
		if node.Type == blackfriday.HTMLBlock {
			io.WriteString(w, "\n")
		}
		return
	}
	io.WriteString(w, html.EscapeString(string(node.Literal)))
}

func safeHref(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}
