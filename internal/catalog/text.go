package catalog

import (
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// PlainText renders backend copy (markdown, possibly with inline HTML) to the
// whitespace-collapsed text a browser would show for it.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.FlagsNone})
	rendered := markdown.ToHTML([]byte(s), p, r)

	// No smartypants: quotes and dashes must survive as typed.
	// Block boundaries become spaces so adjacent paragraphs do not fuse.
	spaced := strings.NewReplacer("</p>", " </p>", "</li>", " </li>", "<br>", " ", "<br />", " ").Replace(string(rendered))
	text := html.UnescapeString(stripPolicy.Sanitize(spaced))
	return CollapseSpace(text)
}

// CollapseSpace trims s and folds every whitespace run to one ASCII space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
