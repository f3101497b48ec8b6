package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// skipped elements never contribute text.
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"img": true, "svg": true, "nav": true, "header": true,
	"footer": true, "aside": true, "form": true, "button": true,
}

var (
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	lineSpaceRe  = regexp.MustCompile(`[ \t]+`)
)

// Markdown converts an HTML document to lightweight markdown. Relative links
// are resolved against base when it parses.
func Markdown(doc, base string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return StripHTML(doc)
	}
	m := &mdWriter{}
	if u, err := url.Parse(base); err == nil && u.Scheme != "" {
		m.base = u
	}
	m.walk(root, 0)
	return cleanMarkdown(m.sb.String())
}

type mdWriter struct {
	sb   strings.Builder
	base *url.URL
}

func (m *mdWriter) walk(n *html.Node, depth int) {
	if depth > 200 {
		return
	}
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			m.sb.WriteString(t)
			m.sb.WriteString(" ")
		}
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if skipped[n.Data] {
			return
		}
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			m.sb.WriteString("# ")
		case "h1", "h2", "h3", "h4", "h5", "h6":
			m.sb.WriteString("\n\n" + strings.Repeat("#", int(n.Data[1]-'0')) + " ")
		case "p", "div", "section", "article", "table", "blockquote":
			m.sb.WriteString("\n\n")
		case "br", "tr":
			m.sb.WriteString("\n")
		case "li":
			m.sb.WriteString("\n- ")
		case "a":
			if href := m.link(n); href != "" {
				m.sb.WriteString("[")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		m.walk(c, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "title", "h1", "h2", "h3", "h4", "h5", "h6":
			m.sb.WriteString("\n\n")
		case "a":
			if href := m.link(n); href != "" {
				m.sb.WriteString("](" + href + ") ")
			}
		}
	}
}

// link returns the absolute href of an anchor, or "" for fragments and
// script links.
func (m *mdWriter) link(n *html.Node) string {
	var href string
	for _, a := range n.Attr {
		if a.Key == "href" {
			href = strings.TrimSpace(a.Val)
			break
		}
	}
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	if m.base != nil {
		if ref, err := url.Parse(href); err == nil {
			return m.base.ResolveReference(ref).String()
		}
	}
	return href
}

func cleanMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(lineSpaceRe.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	s = strings.ReplaceAll(s, "[ ", "[")
	s = strings.ReplaceAll(s, " ](", "](")
	return strings.TrimSpace(s)
}
