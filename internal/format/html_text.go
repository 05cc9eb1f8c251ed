package format

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// HTMLText flattens an HTML message body into plain text. Block level
// elements and table rows become line breaks, table cells are separated by a
// tab, and script, style and head content is dropped. Input that cannot be
// parsed is returned as is.
func HTMLText(htmlContent []byte) string {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return string(htmlContent)
	}

	var b strings.Builder
	collectText(doc, &b)

	return tidyLines(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if isSkippedElement(n.Data) {
			return
		}
		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") && c.NextSibling != nil {
			b.WriteByte('\t')
		}
	}

	if n.Type == html.ElementNode && isBlockElement(n.Data) {
		b.WriteByte('\n')
	}
}

func isSkippedElement(tag string) bool {
	return tag == "script" || tag == "style" || tag == "head" || tag == "noscript"
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "tr", "li", "ul", "ol", "table", "blockquote", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6", "hr", "section", "article", "header", "footer":
		return true
	default:
		return false
	}
}

// tidyLines collapses horizontal whitespace inside every line, trims the
// lines and squeezes runs of blank lines into one.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true

	for _, line := range lines {
		cells := strings.Split(line, "\t")
		for i, cell := range cells {
			cells[i] = strings.Join(strings.Fields(cell), " ")
		}
		line = strings.TrimSpace(strings.Join(cells, "\t"))

		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}

		out = append(out, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
