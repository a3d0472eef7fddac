package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// maxExtractDepth caps HTML recursion against pathological nesting.
const maxExtractDepth = 50

var blankRuns = regexp.MustCompile(`\n{3,}`)

// SupportedFile reports whether the path carries an extension the
// extractor understands.
func SupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".html", ".htm":
		return true
	}
	return false
}

// ExtractFile reads path and returns its plain-text content. HTML is
// flattened to text with heading markers; Markdown and plain text pass
// through as-is.
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ExtractHTML(string(data))
	default:
		return string(data), nil
	}
}

// ExtractHTML flattens an HTML document to readable text. Headings keep
// Markdown-style markers so chunk boundaries land near section breaks;
// script, style, and chrome elements are dropped.
func ExtractHTML(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	flattenNode(doc, &sb, 0)

	out := blankRuns.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out), nil
}

func flattenNode(n *html.Node, sb *strings.Builder, depth int) {
	if depth > maxExtractDepth {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		case "h1":
			sb.WriteString("\n\n# ")
		case "h2":
			sb.WriteString("\n\n## ")
		case "h3":
			sb.WriteString("\n\n### ")
		case "h4", "h5", "h6":
			sb.WriteString("\n\n#### ")
		case "p", "div", "section", "article":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "img":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenNode(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
		}
	}
}
