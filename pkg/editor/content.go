package editor

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	legacyDeleteClass = "image-delete-button"
	legacyDeleteGlyph = "×"
)

// CleanLegacyMarkup strips delete buttons and stray "×" glyphs that older
// clients persisted into report content.
func CleanLegacyMarkup(content string) string {
	if content == "" {
		return ""
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return strings.TrimSpace(strings.ReplaceAll(content, legacyDeleteGlyph, ""))
	}
	var sb strings.Builder
	for _, n := range nodes {
		if isLegacyDeleteButton(n) {
			continue
		}
		stripLegacy(n)
		if err := html.Render(&sb, n); err != nil {
			return strings.TrimSpace(strings.ReplaceAll(content, legacyDeleteGlyph, ""))
		}
	}
	return strings.TrimSpace(sb.String())
}

func stripLegacy(n *html.Node) {
	if n.Type == html.TextNode {
		n.Data = strings.ReplaceAll(n.Data, legacyDeleteGlyph, "")
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if isLegacyDeleteButton(c) {
			n.RemoveChild(c)
		} else {
			stripLegacy(c)
		}
		c = next
	}
}

func isLegacyDeleteButton(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Button &&
		slices.Contains(strings.Fields(attr(n, "class")), legacyDeleteClass)
}

// IsEmptyContent reports whether serialized editor HTML is one of the
// canonical empty forms. It is the authoritative check gating submission.
func IsEmptyContent(html string) bool {
	return html == "<p></p>" || html == "<p><br></p>" || strings.TrimSpace(html) == ""
}

// FieldValue is what the editor writes back to its form field: "" when the
// content is empty, the HTML otherwise.
func FieldValue(html string) string {
	if IsEmptyContent(html) {
		return ""
	}
	return html
}

// PlainText returns the visible text of stored content with blocks separated
// by single spaces. Used for keyword search.
func PlainText(content string) string {
	doc := Load(content)
	var parts []string
	for _, block := range doc.textblocks() {
		var sb strings.Builder
		for _, n := range block.Content {
			if n.Type == TypeHardBreak {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(n.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
