package editor

import (
	"strconv"
	"strings"
)

const (
	linkAttrs    = `target="_blank" rel="noopener noreferrer nofollow" class="editor-link"`
	emptyDocHTML = "<p></p>"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\u00a0", "&nbsp;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;")
)

// HTML returns the canonical serialized form. It never contains affordance
// markup or node identities. An empty document serializes to "<p></p>".
func (d *Document) HTML() string {
	r := renderer{image: canonicalImage}
	r.blocks(d.root.Content)
	if r.sb.Len() == 0 {
		return emptyDocHTML
	}
	return r.sb.String()
}

type renderer struct {
	sb    strings.Builder
	image func(sb *strings.Builder, n *Node)
}

func (r *renderer) blocks(nodes []*Node) {
	for _, n := range nodes {
		switch n.Type {
		case TypeParagraph:
			r.sb.WriteString("<p>")
			r.inline(n.Content)
			r.sb.WriteString("</p>")
		case TypeBulletList, TypeOrderedList:
			tag := "ul"
			if n.Type == TypeOrderedList {
				tag = "ol"
			}
			r.sb.WriteString("<" + tag + ">")
			r.blocks(n.Content)
			r.sb.WriteString("</" + tag + ">")
		case TypeListItem:
			r.sb.WriteString("<li>")
			if len(n.Content) == 0 {
				r.sb.WriteString(emptyDocHTML)
			}
			r.blocks(n.Content)
			r.sb.WriteString("</li>")
		case TypeImage:
			r.image(&r.sb, n)
		}
	}
}

// inline writes inline nodes, keeping marks shared with the previous node open.
func (r *renderer) inline(nodes []*Node) {
	var open []Mark
	for _, n := range nodes {
		keep := 0
		for keep < len(open) && keep < len(n.Marks) && open[keep] == n.Marks[keep] {
			keep++
		}
		for i := len(open) - 1; i >= keep; i-- {
			r.closeMark(open[i])
		}
		open = open[:keep]
		for _, m := range n.Marks[keep:] {
			r.openMark(m)
			open = append(open, m)
		}
		switch n.Type {
		case TypeText:
			r.sb.WriteString(textEscaper.Replace(n.Text))
		case TypeHardBreak:
			r.sb.WriteString("<br>")
		}
	}
	for i := len(open) - 1; i >= 0; i-- {
		r.closeMark(open[i])
	}
}

func (r *renderer) openMark(m Mark) {
	switch m.Type {
	case MarkBold:
		r.sb.WriteString("<strong>")
	case MarkItalic:
		r.sb.WriteString("<em>")
	case MarkLink:
		r.sb.WriteString(`<a ` + linkAttrs + ` href="` + attrEscaper.Replace(m.Href) + `">`)
	}
}

func (r *renderer) closeMark(m Mark) {
	switch m.Type {
	case MarkBold:
		r.sb.WriteString("</strong>")
	case MarkItalic:
		r.sb.WriteString("</em>")
	case MarkLink:
		r.sb.WriteString("</a>")
	}
}

func canonicalImage(sb *strings.Builder, n *Node) {
	sb.WriteString(`<div class="custom-image-wrapper"><img src="`)
	sb.WriteString(attrEscaper.Replace(n.Src))
	sb.WriteString(`" class="custom-image"></div>`)
}

const deleteIcon = `<svg width="16" height="16" viewBox="0 0 24 24" fill="white" aria-hidden="true">` +
	`<path d="M19 6.41L17.59 5 12 10.59 6.41 5 5 6.41 10.59 12 5 17.59 6.41 19 12 13.41 17.59 19 19 17.59 13.41 12z"/></svg>`

// editingImage renders the image with its delete affordance for the editing surface.
func editingImage(sb *strings.Builder, n *Node) {
	id := strconv.FormatUint(uint64(n.ID), 10)
	sb.WriteString(`<div class="custom-image-wrapper" contenteditable="false" data-node-id="` + id + `">`)
	sb.WriteString(`<img src="` + attrEscaper.Replace(n.Src) + `" class="custom-image">`)
	sb.WriteString(`<button type="button" class="image-delete-button" data-node-id="` + id + `" aria-label="Delete image">`)
	sb.WriteString(deleteIcon)
	sb.WriteString(`</button></div>`)
}
