package editor

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse builds a document from editor HTML. It accepts the canonical form as
// well as the editing surface markup: delete buttons, scripts and styles are
// ignored, whitespace is collapsed, stray inline content is wrapped in
// paragraphs and images are lifted out of paragraphs.
func Parse(src string) *Document {
	d := newDocument()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		nodes = nil
	}
	b := &builder{doc: d, claims: make(map[*Node]NodeID)}
	b.blocks(d.root, nodes)
	d.assignIDs(b.claims)
	return d
}

// Load cleans legacy affordance markup out of stored content and parses it.
func Load(content string) *Document {
	return Parse(CleanLegacyMarkup(content))
}

type builder struct {
	doc    *Document
	claims map[*Node]NodeID
}

func (b *builder) blocks(parent *Node, nodes []*html.Node) {
	c := &container{b: b, parent: parent}
	for _, n := range nodes {
		c.block(n)
	}
	c.endParagraph()
}

// container accumulates the block children of one parent node.
type container struct {
	b      *builder
	parent *Node

	para     *Node
	explicit bool // para came from a <p>-like element
	lifted   bool // an image was lifted out of the explicit paragraph
}

func (c *container) block(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		c.inline(n, nil)
		return
	case html.ElementNode:
	default:
		return
	}
	if skipped(n) {
		return
	}
	switch {
	case isTextblockElement(n):
		c.endParagraph()
		c.para = c.b.doc.newNode(TypeParagraph)
		c.explicit = true
		c.lifted = false
		c.inlineChildren(n, nil)
		c.endParagraph()
	case n.DataAtom == atom.Ul || n.DataAtom == atom.Ol:
		c.endParagraph()
		c.list(n)
	case isImageWrapper(n):
		if img := findImage(n); img != nil {
			c.image(n, img)
			return
		}
		c.children(n)
	case n.DataAtom == atom.Img:
		c.image(n, n)
	case n.DataAtom == atom.Hr:
		c.endParagraph()
	case isBlockContainer(n):
		c.children(n)
	default:
		c.inline(n, nil)
	}
}

func (c *container) children(n *html.Node) {
	c.endParagraph()
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.block(ch)
	}
	c.endParagraph()
}

func (c *container) inlineChildren(n *html.Node, marks []Mark) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.inline(ch, marks)
	}
}

func (c *container) inline(n *html.Node, marks []Mark) {
	switch n.Type {
	case html.TextNode:
		c.text(n.Data, marks)
		return
	case html.ElementNode:
	default:
		return
	}
	if skipped(n) {
		return
	}
	switch n.DataAtom {
	case atom.Br:
		c.ensureParagraph()
		br := c.b.doc.newNode(TypeHardBreak)
		br.Marks = slices.Clone(marks)
		c.para.Content = append(c.para.Content, br)
		return
	case atom.Strong, atom.B:
		c.inlineChildren(n, withMark(marks, Mark{Type: MarkBold}))
		return
	case atom.Em, atom.I:
		c.inlineChildren(n, withMark(marks, Mark{Type: MarkItalic}))
		return
	case atom.A:
		if href := strings.TrimSpace(attr(n, "href")); allowedHref(href) {
			marks = withMark(marks, Mark{Type: MarkLink, Href: href})
		}
		c.inlineChildren(n, marks)
		return
	}
	if n.DataAtom == atom.Img || isImageWrapper(n) || isTextblockElement(n) ||
		isBlockContainer(n) || n.DataAtom == atom.Ul || n.DataAtom == atom.Ol {
		c.block(n)
		return
	}
	c.inlineChildren(n, marks)
}

func (c *container) text(raw string, marks []Mark) {
	s := collapseSpace(raw)
	if s == "" {
		return
	}
	if c.atLineStart() {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return
		}
	}
	c.ensureParagraph()
	if last := lastInline(c.para); last != nil && last.Type == TypeText && slices.Equal(last.Marks, marks) {
		last.Text += s
		return
	}
	t := c.b.doc.newNode(TypeText)
	t.Text = s
	t.Marks = slices.Clone(marks)
	c.para.Content = append(c.para.Content, t)
}

func (c *container) atLineStart() bool {
	if c.para == nil {
		return true
	}
	last := lastInline(c.para)
	if last == nil || last.Type == TypeHardBreak {
		return true
	}
	return strings.HasSuffix(last.Text, " ")
}

func (c *container) ensureParagraph() {
	if c.para == nil {
		c.para = c.b.doc.newNode(TypeParagraph)
		c.explicit = false
		c.lifted = false
	}
}

func (c *container) image(wrapper, img *html.Node) {
	src := attr(img, "src")
	if strings.TrimSpace(src) == "" {
		return
	}
	c.liftParagraph()
	node := c.b.doc.newNode(TypeImage)
	node.Src = src
	for _, el := range []*html.Node{wrapper, img} {
		if id, err := strconv.ParseUint(attr(el, "data-node-id"), 10, 64); err == nil {
			c.b.claims[node] = NodeID(id)
			break
		}
	}
	c.parent.Content = append(c.parent.Content, node)
}

// liftParagraph closes the pending paragraph before a block lands in the
// middle of it. An explicit paragraph continues after the block.
func (c *container) liftParagraph() {
	if c.para == nil {
		return
	}
	explicit := c.explicit
	c.emit(false)
	if explicit {
		c.para = c.b.doc.newNode(TypeParagraph)
		c.explicit = true
		c.lifted = true
	}
}

func (c *container) endParagraph() {
	if c.para == nil {
		return
	}
	c.emit(c.explicit && !c.lifted)
}

func (c *container) emit(keepEmpty bool) {
	p := c.para
	c.para = nil
	c.explicit = false
	c.lifted = false
	if last := lastInline(p); last != nil && last.Type == TypeText {
		last.Text = strings.TrimRight(last.Text, " ")
	}
	normalizeInline(p)
	if len(p.Content) == 0 && !keepEmpty {
		return
	}
	c.parent.Content = append(c.parent.Content, p)
}

func (c *container) list(n *html.Node) {
	kind := TypeBulletList
	if n.DataAtom == atom.Ol {
		kind = TypeOrderedList
	}
	list := c.b.doc.newNode(kind)
	var stray []*html.Node
	addItem := func(children []*html.Node) {
		item := c.b.doc.newNode(TypeListItem)
		c.b.blocks(item, children)
		if len(item.Content) == 0 {
			item.Content = append(item.Content, c.b.doc.newNode(TypeParagraph))
		}
		list.Content = append(list.Content, item)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode && ch.DataAtom == atom.Li {
			if len(stray) > 0 {
				addItem(stray)
				stray = nil
			}
			addItem(childNodes(ch))
			continue
		}
		if ch.Type == html.TextNode && strings.TrimSpace(ch.Data) == "" {
			continue
		}
		stray = append(stray, ch)
	}
	if len(stray) > 0 {
		addItem(stray)
	}
	if len(list.Content) > 0 {
		c.parent.Content = append(c.parent.Content, list)
	}
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		out = append(out, ch)
	}
	return out
}

func lastInline(p *Node) *Node {
	if len(p.Content) == 0 {
		return nil
	}
	return p.Content[len(p.Content)-1]
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button, atom.Script, atom.Style, atom.Template, atom.Noscript,
		atom.Iframe, atom.Object, atom.Embed, atom.Head, atom.Title, atom.Meta,
		atom.Link, atom.Svg, atom.Input, atom.Select, atom.Textarea:
		return true
	}
	return false
}

func isTextblockElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Pre, atom.Figcaption:
		return true
	}
	return false
}

func isBlockContainer(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Div, atom.Blockquote, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.Main, atom.Nav, atom.Aside, atom.Figure, atom.Table, atom.Thead, atom.Tbody,
		atom.Tfoot, atom.Tr, atom.Td, atom.Th, atom.Dl, atom.Dt, atom.Dd, atom.Li,
		atom.Form, atom.Body, atom.Html, atom.Details, atom.Summary, atom.Address:
		return true
	}
	return false
}

func isImageWrapper(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Div {
		return false
	}
	return slices.Contains(strings.Fields(attr(n, "class")), "custom-image-wrapper")
}

func findImage(n *html.Node) *html.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode || skipped(ch) {
			continue
		}
		if ch.DataAtom == atom.Img && strings.TrimSpace(attr(ch, "src")) != "" {
			return ch
		}
		if img := findImage(ch); img != nil {
			return img
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
				space = true
			}
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

// allowedHref accepts relative links and the http, https and mailto schemes.
func allowedHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}
