package editor

import (
	"slices"
	"unicode/utf8"
)

// NodeType names a node in the document schema.
type NodeType string

const (
	TypeDoc         NodeType = "doc"
	TypeParagraph   NodeType = "paragraph"
	TypeText        NodeType = "text"
	TypeHardBreak   NodeType = "hardBreak"
	TypeBulletList  NodeType = "bulletList"
	TypeOrderedList NodeType = "orderedList"
	TypeListItem    NodeType = "listItem"
	TypeImage       NodeType = "customImage"
)

// NodeID identifies a node while a document is being edited. It is never
// part of the canonical HTML.
type NodeID uint64

// MarkType names an inline formatting mark.
type MarkType string

const (
	MarkBold   MarkType = "bold"
	MarkItalic MarkType = "italic"
	MarkLink   MarkType = "link"
)

// Mark is an inline annotation on text. Href is set for links only.
type Mark struct {
	Type MarkType
	Href string
}

// Node is one element of the document tree. Text and Marks apply to text
// nodes, Src to images, Content to doc, paragraph, lists and list items.
type Node struct {
	ID      NodeID
	Type    NodeType
	Text    string
	Marks   []Mark
	Src     string
	Content []*Node
}

func (n *Node) isTextblock() bool {
	return n.Type == TypeParagraph
}

func (n *Node) isList() bool {
	return n.Type == TypeBulletList || n.Type == TypeOrderedList
}

// size is the inline width of a node: runes for text, one for a hard break.
func (n *Node) size() int {
	if n.Type == TypeText {
		return utf8.RuneCountInString(n.Text)
	}
	return 1
}

func inlineLen(block *Node) int {
	total := 0
	for _, n := range block.Content {
		total += n.size()
	}
	return total
}

// Marks are kept sorted outermost first: bold, italic, link.
func markRank(t MarkType) int {
	switch t {
	case MarkBold:
		return 0
	case MarkItalic:
		return 1
	default:
		return 2
	}
}

func hasMark(marks []Mark, t MarkType) bool {
	_, ok := findMark(marks, t)
	return ok
}

func findMark(marks []Mark, t MarkType) (Mark, bool) {
	for _, m := range marks {
		if m.Type == t {
			return m, true
		}
	}
	return Mark{}, false
}

func withMark(marks []Mark, mark Mark) []Mark {
	out := withoutMark(marks, mark.Type)
	out = append(out, mark)
	slices.SortStableFunc(out, func(a, b Mark) int { return markRank(a.Type) - markRank(b.Type) })
	return out
}

func withoutMark(marks []Mark, t MarkType) []Mark {
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if m.Type != t {
			out = append(out, m)
		}
	}
	return out
}

// normalizeInline merges adjacent text nodes with equal marks and drops empty ones.
func normalizeInline(block *Node) {
	out := block.Content[:0]
	for _, n := range block.Content {
		if n.Type == TypeText && n.Text == "" {
			continue
		}
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Type == TypeText && n.Type == TypeText && slices.Equal(prev.Marks, n.Marks) {
				prev.Text += n.Text
				continue
			}
		}
		out = append(out, n)
	}
	clear(block.Content[len(out):])
	block.Content = out
}
