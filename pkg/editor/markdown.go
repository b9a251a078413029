package editor

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in markdown input is dropped by the renderer.
var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))

// InsertMarkdown renders markdown and inserts the resulting blocks at the
// cursor. Constructs outside the schema degrade to their text.
func (e *Editor) InsertMarkdown(src string) error {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	blocks := e.doc.adopt(Parse(buf.String()))
	if len(blocks) == 0 {
		return nil
	}
	e.insertBlocks(blocks)
	e.changed()
	return nil
}
