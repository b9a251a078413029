package editor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRenderEditingShowsPlaceholderWhenEmpty(t *testing.T) {
	e := New("<p><br></p>")
	want := `<p class="is-editor-empty" data-placeholder="Write your report"></p>`
	if got := e.View().RenderEditing(); got != want {
		t.Fatalf("unexpected editing markup: %q", got)
	}

	custom := New("", WithPlaceholder("Today I..."))
	if !strings.Contains(custom.View().RenderEditing(), `data-placeholder="Today I..."`) {
		t.Fatalf("custom placeholder missing: %q", custom.View().RenderEditing())
	}
}

func TestEachImageHasOneAffordance(t *testing.T) {
	e := New("<p>a</p>" + img1 + img2)
	affordances := e.View().Affordances()
	if len(affordances) != 2 {
		t.Fatalf("expected 2 affordances, got %d", len(affordances))
	}
	if affordances[0].Src != "/img/1.png" || affordances[1].Src != "/img/2.png" {
		t.Fatalf("unexpected affordances: %+v", affordances)
	}

	markup := e.View().RenderEditing()
	for _, a := range affordances {
		button := fmt.Sprintf(`<button type="button" class="image-delete-button" data-node-id="%d"`, a.Node)
		if strings.Count(markup, button) != 1 {
			t.Fatalf("expected one delete button for node %d in %q", a.Node, markup)
		}
	}
	if strings.Contains(e.HTML(), "image-delete-button") || strings.Contains(e.HTML(), "data-node-id") {
		t.Fatalf("canonical html leaked affordance markup: %q", e.HTML())
	}
}

func TestActivateDeletesOnlyItsImage(t *testing.T) {
	e := New("<p>a</p>" + img1 + img2)
	var updates int
	e.OnUpdate(func(string) { updates++ })
	affordances := e.View().Affordances()

	if err := e.View().Activate(affordances[1].Node); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := e.HTML(); got != "<p>a</p>"+img1 {
		t.Fatalf("unexpected html: %q", got)
	}
	if updates != 1 {
		t.Fatalf("expected one update, got %d", updates)
	}
	if e.View().Has(affordances[1].Node) || !e.View().Has(affordances[0].Node) {
		t.Fatalf("affordances not resynced: %+v", e.View().Affordances())
	}
	if err := e.View().Activate(affordances[1].Node); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound for stale affordance, got %v", err)
	}
}

func TestEditingMarkupKeepsImageIdentity(t *testing.T) {
	first := New("<p>a</p>" + img1 + "<p>b</p>" + img2)
	second := New(first.View().RenderEditing())

	if second.HTML() != first.HTML() {
		t.Fatalf("html changed across editing round trip: %q vs %q", second.HTML(), first.HTML())
	}
	a, b := first.View().Affordances(), second.View().Affordances()
	if len(a) != len(b) {
		t.Fatalf("affordance count changed: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("affordance %d changed: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAffordanceSurvivesEditingRoundTrip(t *testing.T) {
	e := New("<p>x</p>")
	if _, err := e.InsertImage("/img/1.png"); err != nil {
		t.Fatalf("insert first image: %v", err)
	}
	e.Select(Cursor(Position{Block: 0, Offset: 0}))
	second, err := e.InsertImage("/img/2.png")
	if err != nil {
		t.Fatalf("insert second image: %v", err)
	}

	next := New(e.View().RenderEditing())
	if err := next.View().Activate(second); err != nil {
		t.Fatalf("activate inserted image after round trip: %v", err)
	}
	if got := next.HTML(); strings.Contains(got, "/img/2.png") || !strings.Contains(got, "/img/1.png") {
		t.Fatalf("expected only the second image removed: %q", got)
	}
}

func TestAffordanceSurvivesTextEdits(t *testing.T) {
	e := New("<p>a</p>" + img1)
	target := e.View().Affordances()[0].Node
	e.Select(Cursor(Position{Block: 0, Offset: 0}))
	e.InsertText("\ny")

	next := New(e.View().RenderEditing())
	if err := next.View().Activate(target); err != nil {
		t.Fatalf("activate after text edit: %v", err)
	}
	if got := next.HTML(); got != "<p><br>ya</p>" {
		t.Fatalf("unexpected html: %q", got)
	}
}
