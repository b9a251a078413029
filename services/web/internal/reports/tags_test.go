package reports

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dailyreport/pkg/domain"
)

func TestNormalize(t *testing.T) {
	if got := Normalize(RawTag("  dev ")); got.Name != "dev" {
		t.Fatalf("unexpected raw tag: %+v", got)
	}
	id := 7
	if got := Normalize(ExistingTag{ID: &id, Name: "ops"}); got != (domain.Tag{Name: "ops"}) {
		t.Fatalf("unexpected existing tag: %+v", got)
	}
	if got := Normalize(nil); got.Name != "" {
		t.Fatalf("unexpected nil tag: %+v", got)
	}
}

func TestTagField(t *testing.T) {
	f := NewTagField([]domain.Tag{{Name: "dev"}, {Name: ""}, {Name: "dev"}})
	if !f.Add(RawTag(" ops ")) {
		t.Fatal("expected ops to be added")
	}
	if f.Add(RawTag("   ")) || f.Add(ExistingTag{Name: "dev"}) {
		t.Fatal("blank and duplicate tags must be ignored")
	}
	f.Add(RawTag("infra"))
	if !f.Remove(1) || f.Remove(5) {
		t.Fatal("unexpected remove result")
	}
	if diff := cmp.Diff([]string{"dev", "infra"}, f.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	if got := NewTagField(nil).Tags(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", got)
	}
}
