package reports

import (
	"slices"
	"strings"

	"dailyreport/pkg/domain"
)

// TagInput is either free text typed by the user or an existing tag picked
// from suggestions.
type TagInput interface {
	tagName() string
}

// RawTag is typed text.
type RawTag string

func (r RawTag) tagName() string { return string(r) }

// ExistingTag is a suggestion.
type ExistingTag domain.Tag

func (t ExistingTag) tagName() string { return t.Name }

// Normalize maps any tag input to a Tag with a trimmed name.
func Normalize(in TagInput) domain.Tag {
	if in == nil {
		return domain.Tag{}
	}
	return domain.Tag{Name: strings.TrimSpace(in.tagName())}
}

// TagField holds the ordered tags of a report form. Names are unique.
type TagField struct {
	tags []domain.Tag
}

// NewTagField starts from existing tags, dropping blanks and duplicates.
func NewTagField(initial []domain.Tag) *TagField {
	f := &TagField{}
	for _, t := range initial {
		f.Add(ExistingTag(t))
	}
	return f
}

// Add commits a tag. Empty or already present names are ignored.
func (f *TagField) Add(in TagInput) bool {
	tag := Normalize(in)
	if tag.Name == "" || f.Has(tag.Name) {
		return false
	}
	f.tags = append(f.tags, tag)
	return true
}

// Remove drops the tag at index i.
func (f *TagField) Remove(i int) bool {
	if i < 0 || i >= len(f.tags) {
		return false
	}
	f.tags = slices.Delete(f.tags, i, i+1)
	return true
}

func (f *TagField) Has(name string) bool {
	return slices.ContainsFunc(f.tags, func(t domain.Tag) bool { return t.Name == name })
}

// Tags returns a copy in insertion order, never nil.
func (f *TagField) Tags() []domain.Tag {
	out := make([]domain.Tag, len(f.tags))
	copy(out, f.tags)
	return out
}

// Names returns the tag names in order.
func (f *TagField) Names() []string {
	out := make([]string, len(f.tags))
	for i, t := range f.tags {
		out[i] = t.Name
	}
	return out
}
