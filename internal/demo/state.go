package demo

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vango-dev/extstore/pkg/store"
)

// State is the record shared by the demo components.
type State struct {
	First string `json:"first"`
	Last  string `json:"last"`
	Age   int    `json:"age"`
	Count int    `json:"count"`
}

// StoreContext carries the demo store from Root to the components.
var StoreContext = store.NewContext[State]("app")

// Field names a text field of State.
type Field string

const (
	FieldFirst Field = "first"
	FieldLast  Field = "last"
)

// Fields lists the text fields in display order.
var Fields = []Field{FieldFirst, FieldLast}

// Select returns the selector for f.
func (f Field) Select(s State) string {
	return *f.ptr(&s)
}

func (f Field) ptr(s *State) *string {
	if f == FieldLast {
		return &s.Last
	}
	return &s.First
}

// Assign returns the partial update that sets f to value.
func (f Field) Assign(value string) store.Partial[State] {
	return store.Assign(f.ptr, value)
}

// Label is the field name as shown in the page.
func (f Field) Label() string {
	return cases.Title(language.English).String(string(f))
}

// FullName is a derived value. It is a selector, not a field of State.
func FullName(s State) string {
	return s.First + " " + s.Last
}

// Count selects the counter.
func Count(s State) int {
	return s.Count
}

func countField(s *State) *int {
	return &s.Count
}
