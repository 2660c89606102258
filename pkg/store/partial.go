package store

import "maps"

// Partial is a partial update. It is applied to a private copy of the
// current record, so it may modify any field of the record it receives
// but must not modify values reachable through the old record's maps or
// slices.
type Partial[S any] func(*S)

// Setter is the write half returned by Use: the store's Set.
type Setter[S any] func(partials ...Partial[S])

// Assign returns a Partial that sets one field.
//
//	first := func(s *State) *string { return &s.First }
//	d.Set(store.Assign(first, "Ada"))
func Assign[S, F any](field func(*S) *F, value F) Partial[S] {
	return func(s *S) {
		*field(s) = value
	}
}

// Update returns a Partial that replaces one field with fn of its current
// value.
//
//	d.Set(store.Update(count, func(n int) int { return n + 1 }))
func Update[S, F any](field func(*S) *F, fn func(F) F) Partial[S] {
	return func(s *S) {
		p := field(s)
		*p = fn(*p)
	}
}

// Replace returns a Partial that replaces the whole record.
func Replace[S any](record S) Partial[S] {
	return func(s *S) {
		*s = record
	}
}

// Cloner is implemented by records whose plain copy would share mutable
// state, such as maps. Set calls Clone before applying partials.
type Cloner[S any] interface {
	Clone() S
}

func cloneRecord[S any](record S) S {
	if c, ok := any(record).(Cloner[S]); ok {
		return c.Clone()
	}
	return record
}

// Record is a dynamically shaped record.
type Record map[string]any

// Clone implements Cloner.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Fields returns a Partial that merges values into a Record.
//
//	d := store.New(store.Record{"first": "", "count": 0})
//	d.Set(store.Fields(store.Record{"first": "Ada"}))
func Fields(values Record) Partial[Record] {
	return func(r *Record) {
		if *r == nil {
			*r = Record{}
		}
		for k, v := range values {
			(*r)[k] = v
		}
	}
}
