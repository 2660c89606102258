package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	exterrors "github.com/vango-dev/extstore/internal/errors"
)

// PatchJSON decodes a JSON object into a Partial that overwrites exactly
// the top-level fields present in the object. S must be a struct (fields
// matched by json tag or name, case-insensitively like encoding/json) or a
// map with string keys. Keys the record does not have are rejected with
// ErrUnknownField; malformed input with ErrInvalidPatch.
//
//	p, err := store.PatchJSON[State]([]byte(`{"first":"Ada"}`))
//	if err != nil { ... }
//	d.Set(p)
func PatchJSON[S any](data []byte) (Partial[S], error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalidPatch(err)
	}
	if raw == nil {
		return nil, invalidPatch(fmt.Errorf("patch must be a JSON object"))
	}

	t := reflect.TypeOf((*S)(nil)).Elem()
	switch t.Kind() {
	case reflect.Struct:
		return structPatch[S](t, raw)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, invalidPatch(fmt.Errorf("unsupported record type %s", t))
		}
		return mapPatch[S](t, raw)
	default:
		return nil, invalidPatch(fmt.Errorf("unsupported record type %s", t))
	}
}

func structPatch[S any](t reflect.Type, raw map[string]json.RawMessage) (Partial[S], error) {
	fields := jsonFields(t)

	type assignment struct {
		index int
		value reflect.Value
	}
	assignments := make([]assignment, 0, len(raw))

	for key, msg := range raw {
		idx, ok := fields[key]
		if !ok {
			idx, ok = lookupFold(t, key)
		}
		if !ok {
			return nil, exterrors.New("E021").WithDetailf("field %q", key).Wrap(ErrUnknownField)
		}

		v := reflect.New(t.Field(idx).Type)
		if err := json.Unmarshal(msg, v.Interface()); err != nil {
			return nil, invalidPatch(fmt.Errorf("field %q: %w", key, err))
		}
		assignments = append(assignments, assignment{index: idx, value: v.Elem()})
	}

	return func(s *S) {
		rv := reflect.ValueOf(s).Elem()
		for _, a := range assignments {
			rv.Field(a.index).Set(a.value)
		}
	}, nil
}

func mapPatch[S any](t reflect.Type, raw map[string]json.RawMessage) (Partial[S], error) {
	values := make(map[string]reflect.Value, len(raw))
	for key, msg := range raw {
		v := reflect.New(t.Elem())
		if err := json.Unmarshal(msg, v.Interface()); err != nil {
			return nil, invalidPatch(fmt.Errorf("field %q: %w", key, err))
		}
		values[key] = v.Elem()
	}

	return func(s *S) {
		rv := reflect.ValueOf(s).Elem()

		// Copy before writing so the published map is never modified.
		next := reflect.MakeMapWithSize(t, rv.Len()+len(values))
		iter := rv.MapRange()
		for iter.Next() {
			next.SetMapIndex(iter.Key(), iter.Value())
		}
		for key, v := range values {
			next.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), v)
		}
		rv.Set(next)
	}, nil
}

// jsonFields maps JSON names to exported top-level field indexes.
func jsonFields(t reflect.Type) map[string]int {
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name, ok := jsonName(t.Field(i)); ok {
			fields[name] = i
		}
	}
	return fields
}

func jsonName(f reflect.StructField) (string, bool) {
	if !f.IsExported() || f.Anonymous {
		return "", false
	}
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return f.Name, true
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return "", false
	case "":
		return f.Name, true
	}
	return name, true
}

// lookupFold finds a field by case-insensitive name. The first field in
// declaration order wins, as in encoding/json.
func lookupFold(t reflect.Type, key string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		if name, ok := jsonName(t.Field(i)); ok && strings.EqualFold(name, key) {
			return i, true
		}
	}
	return 0, false
}

func invalidPatch(err error) error {
	return exterrors.New("E020").Wrap(fmt.Errorf("%w: %w", ErrInvalidPatch, err))
}
