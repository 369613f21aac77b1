package repository

import (
	"encoding/json"
	"reflect"
)

// arrayUnion, arrayRemove and deleteField are merge sentinels recognized by
// the document store when folding a field payload into the current data.
type arrayUnion struct{ elems []any }

type arrayRemove struct{ elems []any }

type deleteField struct{}

// ArrayUnion marks a field for union-add: each element is appended unless a
// deep-equal element is already present.
func ArrayUnion(elems ...any) any {
	return arrayUnion{elems: elems}
}

// ArrayRemove marks a field for exact-match removal of the given elements.
func ArrayRemove(elems ...any) any {
	return arrayRemove{elems: elems}
}

// DeleteField marks a field for removal from the document.
func DeleteField() any {
	return deleteField{}
}

// ApplyFields folds a field payload into data, resolving merge sentinels.
// Plain values replace the current value after JSON normalization.
func ApplyFields(data map[string]any, fields map[string]any) map[string]any {
	for name, value := range fields {
		switch v := value.(type) {
		case arrayUnion:
			data[name] = unionInto(asSlice(data[name]), v.elems)
		case arrayRemove:
			data[name] = removeFrom(asSlice(data[name]), v.elems)
		case deleteField:
			delete(data, name)
		default:
			data[name] = normalizeValue(value)
		}
	}
	return data
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func unionInto(current []any, elems []any) []any {
	for _, elem := range elems {
		norm := normalizeValue(elem)
		found := false
		for _, existing := range current {
			if reflect.DeepEqual(existing, norm) {
				found = true
				break
			}
		}
		if !found {
			current = append(current, norm)
		}
	}
	if current == nil {
		current = []any{}
	}
	return current
}

func removeFrom(current []any, elems []any) []any {
	kept := make([]any, 0, len(current))
	for _, existing := range current {
		remove := false
		for _, elem := range elems {
			if reflect.DeepEqual(existing, normalizeValue(elem)) {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, existing)
		}
	}
	return kept
}

// normalizeValue converts a value to its canonical JSON form so that later
// deep-equality checks compare like with like regardless of the Go type the
// caller handed in.
func normalizeValue(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
