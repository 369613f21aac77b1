// Package diff decides whether a named field changed between the before and
// after snapshot of a record. It drives all update-triggered logic.
package diff

import (
	"reflect"
	"time"
)

// Field names a field to watch. A Field with Sub entries describes a nested
// object: the field counts as changed when any listed sub-field changed.
type Field struct {
	Name string
	Sub  []Field
}

// Named is shorthand for a plain, non-nested field.
func Named(name string) Field {
	return Field{Name: name}
}

// Changed reports whether the named field differs between the two snapshots.
// A nil snapshot on exactly one side counts as changed.
func Changed(before, after map[string]any, field Field) bool {
	if before == nil || after == nil {
		return !(before == nil && after == nil)
	}
	bv, bok := before[field.Name]
	av, aok := after[field.Name]
	if bok != aok {
		return true
	}
	if len(field.Sub) == 0 {
		return !valuesEqual(bv, av)
	}

	bm, bIsMap := bv.(map[string]any)
	am, aIsMap := av.(map[string]any)
	if bIsMap != aIsMap {
		return true
	}
	if !bIsMap {
		return !valuesEqual(bv, av)
	}
	return AnyChanged(bm, am, field.Sub)
}

// AnyChanged reports whether any of the listed fields changed.
func AnyChanged(before, after map[string]any, fields []Field) bool {
	for _, f := range fields {
		if Changed(before, after, f) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	at, aIsTime := a.(time.Time)
	bt, bIsTime := b.(time.Time)
	if aIsTime && bIsTime {
		return at.Equal(bt)
	}
	if aIsTime != bIsTime {
		return false
	}
	return reflect.DeepEqual(a, b)
}
