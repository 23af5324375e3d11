package ormtest

import (
	"fmt"
	"reflect"
)

// Describe returns a diagnostic label for entity: its String() output when
// it implements fmt.Stringer, otherwise an identity token unique to the
// instance, followed by the type name in parentheses.
func Describe(entity any) string {
	if entity == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%T)", label(entity), entity)
}

func label(entity any) string {
	if s, ok := entity.(fmt.Stringer); ok {
		if rv := reflect.ValueOf(entity); rv.Kind() != reflect.Ptr || !rv.IsNil() {
			return s.String()
		}
	}
	switch reflect.ValueOf(entity).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%p", entity)
	default:
		return "value"
	}
}
