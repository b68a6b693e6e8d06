package httptransport

import (
	"reflect"
	"strings"
)

// sanitize trims surrounding whitespace from the string and []string fields
// of a request struct. Fields tagged `sanitize:"keep"` are left verbatim.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := range val.NumField() {
		field := val.Field(i)
		if !field.CanSet() || typ.Field(i).Tag.Get("sanitize") == "keep" {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strings.TrimSpace(field.String()))
		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := range field.Len() {
				elem := field.Index(j)
				elem.SetString(strings.TrimSpace(elem.String()))
			}
		}
	}
}
