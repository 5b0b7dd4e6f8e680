package provider

import (
	"encoding/json"
	"reflect"
	"strings"
)

// extraFields returns the JSON fields of data that are not declared on v's
// struct type. v must be a pointer to a struct. Returns nil when every field
// is known, so records without upstream additions carry no allocation.
func extraFields(data []byte, v any) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, name := range knownJSONFields(reflect.TypeOf(v).Elem()) {
		delete(all, name)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// knownJSONFields lists the json tag names declared on a struct type.
// Fields tagged "-" (like the Extra bucket itself) are not considered known.
func knownJSONFields(t reflect.Type) []string {
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		names = append(names, tag)
	}
	return names
}
