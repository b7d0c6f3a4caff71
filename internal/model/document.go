package model

import "go.mongodb.org/mongo-driver/v2/bson"

// Document is a stored film or actor exactly as read back. Stored documents
// carry no schema, so reads never assume field types and keep every field.
type Document = bson.M

// Plain rewrites the ordered document and array types the driver produces
// for nested values into maps and slices so the value encodes as ordinary
// JSON objects and arrays.
func Plain(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = Plain(e.Value)
		}
		return m
	case bson.M:
		for k, val := range t {
			t[k] = Plain(val)
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = Plain(val)
		}
		return bson.M(t)
	case bson.A:
		for i, val := range t {
			t[i] = Plain(val)
		}
		return []any(t)
	case []any:
		for i, val := range t {
			t[i] = Plain(val)
		}
		return t
	default:
		return v
	}
}
