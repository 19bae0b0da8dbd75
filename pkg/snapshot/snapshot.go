// Package snapshot converts domain entities into flat, JSON-safe field maps
// for the audit trail. Serialization is best-effort by contract: it never
// returns an error and never panics, because a failed snapshot must not be
// the reason a business write fails.
package snapshot

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// RedactedMarker replaces any value whose field name looks like a secret.
const RedactedMarker = "[REDACTED]"

// maxElems bounds serialized slices so a snapshot cannot balloon.
const maxElems = 50

// deniedFragments is the secret deny-list. Matching is case-insensitive and
// by substring so password_hash, resetToken and secret_code are all caught.
var deniedFragments = []string{"password", "secret", "token", "code", "hash"}

// Snapshotter lets entities with unexported fields define their own field
// map. The returned map still goes through redaction and coercion.
type Snapshotter interface {
	Snapshot() map[string]any
}

// Identifiable marks entities that can be summarized as a weak reference
// instead of being expanded in place.
type Identifiable interface {
	AuditLabel() string
}

// Serialize flattens v into field name -> JSON-safe value. Nested entities
// are summarized, secrets redacted, and per-field failures degrade to an
// inline error string.
func Serialize(v any) map[string]any {
	// The nil-pointer check runs before the Snapshotter assertion: a typed
	// nil still satisfies the interface and would blow up inside its own
	// Snapshot method.
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if s, ok := v.(Snapshotter); ok {
		return sanitize(s.Snapshot())
	}
	if m, ok := v.(map[string]any); ok {
		return sanitize(m)
	}
	if rv.Kind() != reflect.Struct {
		return map[string]any{"value": coerce(rv.Interface())}
	}

	out := make(map[string]any, rv.NumField())
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}
		out[name] = safeValue(name, rv.Field(i))
	}
	return out
}

// Redacted reports whether a field name matches the secret deny-list.
func Redacted(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range deniedFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func sanitize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if Redacted(k) {
			out[k] = RedactedMarker
			continue
		}
		out[k] = func() (val any) {
			defer func() {
				if r := recover(); r != nil {
					val = fmt.Sprintf("<error: %v>", r)
				}
			}()
			return coerce(v)
		}()
	}
	return out
}

func safeValue(name string, fv reflect.Value) (val any) {
	defer func() {
		if r := recover(); r != nil {
			val = fmt.Sprintf("<error: %v>", r)
		}
	}()
	if Redacted(name) {
		return RedactedMarker
	}
	if !fv.CanInterface() {
		return nil
	}
	return coerce(fv.Interface())
}

// coerce maps a single value onto a JSON-safe representation. Referenced
// entities collapse to {id, label} summaries rather than being recursed into.
func coerce(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339)
	case Snapshotter:
		return summarize(v)
	case Identifiable:
		return summarize(v)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	case map[string]any:
		return sanitize(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return coerce(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		if n > maxElems {
			n = maxElems
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = coerce(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		return summarize(v)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			name := fmt.Sprint(key.Interface())
			if Redacted(name) {
				out[name] = RedactedMarker
				continue
			}
			out[name] = coerce(rv.MapIndex(key).Interface())
		}
		return out
	default:
		return fmt.Sprint(v)
	}
}

// summarize builds the bounded {id, label} form of a referenced entity.
func summarize(v any) map[string]any {
	id, label := Identity(v)
	return map[string]any{"id": id, "label": label}
}

// Identity extracts a stringified id and a short human label from an entity,
// probing an ID() method or exported ID field, then AuditLabel/String/Name.
func Identity(v any) (string, string) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return "", ""
	}

	id := ""
	if m := rv.MethodByName("ID"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
		id = fmt.Sprint(m.Call(nil)[0].Interface())
	} else {
		elem := rv
		for elem.Kind() == reflect.Pointer && !elem.IsNil() {
			elem = elem.Elem()
		}
		if elem.Kind() == reflect.Struct {
			if f := elem.FieldByName("ID"); f.IsValid() && f.CanInterface() {
				id = fmt.Sprint(f.Interface())
			}
		}
	}

	label := ""
	switch t := v.(type) {
	case Identifiable:
		label = t.AuditLabel()
	case fmt.Stringer:
		label = t.String()
	default:
		if m := rv.MethodByName("Name"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			label = fmt.Sprint(m.Call(nil)[0].Interface())
		}
	}
	if label == "" {
		label = structName(v)
		if id != "" {
			label = fmt.Sprintf("%s #%s", label, id)
		}
	}
	return id, label
}

// TypeName returns the bare struct name of v for use as a target type label.
func TypeName(v any) string {
	return structName(v)
}

func structName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

func fieldName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("json"); ok {
		name := strings.Split(tag, ",")[0]
		if name != "" {
			return name
		}
	}
	return toSnake(field.Name)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
