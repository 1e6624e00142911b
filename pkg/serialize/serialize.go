// Package serialize renders arbitrary context payloads as bounded, readable
// JSON for inclusion in a prompt. Rendering never panics.
package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultMaxStringLength = 1000

	CircularMarker  = "[Circular Reference]"
	FunctionMarker  = "[Function]"
	TruncatedSuffix = "... [truncated]"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// Serializer converts values to indented JSON text
type Serializer struct {
	maxStringLength int
}

// New creates a serializer truncating strings longer than maxStringLength runes
func New(maxStringLength int) *Serializer {
	if maxStringLength <= 0 {
		maxStringLength = DefaultMaxStringLength
	}
	return &Serializer{maxStringLength: maxStringLength}
}

var defaultSerializer = New(DefaultMaxStringLength)

// Serialize renders v with the default limits
func Serialize(v any) string {
	return defaultSerializer.Serialize(v)
}

// Serialize renders v. Cycles, functions, errors, times and opaque values are
// replaced with readable markers; any failure becomes an error string.
func (s *Serializer) Serialize(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("[Error serializing data: %v]", r)
		}
	}()

	w := &walker{max: s.maxStringLength, path: make(map[visit]bool)}
	clean := w.walk(reflect.ValueOf(v))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(clean); err != nil {
		return fmt.Sprintf("[Error serializing data: %v]", err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// visit identifies a reference value on the current traversal path
type visit struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	max  int
	path map[visit]bool
}

func (w *walker) walk(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}

	if v.Type() == timeType {
		return isoTime(v.Interface().(time.Time))
	}
	if v.Kind() != reflect.Interface && v.Type().Implements(errorType) && v.CanInterface() {
		return fmt.Sprintf("[Error: %s]", v.Interface().(error).Error())
	}

	switch v.Kind() {
	case reflect.Interface:
		return w.walk(v.Elem())

	case reflect.Pointer:
		return w.enter(v, func() any { return w.walk(v.Elem()) })

	case reflect.Map:
		return w.enter(v, func() any { return w.walkMap(v) })

	case reflect.Slice:
		if v.Len() == 0 {
			return []any{}
		}
		return w.enter(v, func() any { return w.walkList(v) })

	case reflect.Array:
		return w.walkList(v)

	case reflect.Struct:
		return w.walkStruct(v)

	case reflect.Func:
		return FunctionMarker

	case reflect.Chan, reflect.UnsafePointer:
		return opaque(v.Type())

	case reflect.String:
		return w.truncate(v.String())

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f

	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Complex())

	case reflect.Bool:
		return v.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	}

	return opaque(v.Type())
}

// enter guards a reference value against cycles on the current path
func (w *walker) enter(v reflect.Value, fn func() any) any {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if w.path[key] {
		return CircularMarker
	}
	w.path[key] = true
	defer delete(w.path, key)
	return fn()
}

func (w *walker) walkMap(v reflect.Value) any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[mapKey(iter.Key())] = w.walk(iter.Value())
	}
	return out
}

func (w *walker) walkList(v reflect.Value) any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = w.walk(v.Index(i))
	}
	return out
}

func (w *walker) walkStruct(v reflect.Value) any {
	t := v.Type()
	out := make(map[string]any)
	exported := 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		exported++

		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = w.walk(v.Field(i))
	}

	// Structs exposing nothing (mutexes, handles, framework nodes) are opaque
	if exported == 0 && t.NumField() > 0 {
		return opaque(t)
	}
	return out
}

func (w *walker) truncate(s string) string {
	if utf8.RuneCountInString(s) <= w.max {
		return s
	}
	runes := []rune(s)
	return string(runes[:w.max]) + TruncatedSuffix
}

func mapKey(k reflect.Value) string {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.String()
}

func opaque(t reflect.Type) string {
	if name := t.Name(); name != "" {
		return "[" + name + "]"
	}
	return "[ComplexObject]"
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
