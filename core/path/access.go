package path

import (
	"reflect"
	"strings"
)

// Get returns the value stored at p inside doc. The boolean is false when any
// segment along the way is missing; Get never panics on malformed documents.
//
// Structs are traversed by their json field names, maps by string keys and
// slices/arrays by index. Pointers and interfaces are followed transparently.
func Get(doc any, p Path) (any, bool) {
	v := reflect.ValueOf(doc)
	for _, seg := range p {
		next, ok := child(v, seg)
		if !ok {
			return nil, false
		}
		v = next
	}
	if !v.IsValid() {
		return nil, false
	}
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && v.IsNil() {
		return nil, true
	}
	return v.Interface(), true
}

// Set returns a copy of doc with value stored at p. doc itself is not
// modified. The last segment may name a new map key, or the index one past
// the end of a list to append. Any other missing segment fails with
// ErrNotFound, so a mistyped path never grows new structure.
func Set(doc any, p Path, value any) (any, error) {
	if len(p) == 0 {
		return value, nil
	}
	return rewrite("set", doc, p, func(t reflect.Type) (reflect.Value, error) {
		return assignable(value, t)
	})
}

// Delete returns a copy of doc with the map key or list element at p removed.
// Removing a struct field resets it to its zero value.
func Delete(doc any, p Path) (any, error) {
	if len(p) == 0 {
		return nil, &Error{Op: "delete", Path: p, At: -1, Err: ErrNotFound}
	}
	return rewrite("delete", doc, p, nil)
}

// leafFunc produces the value stored at the final segment given the static
// type of its container slot. A nil leafFunc means delete.
type leafFunc func(t reflect.Type) (reflect.Value, error)

func rewrite(op string, doc any, p Path, leaf leafFunc) (any, error) {
	root := reflect.ValueOf(doc)
	if !root.IsValid() {
		return nil, &Error{Op: op, Path: p, At: 0, Err: ErrNotFound}
	}
	out, at, err := rewriteAt(root, p, 0, leaf)
	if err != nil {
		return nil, &Error{Op: op, Path: p, At: at, Err: err}
	}
	return out.Interface(), nil
}

// rewriteAt returns a replacement for v, which has the same static type, with
// the remainder of the path p[i:] rewritten. On error it reports the index
// of the offending segment.
func rewriteAt(v reflect.Value, p Path, i int, leaf leafFunc) (reflect.Value, int, error) {
	seg := p[i]
	last := i == len(p)-1

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, i, ErrNotFound
		}
		inner, at, err := rewriteAt(v.Elem(), p, i, leaf)
		if err != nil {
			return reflect.Value{}, at, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out, 0, nil

	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, i, ErrNotFound
		}
		inner, at, err := rewriteAt(v.Elem(), p, i, leaf)
		if err != nil {
			return reflect.Value{}, at, err
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(inner)
		return out, 0, nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, i, ErrTypeMismatch
		}
		key := reflect.ValueOf(seg.key()).Convert(v.Type().Key())
		cur := v.MapIndex(key)

		var next reflect.Value
		switch {
		case last && leaf == nil:
			if !cur.IsValid() {
				return reflect.Value{}, i, ErrNotFound
			}
		case last:
			nv, err := leaf(v.Type().Elem())
			if err != nil {
				return reflect.Value{}, i, err
			}
			next = nv
		default:
			if !cur.IsValid() {
				return reflect.Value{}, i, ErrNotFound
			}
			nv, at, err := rewriteAt(cur, p, i+1, leaf)
			if err != nil {
				return reflect.Value{}, at, err
			}
			next = nv
		}

		out := reflect.MakeMapWithSize(v.Type(), v.Len()+1)
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		// A zero Value deletes the key.
		out.SetMapIndex(key, next)
		return out, 0, nil

	case reflect.Slice:
		idx, ok := seg.index()
		n := v.Len()
		if !ok || idx < 0 || idx > n || (idx == n && !(last && leaf != nil)) {
			return reflect.Value{}, i, ErrNotFound
		}

		if last && leaf == nil {
			out := reflect.MakeSlice(v.Type(), 0, n-1)
			out = reflect.AppendSlice(out, v.Slice(0, idx))
			out = reflect.AppendSlice(out, v.Slice(idx+1, n))
			return out, 0, nil
		}

		next, at, err := leafOrDescend(v, idx, p, i, leaf)
		if err != nil {
			return reflect.Value{}, at, err
		}
		size := n
		if idx == n {
			size++
		}
		out := reflect.MakeSlice(v.Type(), size, size)
		reflect.Copy(out, v)
		out.Index(idx).Set(next)
		return out, 0, nil

	case reflect.Array:
		idx, ok := seg.index()
		if !ok || idx < 0 || idx >= v.Len() {
			return reflect.Value{}, i, ErrNotFound
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		if last && leaf == nil {
			out.Index(idx).Set(reflect.Zero(v.Type().Elem()))
			return out, 0, nil
		}
		next, at, err := leafOrDescend(v, idx, p, i, leaf)
		if err != nil {
			return reflect.Value{}, at, err
		}
		out.Index(idx).Set(next)
		return out, 0, nil

	case reflect.Struct:
		fi, ok := fieldIndex(v.Type(), seg.key())
		if !ok {
			return reflect.Value{}, i, ErrNotFound
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		field := v.Field(fi)

		switch {
		case last && leaf == nil:
			out.Field(fi).Set(reflect.Zero(field.Type()))
		case last:
			nv, err := leaf(field.Type())
			if err != nil {
				return reflect.Value{}, i, err
			}
			out.Field(fi).Set(nv)
		default:
			nv, at, err := rewriteAt(field, p, i+1, leaf)
			if err != nil {
				return reflect.Value{}, at, err
			}
			out.Field(fi).Set(nv)
		}
		return out, 0, nil
	}

	return reflect.Value{}, i, ErrNotFound
}

func leafOrDescend(v reflect.Value, idx int, p Path, i int, leaf leafFunc) (reflect.Value, int, error) {
	if i == len(p)-1 {
		nv, err := leaf(v.Type().Elem())
		if err != nil {
			return reflect.Value{}, i, err
		}
		return nv, 0, nil
	}
	return rewriteAt(v.Index(idx), p, i+1, leaf)
}

// child resolves one segment against v for reads.
func child(v reflect.Value, seg Segment) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, false
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		e := v.MapIndex(reflect.ValueOf(seg.key()).Convert(v.Type().Key()))
		return e, e.IsValid()
	case reflect.Slice, reflect.Array:
		idx, ok := seg.index()
		if !ok || idx < 0 || idx >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(idx), true
	case reflect.Struct:
		fi, ok := fieldIndex(v.Type(), seg.key())
		if !ok {
			return reflect.Value{}, false
		}
		return v.Field(fi), true
	}
	return reflect.Value{}, false
}

// fieldIndex finds an exported field by its json name, falling back to the Go
// field name. Fields tagged "-" are invisible.
func fieldIndex(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		jsonName, _, _ := strings.Cut(tag, ",")
		if jsonName == name || (jsonName == "" && f.Name == name) {
			return i, true
		}
	}
	return 0, false
}

// assignable adapts value to t. Numbers are converted between kinds so that a
// float64 decoded from JSON can be stored in an int field and vice versa.
func assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, ErrTypeMismatch
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	if rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, ErrTypeMismatch
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
