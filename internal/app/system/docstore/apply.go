package docstore

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplyOps mutates doc in place. Values are normalized first so the result
// matches what a BSON round trip would produce.
func ApplyOps(doc Document, clock *Clock, ops ...FieldOp) error {
	for _, op := range ops {
		if op.Path == "" {
			return fmt.Errorf("docstore: field op with empty path")
		}
		switch op.Kind {
		case OpSet:
			v, err := NormalizeValue(op.Value)
			if err != nil {
				return err
			}
			if err := SetPath(doc, op.Path, v); err != nil {
				return err
			}

		case OpSetAdd, OpSetRemove:
			cur, _ := GetPath(doc, op.Path)
			arr, ok := asArray(cur)
			if !ok {
				return fmt.Errorf("docstore: %s is not an array", op.Path)
			}
			for _, raw := range op.Values {
				v, err := NormalizeValue(raw)
				if err != nil {
					return err
				}
				if op.Kind == OpSetAdd {
					if !containsEqual(arr, v) {
						arr = append(arr, v)
					}
					continue
				}
				kept := arr[:0]
				for _, e := range arr {
					if !Equal(e, v) {
						kept = append(kept, e)
					}
				}
				arr = kept
			}
			if err := SetPath(doc, op.Path, arr); err != nil {
				return err
			}

		case OpIncrement:
			cur, present := GetPath(doc, op.Path)
			var next any
			switch n := cur.(type) {
			case nil:
				next = op.Delta
			case int32:
				next = int64(n) + op.Delta
			case int64:
				next = n + op.Delta
			case int:
				next = int64(n) + op.Delta
			case float64:
				next = n + float64(op.Delta)
			default:
				if present {
					return fmt.Errorf("docstore: %s is not numeric", op.Path)
				}
				next = op.Delta
			}
			if err := SetPath(doc, op.Path, next); err != nil {
				return err
			}

		case OpServerTimestamp:
			if err := SetPath(doc, op.Path, primitive.NewDateTimeFromTime(clock.Next())); err != nil {
				return err
			}

		default:
			return fmt.Errorf("docstore: unknown field op %d", op.Kind)
		}
	}
	return nil
}

// GetPath reads a dotted path.
func GetPath(doc Document, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes a dotted path, creating intermediate maps.
func SetPath(doc Document, path string, v any) error {
	parts := strings.Split(path, ".")
	m := doc
	for _, part := range parts[:len(parts)-1] {
		child, present := m[part]
		next, ok := asMap(child)
		if !present || child == nil {
			next, ok = bson.M{}, true
		}
		if !ok {
			return fmt.Errorf("docstore: %s: %q is not a map", path, part)
		}
		m[part] = next
		m = next
	}
	m[parts[len(parts)-1]] = v
	return nil
}

func asMap(v any) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return bson.M(t), true
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func asArray(v any) (primitive.A, bool) {
	switch t := v.(type) {
	case nil:
		return primitive.A{}, true
	case primitive.A:
		return append(primitive.A(nil), t...), true
	case []any:
		return append(primitive.A(nil), t...), true
	}
	return nil, false
}

func containsEqual(arr primitive.A, v any) bool {
	for _, e := range arr {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Compare orders two scalar values. ok is false when the values are not
// comparable (different kinds, or composite values).
func Compare(a, b any) (c int, ok bool) {
	if x, isNum := number(a); isNum {
		y, isNum := number(b)
		if !isNum {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	}
	if x, isTime := instant(a); isTime {
		y, isTime := instant(b)
		if !isTime {
			return 0, false
		}
		return cmp3(x.Before(y), x.After(y)), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmp3(!x && y, x && !y), true
	}
	return 0, false
}

// Equal reports whether a and b hold the same value, treating numbers of
// different widths and the two time representations as equal when they
// denote the same quantity.
func Equal(a, b any) bool {
	if c, ok := Compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func instant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}
