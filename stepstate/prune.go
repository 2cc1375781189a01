package stepstate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

// ErrNotJSONSafe is returned when a value cannot be coerced to strict JSON.
var ErrNotJSONSafe = fmt.Errorf("value is not JSON-safe")

// PruneToJSON coerces v to a strict JSON value. Functions and channels are
// dropped silently, time.Time values become RFC 3339 strings, and any other
// value that cannot be represented as plain JSON (structs, NaN, complex
// numbers) is a violation that fails the whole write. The operation is
// idempotent: pruning an already pruned value returns it unchanged.
func PruneToJSON(v any) (any, error) {
	return prune(v, "$")
}

func prune(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return t, nil
	case float32:
		return checkFloat(float64(t), path)
	case float64:
		return checkFloat(t, path)
	case time.Time:
		return t.UTC().Format(time.RFC3339), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(t, &decoded); err != nil {
			return nil, fmt.Errorf("%w: invalid raw JSON at %s", ErrNotJSONSafe, path)
		}
		return decoded, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			pv, err := prune(val, path+"."+k)
			if err != nil {
				return nil, err
			}
			if dropped(pv) {
				continue
			}
			out[k] = pv
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(t))
		for i, val := range t {
			pv, err := prune(val, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if dropped(pv) {
				continue
			}
			out = append(out, pv)
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan:
		// Silently droppable, mirrored by the callers above.
		return droppedMarker{}, nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return prune(rv.Elem().Interface(), path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: non-string map key at %s", ErrNotJSONSafe, path)
		}
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			k := key.String()
			val := rv.MapIndex(key).Interface()
			pv, err := prune(val, path+"."+k)
			if err != nil {
				return nil, err
			}
			if dropped(pv) {
				continue
			}
			out[k] = pv
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			val := rv.Index(i).Interface()
			pv, err := prune(val, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if dropped(pv) {
				continue
			}
			out = append(out, pv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T at %s", ErrNotJSONSafe, v, path)
	}
}

// droppedMarker signals a silently droppable value to the enclosing container.
type droppedMarker struct{}

func dropped(pruned any) bool {
	_, ok := pruned.(droppedMarker)
	return ok
}

func checkFloat(f float64, path string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number at %s", ErrNotJSONSafe, path)
	}
	return f, nil
}
