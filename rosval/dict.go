package rosval

import (
	"fmt"

	"github.com/embarktrucks/embag/rosmsg"
)

// Dict recursively materializes the value into a plain Go tree of
// map[string]any (objects), []any (arrays), and primitive Go values —
// the Go-native analogue of a host-binding's dict-conversion helper.
// Unlike field-by-field Get/Index access, Dict eagerly decodes every
// primitive leaf; it exists for convenience (JSON export, the CLI's
// `cat` command) and is not on the hot path of partial field access.
func (v *Value) Dict() (any, error) {
	switch v.schema.Kind {
	case rosmsg.KindPrimitive:
		return v.primitiveAny()
	case rosmsg.KindObject:
		names, err := v.FieldNames()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(names))
		for _, name := range names {
			child, err := v.Get(name)
			if err != nil {
				return nil, err
			}
			val, err := child.Dict()
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			out[name] = val
		}
		return out, nil
	case rosmsg.KindArrayPrimitive, rosmsg.KindArrayObject:
		n, err := v.Len()
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			child, err := v.Index(i)
			if err != nil {
				return nil, err
			}
			val, err := child.Dict()
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("rosval: unknown schema kind %v", v.schema.Kind)
	}
}

func (v *Value) primitiveAny() (any, error) {
	switch v.schema.Primitive {
	case rosmsg.Bool:
		return v.AsBool()
	case rosmsg.Int8:
		return v.AsInt8()
	case rosmsg.UInt8:
		return v.AsUint8()
	case rosmsg.Int16:
		return v.AsInt16()
	case rosmsg.UInt16:
		return v.AsUint16()
	case rosmsg.Int32:
		return v.AsInt32()
	case rosmsg.UInt32:
		return v.AsUint32()
	case rosmsg.Int64:
		return v.AsInt64()
	case rosmsg.UInt64:
		return v.AsUint64()
	case rosmsg.Float32:
		return v.AsFloat32()
	case rosmsg.Float64:
		return v.AsFloat64()
	case rosmsg.String:
		return v.AsString()
	case rosmsg.RosTime:
		t, err := v.AsTime()
		if err != nil {
			return nil, err
		}
		return t.ToSec(), nil
	case rosmsg.RosDur:
		d, err := v.AsDuration()
		if err != nil {
			return nil, err
		}
		return d.ToSec(), nil
	default:
		return nil, fmt.Errorf("rosval: unknown primitive %q", v.schema.Primitive)
	}
}
