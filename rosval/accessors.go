package rosval

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/embarktrucks/embag/rosmsg"
	"github.com/embarktrucks/embag/rostime"
)

func (v *Value) checkPrimitive(want rosmsg.Primitive) error {
	if v.schema.Kind != rosmsg.KindPrimitive || v.schema.Primitive != want {
		got := v.schema.Primitive
		if v.schema.Kind != rosmsg.KindPrimitive {
			return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want, v.schema.Kind)
		}
		return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want, got)
	}
	return nil
}

// AsBool decodes a `bool` primitive.
func (v *Value) AsBool() (bool, error) {
	if err := v.checkPrimitive(rosmsg.Bool); err != nil {
		return false, err
	}
	return v.data[0] != 0, nil
}

// AsInt8 decodes an `int8` primitive.
func (v *Value) AsInt8() (int8, error) {
	if err := v.checkPrimitive(rosmsg.Int8); err != nil {
		return 0, err
	}
	return int8(v.data[0]), nil
}

// AsUint8 decodes a `uint8` primitive.
func (v *Value) AsUint8() (uint8, error) {
	if err := v.checkPrimitive(rosmsg.UInt8); err != nil {
		return 0, err
	}
	return v.data[0], nil
}

// AsInt16 decodes an `int16` primitive.
func (v *Value) AsInt16() (int16, error) {
	if err := v.checkPrimitive(rosmsg.Int16); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(v.data[:2])), nil
}

// AsUint16 decodes a `uint16` primitive.
func (v *Value) AsUint16() (uint16, error) {
	if err := v.checkPrimitive(rosmsg.UInt16); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v.data[:2]), nil
}

// AsInt32 decodes an `int32` primitive.
func (v *Value) AsInt32() (int32, error) {
	if err := v.checkPrimitive(rosmsg.Int32); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(v.data[:4])), nil
}

// AsUint32 decodes a `uint32` primitive.
func (v *Value) AsUint32() (uint32, error) {
	if err := v.checkPrimitive(rosmsg.UInt32); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v.data[:4]), nil
}

// AsInt64 decodes an `int64` primitive.
func (v *Value) AsInt64() (int64, error) {
	if err := v.checkPrimitive(rosmsg.Int64); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(v.data[:8])), nil
}

// AsUint64 decodes a `uint64` primitive.
func (v *Value) AsUint64() (uint64, error) {
	if err := v.checkPrimitive(rosmsg.UInt64); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v.data[:8]), nil
}

// AsFloat32 decodes a `float32` primitive.
func (v *Value) AsFloat32() (float32, error) {
	if err := v.checkPrimitive(rosmsg.Float32); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v.data[:4])), nil
}

// AsFloat64 decodes a `float64` primitive.
func (v *Value) AsFloat64() (float64, error) {
	if err := v.checkPrimitive(rosmsg.Float64); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.data[:8])), nil
}

// AsString decodes a length-prefixed `string` primitive.
func (v *Value) AsString() (string, error) {
	if err := v.checkPrimitive(rosmsg.String); err != nil {
		return "", err
	}
	n, err := v.Extent()
	if err != nil {
		return "", err
	}
	return string(v.data[4:n]), nil
}

// AsTime decodes a `time` primitive.
func (v *Value) AsTime() (rostime.Time, error) {
	if err := v.checkPrimitive(rosmsg.RosTime); err != nil {
		return rostime.Time{}, err
	}
	return rostime.Time{
		Sec:  binary.LittleEndian.Uint32(v.data[:4]),
		Nsec: binary.LittleEndian.Uint32(v.data[4:8]),
	}, nil
}

// AsDuration decodes a `duration` primitive.
func (v *Value) AsDuration() (rostime.Duration, error) {
	if err := v.checkPrimitive(rosmsg.RosDur); err != nil {
		return rostime.Duration{}, err
	}
	return rostime.Duration{
		Sec:  int32(binary.LittleEndian.Uint32(v.data[:4])),
		Nsec: int32(binary.LittleEndian.Uint32(v.data[4:8])),
	}, nil
}
