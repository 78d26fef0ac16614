// Package rosval implements the schema-driven lazy deserializer: it
// turns a raw little-endian message byte slice plus a rosmsg.Node
// schema into a RosValue tree that is only materialized as far as a
// caller actually asks.
package rosval

import (
	"encoding/binary"
	"fmt"

	"github.com/embarktrucks/embag/rosmsg"
)

// Value is a lazy, read-only handle into a message's bytes, typed by
// its schema node. It owns neither the bytes nor the schema — both
// are borrowed from the message's connection and chunk arena — so a
// Value must not outlive the message it was produced from.
type Value struct {
	schema *rosmsg.Node
	data   []byte // this value's byte range; may extend past its own extent until Extent() trims it conceptually

	extent  int   // -1 until computed; byte length of this value within data
	offsets []int // cumulative child byte offsets, length len(children)+1; nil until built
}

// Walk decodes the root value of schema from the front of data. data
// may be longer than the value's own extent (e.g. the remainder of a
// message or an enclosing object); Walk only reads as many bytes as
// the schema requires.
func Walk(schema *rosmsg.Node, data []byte) (*Value, error) {
	v := &Value{schema: schema, data: data, extent: -1}
	if _, err := v.Extent(); err != nil {
		return nil, err
	}
	return v, nil
}

func newChild(schema *rosmsg.Node, data []byte) *Value {
	return &Value{schema: schema, data: data, extent: -1}
}

// Schema returns the value's schema node.
func (v *Value) Schema() *rosmsg.Node { return v.schema }

// RawBytes returns the value's own byte range (its extent, not the
// full remainder of the enclosing message).
func (v *Value) RawBytes() ([]byte, error) {
	n, err := v.Extent()
	if err != nil {
		return nil, err
	}
	return v.data[:n], nil
}

// Extent returns (and memoizes) the number of bytes this value
// occupies at the front of its backing slice. Computing it for an
// object or array walks each child to find where it ends — there is
// no way to avoid that scan, since variable-length fields mean byte
// offsets are message-dependent — but the walk never converts a
// primitive leaf into a Go value; it only measures it. The resulting
// offset table is cached on the Value and reused by Get/Index.
func (v *Value) Extent() (int, error) {
	// A child handed out by Get/Index arrives with its extent known but
	// no offset table yet; it is walked once more to build that table.
	if v.extent >= 0 && (v.offsets != nil || v.schema.Kind == rosmsg.KindPrimitive) {
		return v.extent, nil
	}
	switch v.schema.Kind {
	case rosmsg.KindPrimitive:
		return v.primitiveExtent()
	case rosmsg.KindObject:
		return v.objectExtent()
	case rosmsg.KindArrayPrimitive:
		return v.arrayPrimitiveExtent()
	case rosmsg.KindArrayObject:
		return v.arrayObjectExtent()
	default:
		return 0, fmt.Errorf("rosval: unknown schema kind %v", v.schema.Kind)
	}
}

func (v *Value) primitiveExtent() (int, error) {
	size := v.schema.Primitive.Size()
	if size == rosmsg.VariableSize {
		if len(v.data) < 4 {
			return 0, ErrShortRead
		}
		n := int(binary.LittleEndian.Uint32(v.data))
		total := 4 + n
		if len(v.data) < total {
			return 0, ErrShortRead
		}
		v.extent = total
		return v.extent, nil
	}
	if len(v.data) < size {
		return 0, ErrShortRead
	}
	v.extent = size
	return v.extent, nil
}

func (v *Value) objectExtent() (int, error) {
	offsets := make([]int, len(v.schema.Fields)+1)
	pos := 0
	for i, f := range v.schema.Fields {
		offsets[i] = pos
		if pos > len(v.data) {
			return 0, ErrShortRead
		}
		child := newChild(f.Schema, v.data[pos:])
		n, err := child.Extent()
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", f.Name, err)
		}
		pos += n
	}
	offsets[len(v.schema.Fields)] = pos
	v.offsets = offsets
	v.extent = pos
	return v.extent, nil
}

// arrayHeader returns the element count and the number of header
// bytes consumed (4 for a length-prefixed array, 0 for fixed-size).
func (v *Value) arrayHeader() (count int, headerLen int, err error) {
	if v.schema.FixedSize != rosmsg.VariableSize {
		return v.schema.FixedSize, 0, nil
	}
	if len(v.data) < 4 {
		return 0, 0, ErrShortRead
	}
	return int(binary.LittleEndian.Uint32(v.data)), 4, nil
}

func (v *Value) arrayPrimitiveExtent() (int, error) {
	count, headerLen, err := v.arrayHeader()
	if err != nil {
		return 0, err
	}
	elemSize := v.schema.Elem.Primitive.Size()
	if elemSize != rosmsg.VariableSize {
		// Fixed-size primitive elements: a contiguous blob, no offset
		// table needed for zero-copy bulk access.
		total := headerLen + count*elemSize
		if len(v.data) < total {
			return 0, ErrShortRead
		}
		v.extent = total
		return v.extent, nil
	}
	// Variable-size elements (string arrays): each element must be
	// walked to find the next one's start.
	offsets := make([]int, count+1)
	pos := headerLen
	for i := 0; i < count; i++ {
		offsets[i] = pos
		child := newChild(v.schema.Elem, v.data[pos:])
		n, err := child.Extent()
		if err != nil {
			return 0, fmt.Errorf("element %d: %w", i, err)
		}
		pos += n
	}
	offsets[count] = pos
	v.offsets = offsets
	v.extent = pos
	return v.extent, nil
}

func (v *Value) arrayObjectExtent() (int, error) {
	count, headerLen, err := v.arrayHeader()
	if err != nil {
		return 0, err
	}
	offsets := make([]int, count+1)
	pos := headerLen
	for i := 0; i < count; i++ {
		offsets[i] = pos
		child := newChild(v.schema.Elem, v.data[pos:])
		n, err := child.Extent()
		if err != nil {
			return 0, fmt.Errorf("element %d: %w", i, err)
		}
		pos += n
	}
	offsets[count] = pos
	v.offsets = offsets
	v.extent = pos
	return v.extent, nil
}

// Get looks up a named field on an object value. The first call on a
// given Value builds the offset table (O(N) over the field count);
// subsequent calls reuse it (O(1)).
func (v *Value) Get(name string) (*Value, error) {
	if v.schema.Kind != rosmsg.KindObject {
		return nil, fmt.Errorf("%w: Get(%q) on a %s value", ErrTypeMismatch, name, v.schema.Kind)
	}
	if _, err := v.Extent(); err != nil {
		return nil, err
	}
	for i, f := range v.schema.Fields {
		if f.Name == name {
			start, end := v.offsets[i], v.offsets[i+1]
			child := newChild(f.Schema, v.data[start:end])
			child.extent = end - start
			return child, nil
		}
	}
	return nil, fmt.Errorf("%w: no field %q", ErrOutOfRange, name)
}

// FieldNames returns the object's field names in declaration order.
func (v *Value) FieldNames() ([]string, error) {
	if v.schema.Kind != rosmsg.KindObject {
		return nil, fmt.Errorf("%w: FieldNames on a %s value", ErrTypeMismatch, v.schema.Kind)
	}
	names := make([]string, len(v.schema.Fields))
	for i, f := range v.schema.Fields {
		names[i] = f.Name
	}
	return names, nil
}

// Len returns the element count of an array value.
func (v *Value) Len() (int, error) {
	if v.schema.Kind != rosmsg.KindArrayPrimitive && v.schema.Kind != rosmsg.KindArrayObject {
		return 0, fmt.Errorf("%w: Len on a %s value", ErrTypeMismatch, v.schema.Kind)
	}
	count, _, err := v.arrayHeader()
	return count, err
}

// Index returns the i'th element of an array value. Analogous to Get
// for objects: O(N) to build the offset table on first call, O(1)
// after.
func (v *Value) Index(i int) (*Value, error) {
	if v.schema.Kind != rosmsg.KindArrayPrimitive && v.schema.Kind != rosmsg.KindArrayObject {
		return nil, fmt.Errorf("%w: Index on a %s value", ErrTypeMismatch, v.schema.Kind)
	}
	if _, err := v.Extent(); err != nil {
		return nil, err
	}
	count, headerLen, err := v.arrayHeader()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= count {
		return nil, fmt.Errorf("%w: index %d (len %d)", ErrOutOfRange, i, count)
	}
	// Fixed-size primitive elements are a blob with no offset table:
	// compute the element's range directly.
	if v.schema.Kind == rosmsg.KindArrayPrimitive {
		if elemSize := v.schema.Elem.Primitive.Size(); elemSize != rosmsg.VariableSize {
			start := headerLen + i*elemSize
			child := newChild(v.schema.Elem, v.data[start:start+elemSize])
			child.extent = elemSize
			return child, nil
		}
	}
	start, end := v.offsets[i], v.offsets[i+1]
	child := newChild(v.schema.Elem, v.data[start:end])
	child.extent = end - start
	return child, nil
}

// Blob returns the element type and the contiguous byte range backing
// a fixed-size-primitive array, suitable for zero-copy bulk access
// (the buffer-protocol hook a host-language binding would export as
// (pointer, length, element_type, element_size)).
func (v *Value) Blob() (elemType rosmsg.Primitive, data []byte, err error) {
	if v.schema.Kind != rosmsg.KindArrayPrimitive {
		return "", nil, fmt.Errorf("%w: Blob on a %s value", ErrTypeMismatch, v.schema.Kind)
	}
	if v.schema.Elem.Primitive.Size() == rosmsg.VariableSize {
		return "", nil, fmt.Errorf("%w: Blob requires a fixed-size element type, got %s", ErrTypeMismatch, v.schema.Elem.Primitive)
	}
	n, err := v.Extent()
	if err != nil {
		return "", nil, err
	}
	_, headerLen, err := v.arrayHeader()
	if err != nil {
		return "", nil, err
	}
	return v.schema.Elem.Primitive, v.data[headerLen:n], nil
}
