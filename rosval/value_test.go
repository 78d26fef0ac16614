package rosval

import (
	"encoding/binary"
	"testing"

	"github.com/embarktrucks/embag/rosmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func primitiveNode(p rosmsg.Primitive) *rosmsg.Node {
	return &rosmsg.Node{Kind: rosmsg.KindPrimitive, Primitive: p}
}

func putUint32(b []byte, v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return append(b, buf...)
}

func putString(b []byte, s string) []byte {
	b = putUint32(b, uint32(len(s)))
	return append(b, s...)
}

func TestPrimitiveRoundTrip(t *testing.T) {
	schema, err := rosmsg.Parse("pkg/P", "int16 x\n")
	require.NoError(t, err)
	data := []byte{0x34, 0x12} // little-endian 0x1234
	val, err := Walk(schema.Root.Fields[0].Schema, data)
	require.NoError(t, err)
	x, err := val.AsInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(0x1234), x)

	_, err = val.AsInt32()
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestObjectFieldAccess(t *testing.T) {
	def := `uint32 seq
time stamp
string frame_id
`
	tree, err := rosmsg.Parse("std_msgs/Header", def)
	require.NoError(t, err)

	var data []byte
	data = putUint32(data, 601)
	data = putUint32(data, 100) // stamp.sec
	data = putUint32(data, 200) // stamp.nsec
	data = putString(data, "base_laser_link")

	val, err := Walk(tree.Root, data)
	require.NoError(t, err)

	seq, err := mustGet(t, val, "seq").AsUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(601), seq)

	stamp, err := mustGet(t, val, "stamp").AsTime()
	require.NoError(t, err)
	assert.Equal(t, uint32(100), stamp.Sec)
	assert.Equal(t, uint32(200), stamp.Nsec)

	frameID, err := mustGet(t, val, "frame_id").AsString()
	require.NoError(t, err)
	assert.Equal(t, "base_laser_link", frameID)

	_, err = val.Get("nonexistent")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestVariableLengthArrayOfObjects(t *testing.T) {
	def := `Field[] fields
================================================================================
MSG: pkg/Field
string name
uint32 offset
`
	tree, err := rosmsg.Parse("pkg/Cloud", def)
	require.NoError(t, err)

	var data []byte
	data = putUint32(data, 2) // array count
	data = putString(data, "x")
	data = putUint32(data, 0)
	data = putString(data, "y")
	data = putUint32(data, 4)

	val, err := Walk(tree.Root, data)
	require.NoError(t, err)
	fields := mustGet(t, val, "fields")
	n, err := fields.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e0, err := fields.Index(0)
	require.NoError(t, err)
	name, err := mustGet(t, e0, "name").AsString()
	require.NoError(t, err)
	assert.Equal(t, "x", name)

	e1, err := fields.Index(1)
	require.NoError(t, err)
	offset, err := mustGet(t, e1, "offset").AsUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), offset)

	_, err = fields.Index(2)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestFixedSizePrimitiveBlob(t *testing.T) {
	tree, err := rosmsg.Parse("pkg/Cov", "float64[36] covariance\n")
	require.NoError(t, err)
	data := make([]byte, 36*8) // all zeros

	val, err := Walk(tree.Root, data)
	require.NoError(t, err)
	cov := mustGet(t, val, "covariance")
	elemType, blob, err := cov.Blob()
	require.NoError(t, err)
	assert.Equal(t, rosmsg.Float64, elemType)
	assert.Len(t, blob, 36*8)

	n, err := cov.Len()
	require.NoError(t, err)
	assert.Equal(t, 36, n)
	for i := 0; i < n; i++ {
		elem, err := cov.Index(i)
		require.NoError(t, err)
		f, err := elem.AsFloat64()
		require.NoError(t, err)
		assert.Equal(t, 0.0, f)
	}
}

func TestDictMaterialization(t *testing.T) {
	tree, err := rosmsg.Parse("pkg/Simple", "uint8 a\nstring b\n")
	require.NoError(t, err)
	data := append([]byte{7}, putString(nil, "hi")...)
	val, err := Walk(tree.Root, data)
	require.NoError(t, err)
	d, err := val.Dict()
	require.NoError(t, err)
	m, ok := d.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint8(7), m["a"])
	assert.Equal(t, "hi", m["b"])
}

func mustGet(t *testing.T, v *Value, name string) *Value {
	t.Helper()
	child, err := v.Get(name)
	require.NoError(t, err)
	return child
}
