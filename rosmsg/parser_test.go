package rosmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleFields(t *testing.T) {
	tree, err := Parse("pkg/Simple", "string foo\nint32 bar\n")
	require.NoError(t, err)
	require.Len(t, tree.Root.Fields, 2)
	assert.Equal(t, "foo", tree.Root.Fields[0].Name)
	assert.Equal(t, KindPrimitive, tree.Root.Fields[0].Schema.Kind)
	assert.Equal(t, String, tree.Root.Fields[0].Schema.Primitive)
	assert.Equal(t, "bar", tree.Root.Fields[1].Name)
	assert.Equal(t, Int32, tree.Root.Fields[1].Schema.Primitive)
}

func TestParseArrays(t *testing.T) {
	tree, err := Parse("pkg/Arr", "float64[] variable\nuint8[4] fixed\n")
	require.NoError(t, err)
	variable := tree.Root.Fields[0].Schema
	assert.Equal(t, KindArrayPrimitive, variable.Kind)
	assert.Equal(t, VariableSize, variable.FixedSize)
	assert.Equal(t, Float64, variable.Elem.Primitive)

	fixed := tree.Root.Fields[1].Schema
	assert.Equal(t, KindArrayPrimitive, fixed.Kind)
	assert.Equal(t, 4, fixed.FixedSize)
	assert.Equal(t, UInt8, fixed.Elem.Primitive)
}

func TestParseConstants(t *testing.T) {
	tree, err := Parse("pkg/Const", "uint8 FOO=1\nuint8 BAR = 2 # a comment\nuint8 real_field\n")
	require.NoError(t, err)
	require.Len(t, tree.Root.Constants, 2)
	assert.Equal(t, "FOO", tree.Root.Constants[0].Name)
	assert.Equal(t, "1", tree.Root.Constants[0].Value)
	assert.Equal(t, "BAR", tree.Root.Constants[1].Name)
	assert.Equal(t, "2", tree.Root.Constants[1].Value)
	require.Len(t, tree.Root.Fields, 1)
	assert.Equal(t, "real_field", tree.Root.Fields[0].Name)
}

func TestParseStringConstantKeepsHash(t *testing.T) {
	tree, err := Parse("pkg/Const", "string FOO=bar # not a comment\nuint8 real_field\n")
	require.NoError(t, err)
	require.Len(t, tree.Root.Constants, 1)
	assert.Equal(t, "FOO", tree.Root.Constants[0].Name)
	assert.Equal(t, String, tree.Root.Constants[0].Type)
	assert.Equal(t, "bar # not a comment", tree.Root.Constants[0].Value)
	require.Len(t, tree.Root.Fields, 1)
	assert.Equal(t, "real_field", tree.Root.Fields[0].Name)
}

func TestParseEmbeddedSubtype(t *testing.T) {
	def := `Header header
string name
================================================================================
MSG: std_msgs/Header
uint32 seq
time stamp
string frame_id
`
	tree, err := Parse("pkg/WithHeader", def)
	require.NoError(t, err)
	require.Len(t, tree.Root.Fields, 2)
	header := tree.Root.Fields[0].Schema
	require.Equal(t, KindObject, header.Kind)
	assert.Equal(t, "std_msgs/Header", header.TypeName)
	require.Len(t, header.Fields, 3)
	assert.Equal(t, "seq", header.Fields[0].Name)
	assert.Equal(t, UInt32, header.Fields[0].Schema.Primitive)
	assert.Equal(t, "stamp", header.Fields[1].Name)
	assert.Equal(t, RosTime, header.Fields[1].Schema.Primitive)
}

func TestParseArrayOfObjects(t *testing.T) {
	def := `Point[] points
================================================================================
MSG: pkg/Point
float64 x
float64 y
`
	tree, err := Parse("pkg/Poly", def)
	require.NoError(t, err)
	points := tree.Root.Fields[0].Schema
	require.Equal(t, KindArrayObject, points.Kind)
	assert.Equal(t, VariableSize, points.FixedSize)
	require.Len(t, points.Elem.Fields, 2)
}

func TestUnresolvedTypeFails(t *testing.T) {
	_, err := Parse("pkg/Bad", "geometry_msgs/Missing field\n")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestMalformedLineFails(t *testing.T) {
	_, err := Parse("pkg/Bad", "this is not valid\n")
	require.ErrorIs(t, err, ErrParse)
}

func TestQualifiedCrossPackageReference(t *testing.T) {
	def := `geometry_msgs/Point position
================================================================================
MSG: geometry_msgs/Point
float64 x
float64 y
float64 z
`
	tree, err := Parse("nav_msgs/Odometry", def)
	require.NoError(t, err)
	position := tree.Root.Fields[0].Schema
	require.Equal(t, KindObject, position.Kind)
	assert.Equal(t, "geometry_msgs/Point", position.TypeName)
	assert.Len(t, position.Fields, 3)
}
