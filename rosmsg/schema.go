// Package rosmsg parses ROS 1 `.msg` message-definition text — the
// small line-oriented language embedded in a bag connection's
// `message_definition` header field — into a schema tree that the
// rosval package walks against raw message bytes.
package rosmsg

// Kind discriminates the variants of a schema tree node, mirroring
// the tagged-union shape the spec calls for rather than a class
// hierarchy: primitive, object, array-of-primitive, array-of-object.
type Kind int

const (
	KindPrimitive Kind = iota
	KindObject
	KindArrayPrimitive
	KindArrayObject
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindObject:
		return "object"
	case KindArrayPrimitive:
		return "array"
	case KindArrayObject:
		return "array"
	default:
		return "unknown"
	}
}

// VariableSize marks an array whose element count is length-prefixed
// on the wire rather than fixed by the schema.
const VariableSize = -1

// Primitive is one of the fourteen ROS 1 primitive wire types.
type Primitive string

const (
	Bool     Primitive = "bool"
	Int8     Primitive = "int8"
	UInt8    Primitive = "uint8"
	Int16    Primitive = "int16"
	UInt16   Primitive = "uint16"
	Int32    Primitive = "int32"
	UInt32   Primitive = "uint32"
	Int64    Primitive = "int64"
	UInt64   Primitive = "uint64"
	Float32  Primitive = "float32"
	Float64  Primitive = "float64"
	String   Primitive = "string"
	RosTime  Primitive = "time"
	RosDur   Primitive = "duration"
)

// primitiveSizes gives the fixed wire size of each primitive, or
// VariableSize for length-prefixed types (string). `byte` and `char`
// are ROS's deprecated aliases for int8/uint8 and are normalized to
// those on parse (see normalizePrimitive).
var primitiveSizes = map[Primitive]int{
	Bool:    1,
	Int8:    1,
	UInt8:   1,
	Int16:   2,
	UInt16:  2,
	Int32:   4,
	UInt32:  4,
	Int64:   8,
	UInt64:  8,
	Float32: 4,
	Float64: 8,
	String:  VariableSize,
	RosTime: 8,
	RosDur:  8,
}

// Size returns the primitive's fixed wire size, or VariableSize.
func (p Primitive) Size() int {
	return primitiveSizes[p]
}

// IsPrimitive reports whether name names a known ROS 1 primitive,
// after normalizing the byte/char aliases.
func IsPrimitive(name string) bool {
	_, ok := primitiveSizes[normalizePrimitive(Primitive(name))]
	return ok
}

func normalizePrimitive(p Primitive) Primitive {
	switch p {
	case "byte":
		return Int8
	case "char":
		return UInt8
	default:
		return p
	}
}

// Field is a named, value-carrying member of an object schema node.
type Field struct {
	Name   string
	Schema *Node
}

// Constant is a declared-but-not-serialized `TYPE NAME = VALUE` line.
// Constants never consume bytes during deserialization.
type Constant struct {
	Name  string
	Type  Primitive
	Value string
}

// Node is one node of a schema tree. Exactly one of the Kind-tagged
// groups of fields below is meaningful for a given node.
type Node struct {
	Kind Kind

	// KindPrimitive
	Primitive Primitive

	// KindObject
	TypeName  string // e.g. "sensor_msgs/PointCloud2"
	Fields    []Field
	Constants []Constant

	// KindArrayPrimitive / KindArrayObject
	FixedSize int // element count, or VariableSize if length-prefixed
	Elem      *Node
}

// Tree is the parsed schema for one connection's message type.
type Tree struct {
	Root *Node
}

// Child looks up a named field on an object node. Linear scan over
// Node.Fields: message definitions have few enough fields that this
// is the simplest correct implementation; callers that need repeated
// lookups on the same node are expected to cache the Field index, not
// this method.
func (n *Node) Child(name string) (*Node, bool) {
	if n.Kind != KindObject {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Schema, true
		}
	}
	return nil, false
}
