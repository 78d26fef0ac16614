package bag

import (
	"sync"

	"github.com/embarktrucks/embag/rosmsg"
	"github.com/embarktrucks/embag/rostime"
)

// Connection is one logical publisher binding: a topic, a message
// type, and the `.msg` text that defines that type's wire layout.
// Two connections may share a topic (different callerids or, in
// principle, different types publishing to the same name); each keeps
// its own schema and counters.
type Connection struct {
	ID                int
	Topic             string
	Type              string // e.g. "sensor_msgs/PointCloud2"
	Scope             string // Type's package prefix, e.g. "sensor_msgs"
	MD5Sum            string
	MessageDefinition string
	CallerID          string
	Latching          bool
	MessageCount      int

	schemaOnce sync.Once
	schema     *rosmsg.Tree
	schemaErr  error
}

// Schema lazily parses and caches the connection's message
// definition. The parse happens at most once per connection, even if
// multiple Views sharing this Bag request it concurrently; repeated
// calls return the same cached tree.
func (c *Connection) Schema() (*rosmsg.Tree, error) {
	c.schemaOnce.Do(func() {
		c.schema, c.schemaErr = rosmsg.Parse(c.Type, c.MessageDefinition)
	})
	return c.schema, c.schemaErr
}

// chunkInfo records one chunk's location within the source and its
// decoded index entries. For an indexed bag this is populated from a
// chunk_info/index_data pair without decompressing the chunk; for an
// unindexed bag it is populated by actually decoding the chunk during
// the open-time forward scan.
type chunkInfo struct {
	recordOffset     uint64 // file offset of the chunk record itself (the chunk_pos a chunk_info points at)
	compression      string
	uncompressedSize uint32
	payloadOffset    uint64
	payloadLength    uint64

	startTime  rostime.Time
	endTime    rostime.Time
	connCounts map[int]int

	decodeOnce sync.Once
	arena      *Arena // populated lazily by decodeChunk, retained for the Bag's lifetime once decoded
	decodeErr  error
}

// indexEntry is one (time, offset) pair from a connection's index
// within a chunk: connID's message in this chunk starts at
// offsetInChunk bytes into the chunk's decompressed payload.
type indexEntry struct {
	connID        int
	time          rostime.Time
	offsetInChunk uint32
}

type chunkConnKey struct {
	chunk int
	conn  int
}

// Statistics is a summary of a bag's contents, computed on each
// Bag.Statistics call from the state the open-time scan already
// gathered — no additional chunk decompression is needed to produce it.
type Statistics struct {
	MessageCount            int
	StartTime               rostime.Time
	EndTime                 rostime.Time
	MessageCountByConn      map[int]int
	ChunkCountByCompression map[string]int
}
