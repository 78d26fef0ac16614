package bag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerMsgDef = "uint32 seq\ntime stamp\nstring frame_id\n"
const stringMsgDef = "string data\n"

// buildIndexedBag assembles a minimal but complete indexed bag with
// one chunk holding two connections: /chatter (std_msgs/String) with
// two messages, and /odom (a Header-shaped type) with one message.
// The index section mirrors the real v2.0 layout: index_data records
// follow each chunk in the records section, and the index section at
// EOF carries the authoritative connection and chunk_info records.
func buildIndexedBag(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(magic)

	chatterConn := connectionRecord(0, "/chatter", "std_msgs/String", "992ce8a1...", stringMsgDef, "/talker", false)
	odomConn := connectionRecord(1, "/odom", "nav_msgs/Header", "dummy", headerMsgDef, "/talker", false)

	msg0 := messageDataRecord(0, 100, 0, stringPayload("hello"))
	msg1 := messageDataRecord(1, 101, 0, headerPayload(1, 100, 0, "base_link"))
	msg2 := messageDataRecord(0, 102, 0, stringPayload("world"))

	var chunkPayload bytes.Buffer
	chunkPayload.Write(chatterConn)
	chunkPayload.Write(odomConn)
	chunkPayload.Write(msg0)
	chunkPayload.Write(msg1)
	chunkPayload.Write(msg2)

	chunkRec := chunkRecord("none", chunkPayload.Bytes())
	chunkPos := uint64(len(magic)) + uint64(len(bagHeaderPlaceholder()))

	connsLen := uint32(len(chatterConn) + len(odomConn))
	idxChatter := indexDataRecord(0, []uint32{100, 102}, []uint32{connsLen, connsLen + uint32(len(msg0)) + uint32(len(msg1))})
	idxOdom := indexDataRecord(1, []uint32{101}, []uint32{connsLen + uint32(len(msg0))})

	recordsSection := append(append(append([]byte{}, chunkRec...), idxChatter...), idxOdom...)

	indexPos := uint64(len(magic)) + uint64(len(bagHeaderPlaceholder())) + uint64(len(recordsSection))

	indexSection := append(append([]byte{}, chatterConn...), odomConn...)
	indexSection = append(indexSection, chunkInfoRecord(chunkPos, 100, 102, map[uint32]uint32{0: 2, 1: 1})...)

	buf.Write(bagHeaderRecord(indexPos, 2, 1))
	buf.Write(recordsSection)
	buf.Write(indexSection)
	return buf.Bytes()
}

// bagHeaderPlaceholder returns a zero-valued bag header record of the
// same length bagHeaderRecord produces, used only to compute byte
// offsets before the real header (whose index_pos depends on those
// same offsets) can be written.
func bagHeaderPlaceholder() []byte {
	return bagHeaderRecord(0, 0, 0)
}

func stringPayload(s string) []byte {
	return append(leUint32(uint32(len(s))), []byte(s)...)
}

func headerPayload(seq, sec, nsec uint32, frameID string) []byte {
	var buf bytes.Buffer
	buf.Write(leUint32(seq))
	buf.Write(leUint32(sec))
	buf.Write(leUint32(nsec))
	buf.Write(stringPayload(frameID))
	return buf.Bytes()
}

func TestOpenBytesIndexed(t *testing.T) {
	data := buildIndexedBag(t)
	b, err := OpenBytes(data)
	require.NoError(t, err)

	topics := b.Topics()
	assert.ElementsMatch(t, []string{"/chatter", "/odom"}, topics)

	conns := b.ConnectionsForTopic("/chatter")
	require.Len(t, conns, 1)
	assert.Equal(t, "std_msgs/String", conns[0].Type)
	assert.Equal(t, 2, conns[0].MessageCount)

	odomConns := b.ConnectionsForTopic("/odom")
	require.Len(t, odomConns, 1)
	assert.Equal(t, 1, odomConns[0].MessageCount)
}

func TestBagMissingMagicRejected(t *testing.T) {
	_, err := OpenBytes([]byte("not a bag file at all"))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestSchemaParsesLazilyAndCaches(t *testing.T) {
	data := buildIndexedBag(t)
	b, err := OpenBytes(data)
	require.NoError(t, err)

	tree, err := b.Schema("/chatter")
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.Len(t, tree.Root.Fields, 1)
	assert.Equal(t, "data", tree.Root.Fields[0].Name)

	tree2, err := b.Schema("/chatter")
	require.NoError(t, err)
	assert.Same(t, tree, tree2)
}

func TestMessagesOrderedByTimeAcrossConnections(t *testing.T) {
	data := buildIndexedBag(t)
	b, err := OpenBytes(data)
	require.NoError(t, err)

	msgs, err := b.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "/chatter", msgs[0].Connection.Topic)
	assert.Equal(t, "/odom", msgs[1].Connection.Topic)
	assert.Equal(t, "/chatter", msgs[2].Connection.Topic)
	assert.True(t, msgs[0].Time.Before(msgs[1].Time))
	assert.True(t, msgs[1].Time.Before(msgs[2].Time))

	val, err := msgs[0].Value()
	require.NoError(t, err)
	s, err := val.Get("data")
	require.NoError(t, err)
	str, err := s.AsString()
	require.NoError(t, err)
	assert.Equal(t, "hello", str)
}

func TestMessagesFilteredByTopic(t *testing.T) {
	data := buildIndexedBag(t)
	b, err := OpenBytes(data)
	require.NoError(t, err)

	msgs, err := b.Messages("/odom")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "/odom", msgs[0].Connection.Topic)
}

func TestChunkDecodedOnceAcrossMultipleMessages(t *testing.T) {
	data := buildIndexedBag(t)
	b, err := OpenBytes(data)
	require.NoError(t, err)

	msgs, err := b.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.EqualValues(t, 3, b.chunks[0].arena.Issued())
}

// TestForwardScanFallback builds an unindexed bag (index_pos == 0) and
// confirms the open-time forward scan recovers the same topics and
// message ordering as the indexed path.
func TestForwardScanFallback(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic)
	buf.Write(bagHeaderRecord(0, 1, 1))

	chatterConn := connectionRecord(0, "/chatter", "std_msgs/String", "992ce8a1...", stringMsgDef, "/talker", false)
	msg0 := messageDataRecord(0, 10, 0, stringPayload("a"))
	msg1 := messageDataRecord(0, 11, 0, stringPayload("b"))

	var chunkPayload bytes.Buffer
	chunkPayload.Write(chatterConn)
	chunkPayload.Write(msg0)
	chunkPayload.Write(msg1)
	buf.Write(chunkRecord("none", chunkPayload.Bytes()))

	b, err := OpenBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"/chatter"}, b.Topics())

	msgs, err := b.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	v0, err := msgs[0].Value()
	require.NoError(t, err)
	s0, err := v0.Get("data")
	require.NoError(t, err)
	str0, err := s0.AsString()
	require.NoError(t, err)
	assert.Equal(t, "a", str0)
}

func TestDuplicateConnectionIDRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic)
	buf.Write(bagHeaderRecord(0, 2, 0))
	buf.Write(connectionRecord(0, "/a", "std_msgs/String", "x", stringMsgDef, "/n", false))
	buf.Write(connectionRecord(0, "/b", "std_msgs/String", "x", stringMsgDef, "/n", false))

	_, err := OpenBytes(buf.Bytes())
	require.ErrorIs(t, err, ErrCorruptField)
}
