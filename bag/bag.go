package bag

import (
	"errors"
	"fmt"
	"io"

	"github.com/embarktrucks/embag/rosmsg"
	"github.com/embarktrucks/embag/rostime"
	"github.com/embarktrucks/embag/rosval"
)

// forwardScan builds the index for a bag whose header declares
// index_pos == 0 — recorded but never properly closed, so no index
// section was ever written. Every chunk must be decompressed once, up
// front, to discover its connections and message offsets; there is no
// way around paying that cost for an unindexed bag.
func (b *Bag) forwardScan(from uint64) error {
	off := from
	for {
		recordStart := off
		op, fields, dataOffset, dataLen, next, err := readRecordHeaderAt(b.src, off)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		off = next
		switch op {
		case opConnection:
			data, err := b.src.Slice(dataOffset, dataLen)
			if err != nil {
				return fmt.Errorf("%w: connection: %v", ErrShortRead, err)
			}
			if err := b.registerConnection(fields, data); err != nil {
				return err
			}
		case opChunk:
			if err := b.scanChunkForward(fields, dataOffset, dataLen, recordStart); err != nil {
				return err
			}
		default:
			// Forward scanning tolerates every other opcode, known or
			// not, by skipping it via the length prefix already
			// consumed above: an unindexed bag carries no format
			// guarantee about what else might live at the top level.
		}
	}
}

func (b *Bag) scanChunkForward(fields map[string][]byte, dataOffset, dataLen, recordStart uint64) error {
	compression, err := fieldRequiredString(fields, "compression")
	if err != nil {
		return err
	}
	size, err := fieldUint32(fields, "size")
	if err != nil {
		return err
	}
	payload, err := b.src.Slice(dataOffset, dataLen)
	if err != nil {
		return fmt.Errorf("%w: chunk payload: %v", ErrShortRead, err)
	}
	data, err := decompressChunk(compression, payload, size)
	if err != nil {
		return err
	}

	ci := &chunkInfo{
		recordOffset:     recordStart,
		compression:      compression,
		uncompressedSize: size,
		payloadOffset:    dataOffset,
		payloadLength:    dataLen,
		connCounts:       map[int]int{},
		arena:            newArena(data),
	}
	chunkIdx := len(b.chunks)
	b.chunks = append(b.chunks, ci)
	b.chunkPosToIndex[recordStart] = chunkIdx

	chunkSrc := NewByteSource(data)
	var inner uint64
	for {
		innerStart := inner
		op, innerFields, innerData, next, err := readRecordAt(chunkSrc, inner)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		inner = next
		switch op {
		case opConnection:
			if err := b.registerConnection(innerFields, innerData); err != nil {
				return err
			}
		case opMessageData:
			connID, err := fieldUint32(innerFields, "conn")
			if err != nil {
				return err
			}
			t, err := fieldTime(innerFields, "time")
			if err != nil {
				return err
			}
			key := chunkConnKey{chunk: chunkIdx, conn: int(connID)}
			if _, existed := b.indexByChunkConn[key]; !existed {
				b.connChunks[int(connID)] = append(b.connChunks[int(connID)], chunkIdx)
			}
			b.indexByChunkConn[key] = append(b.indexByChunkConn[key], indexEntry{
				connID: int(connID), time: t, offsetInChunk: uint32(innerStart),
			})
			ci.connCounts[int(connID)]++
			if conn, ok := b.connections[int(connID)]; ok {
				conn.MessageCount++
			}
			if (ci.startTime == rostime.Time{}) || t.Compare(ci.startTime) < 0 {
				ci.startTime = t
			}
			if t.Compare(ci.endTime) > 0 {
				ci.endTime = t
			}
		default:
			// tolerated inside a forward-scanned chunk payload too
		}
	}
	return nil
}

// decodeChunk inflates ci's payload, memoizing the result so the
// chunk is decompressed at most once regardless of how many messages
// or concurrent Views end up reading from it. For an unindexed bag
// the arena is already populated by forwardScan at Open time.
func (b *Bag) decodeChunk(ci *chunkInfo) (*Arena, error) {
	ci.decodeOnce.Do(func() {
		if ci.arena != nil {
			return
		}
		payload, err := b.src.Slice(ci.payloadOffset, ci.payloadLength)
		if err != nil {
			ci.decodeErr = fmt.Errorf("%w: chunk payload: %v", ErrShortRead, err)
			return
		}
		data, err := decompressChunk(ci.compression, payload, ci.uncompressedSize)
		if err != nil {
			ci.decodeErr = err
			return
		}
		ci.arena = newArena(data)
	})
	return ci.arena, ci.decodeErr
}

// Message is one decoded message: the connection it arrived on, its
// recorded timestamp, and the raw bytes of its serialized value. The
// bytes are a subslice of the chunk's decompressed arena — Value
// lazily walks them against the connection's schema on demand.
type Message struct {
	Connection *Connection
	Time       rostime.Time
	raw        []byte
}

// RawBytes returns the message's serialized value bytes, undecoded.
func (m *Message) RawBytes() []byte { return m.raw }

// Value walks the message's bytes against its connection's schema,
// returning a lazy value tree. Nothing is decoded beyond what the
// caller subsequently asks for.
func (m *Message) Value() (*rosval.Value, error) {
	schema, err := m.Connection.Schema()
	if err != nil {
		return nil, err
	}
	return rosval.Walk(schema.Root, m.raw)
}

// Topics returns every distinct topic name the bag has at least one
// connection for, in first-seen order.
func (b *Bag) Topics() []string {
	seen := make(map[string]bool, len(b.connOrder))
	var topics []string
	for _, id := range b.connOrder {
		topic := b.connections[id].Topic
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}

// Connections returns every connection in the bag, in declaration
// order.
func (b *Bag) Connections() []*Connection {
	conns := make([]*Connection, len(b.connOrder))
	for i, id := range b.connOrder {
		conns[i] = b.connections[id]
	}
	return conns
}

// ConnectionsForTopic returns every connection publishing to topic.
func (b *Bag) ConnectionsForTopic(topic string) []*Connection {
	return append([]*Connection(nil), b.topicToConns[topic]...)
}

// ConnectionsByTopic returns every topic's connections in one map, in
// first-seen topic order is not preserved (map iteration order is
// unspecified) — callers that need topic order should range over
// Topics() and call ConnectionsForTopic per topic instead.
func (b *Bag) ConnectionsByTopic() map[string][]*Connection {
	out := make(map[string][]*Connection, len(b.topicToConns))
	for topic, conns := range b.topicToConns {
		out[topic] = append([]*Connection(nil), conns...)
	}
	return out
}

// Schema returns the message-definition schema for topic, parsed from
// its first connection. Non-goal: bags with multiple message types on
// one topic do not get per-connection schema resolution here — a
// caller that needs that should walk ConnectionsByTopic and call
// Connection.Schema individually.
func (b *Bag) Schema(topic string) (*rosmsg.Tree, error) {
	conns := b.topicToConns[topic]
	if len(conns) == 0 {
		return nil, fmt.Errorf("bag: unknown topic %q", topic)
	}
	return conns[0].Schema()
}

// Statistics summarizes the bag's contents: total and per-connection
// message counts, the overall recorded time range, and how many
// chunks used each compression scheme. It is derived entirely from
// the chunk_info records gathered at open time, so computing it never
// decompresses a chunk.
func (b *Bag) Statistics() Statistics {
	stats := Statistics{
		MessageCountByConn:      make(map[int]int, len(b.connections)),
		ChunkCountByCompression: make(map[string]int),
	}
	for id, conn := range b.connections {
		stats.MessageCountByConn[id] = conn.MessageCount
		stats.MessageCount += conn.MessageCount
	}
	for _, ci := range b.chunks {
		stats.ChunkCountByCompression[ci.compression]++
		if (stats.StartTime == rostime.Time{}) || ci.startTime.Compare(stats.StartTime) < 0 {
			stats.StartTime = ci.startTime
		}
		if ci.endTime.Compare(stats.EndTime) > 0 {
			stats.EndTime = ci.endTime
		}
	}
	return stats
}

// Messages returns every message on the given topics (every topic in
// the bag, if none are given), in ascending timestamp order, with
// (chunk position, record position) as the deterministic tie-break
// for equal timestamps. Each chunk touched is
// decompressed at most once. This is a convenience wrapper around
// ReadMessages for callers that want the whole result at once; it
// offers no early-exit or bounded-memory benefit over draining the
// iterator by hand.
func (b *Bag) Messages(topics ...string) ([]*Message, error) {
	it, err := b.ReadMessages(topics...)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var messages []*Message
	for {
		m, err := it.Next()
		if errors.Is(err, io.EOF) {
			return messages, nil
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
}
