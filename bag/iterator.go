package bag

import (
	"fmt"
	"io"
	"sort"
)

// locatedEntry is one message's position within the bag: which
// connection it belongs to, which chunk holds it, and its byte offset
// within that chunk's decompressed payload.
type locatedEntry struct {
	entry indexEntry
	chunk int
	conn  *Connection
}

// Iterator pulls messages from a single Bag in ascending timestamp
// order, deferring chunk decompression until the cursor actually
// reaches a message inside that chunk. At most one chunk is held
// decoded for the iterator's own use at a time — consecutive messages
// from the same chunk reuse it, and advancing past a chunk drops the
// iterator's reference to it. Locating messages (sorting by time) is
// metadata-only and costs no chunk decode, since chunk_info/index_data
// already record every message's timestamp and offset at open time.
type Iterator struct {
	bag     *Bag
	located []locatedEntry
	pos     int

	lastChunk int
	lastArena *Arena
}

// ReadMessages returns a pull-based iterator over every message on the
// given topics (every topic in the bag, if none given), in ascending
// timestamp order with (chunk position, record position) as the
// deterministic tie-break for equal timestamps. No chunk is
// decompressed until the caller actually asks for a message from it,
// and a caller that stops early (or calls Close) never pays for the
// chunks it didn't reach.
func (b *Bag) ReadMessages(topics ...string) (*Iterator, error) {
	var conns []*Connection
	if len(topics) == 0 {
		conns = b.Connections()
	} else {
		for _, t := range topics {
			conns = append(conns, b.topicToConns[t]...)
		}
	}

	var located []locatedEntry
	for _, conn := range conns {
		for _, chunkIdx := range b.connChunks[conn.ID] {
			key := chunkConnKey{chunk: chunkIdx, conn: conn.ID}
			for _, e := range b.indexByChunkConn[key] {
				located = append(located, locatedEntry{entry: e, chunk: chunkIdx, conn: conn})
			}
		}
	}
	sort.Slice(located, func(i, j int) bool {
		li, lj := located[i], located[j]
		if c := li.entry.time.Compare(lj.entry.time); c != 0 {
			return c < 0
		}
		if li.chunk != lj.chunk {
			return li.chunk < lj.chunk
		}
		return li.entry.offsetInChunk < lj.entry.offsetInChunk
	})

	return &Iterator{bag: b, located: located, lastChunk: -1}, nil
}

// Next returns the next message in timestamp order, or io.EOF once
// every located message has been yielded. A decode failure on the
// chunk backing the next message terminates the iterator with that
// error (later calls return io.EOF); messages already returned by
// earlier Next calls remain valid and are not retroactively
// invalidated by a later failure.
func (it *Iterator) Next() (*Message, error) {
	if it.pos >= len(it.located) {
		return nil, io.EOF
	}
	l := it.located[it.pos]
	it.pos++

	arena := it.lastArena
	if l.chunk != it.lastChunk {
		a, err := it.bag.decodeChunk(it.bag.chunks[l.chunk])
		if err != nil {
			it.pos = len(it.located)
			return nil, err
		}
		arena = a
		it.lastChunk = l.chunk
		it.lastArena = a
	}

	chunkSrc := NewByteSource(arena.Data)
	op, _, data, _, err := readRecordAt(chunkSrc, uint64(l.entry.offsetInChunk))
	if err != nil {
		it.pos = len(it.located)
		return nil, fmt.Errorf("message at chunk %d offset %d: %w", l.chunk, l.entry.offsetInChunk, err)
	}
	if op != opMessageData {
		it.pos = len(it.located)
		return nil, fmt.Errorf("%w: index points at opcode 0x%02x, not message data", ErrCorruptField, op)
	}
	arena.retain()
	return &Message{Connection: l.conn, Time: l.entry.time, raw: data}, nil
}

// Close drops the iterator's own reference to whatever chunk it last
// decoded and to its remaining located entries. It does not free any
// chunk memory: every decoded chunk stays cached on its Bag (shared by
// all iterators over that Bag) for as long as the Bag is reachable, so
// Close only releases what this iterator itself was holding.
func (it *Iterator) Close() error {
	it.lastArena = nil
	it.located = nil
	it.pos = 0
	return nil
}
