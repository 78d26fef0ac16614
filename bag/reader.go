package bag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/embarktrucks/embag/rosmsg"
	"github.com/embarktrucks/embag/rostime"
)

var magic = []byte("#ROSBAG V2.0\n")

// Bag is an opened ROS 1 bag file (format v2.0): an immutable index
// over the file's chunks, built once at Open time. A Bag is safe for
// concurrent use by multiple Views: its index never changes after Open
// returns, and the decoded chunks and parsed schemas it caches lazily
// are each filled at most once behind a sync.Once.
type Bag struct {
	src    Source
	closer io.Closer // non-nil for a file-backed Bag; nil for OpenBytes

	connections  map[int]*Connection
	connOrder    []int
	topicToConns map[string][]*Connection

	chunks           []*chunkInfo
	chunkPosToIndex  map[uint64]int
	indexByChunkConn map[chunkConnKey][]indexEntry
	connChunks       map[int][]int // connID -> chunk indexes that contain at least one of its messages
}

// Open opens a bag file from disk and builds its index. The
// underlying file is held open for the Bag's lifetime; call Close
// when done with it.
func Open(path string) (*Bag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := NewFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	b, err := openSource(src)
	if err != nil {
		f.Close()
		return nil, err
	}
	b.closer = f
	return b, nil
}

// OpenBytes opens a bag already resident in memory (e.g. fetched from
// object storage). No copy is made; the Bag borrows data for its
// lifetime. There is no file descriptor to release, so Close is a
// no-op for a Bag opened this way.
func OpenBytes(data []byte) (*Bag, error) {
	return openSource(NewByteSource(data))
}

// Close releases any resource the Bag holds open on its behalf — for
// a Bag opened with Open, the underlying file descriptor. It is safe
// to call on a Bag returned by OpenBytes, where it does nothing.
func (b *Bag) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func openSource(src Source) (*Bag, error) {
	magicBuf, err := src.Slice(0, uint64(len(magic)))
	if err != nil || !bytes.Equal(magicBuf, magic) {
		return nil, ErrBadMagic
	}

	b := &Bag{
		src:              src,
		connections:      map[int]*Connection{},
		topicToConns:     map[string][]*Connection{},
		chunkPosToIndex:  map[uint64]int{},
		indexByChunkConn: map[chunkConnKey][]indexEntry{},
		connChunks:       map[int][]int{},
	}

	op, fields, _, next, err := readRecordAt(src, uint64(len(magic)))
	if err != nil {
		return nil, fmt.Errorf("bag header record: %w", err)
	}
	if op != opBagHeader {
		return nil, fmt.Errorf("%w: expected bag header record (op 0x03), got 0x%02x", ErrCorruptField, op)
	}
	indexPos, err := fieldUint64(fields, "index_pos")
	if err != nil {
		return nil, fmt.Errorf("bag header: %w", err)
	}

	if indexPos == 0 {
		if err := b.forwardScan(next); err != nil {
			return nil, err
		}
	} else {
		if err := b.scanRecordsSection(next, indexPos); err != nil {
			return nil, err
		}
		if err := b.replayIndexSection(indexPos); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// scanRecordsSection walks the region between the bag header and
// index_pos, locating each chunk record (without decompressing it)
// and the index_data records the writer placed immediately after it.
// This is the pass that lets an indexed bag build its message index
// without ever inflating a chunk at open time.
func (b *Bag) scanRecordsSection(from, to uint64) error {
	off := from
	currentChunk := -1
	for off < to {
		recordStart := off
		op, fields, dataOffset, dataLen, next, err := readRecordHeaderAt(b.src, off)
		if err != nil {
			return err
		}
		off = next
		switch op {
		case opChunk:
			compression, err := fieldRequiredString(fields, "compression")
			if err != nil {
				return err
			}
			size, err := fieldUint32(fields, "size")
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
			}
			currentChunk = len(b.chunks)
			b.chunks = append(b.chunks, ci)
			b.chunkPosToIndex[ci.recordOffset] = currentChunk
		case opIndexData:
			if currentChunk < 0 {
				return fmt.Errorf("%w: index_data record with no preceding chunk", ErrCorruptField)
			}
			data, err := b.src.Slice(dataOffset, dataLen)
			if err != nil {
				return fmt.Errorf("%w: index_data: %v", ErrShortRead, err)
			}
			if err := b.registerIndexData(currentChunk, fields, data); err != nil {
				return err
			}
		case opConnection:
			data, err := b.src.Slice(dataOffset, dataLen)
			if err != nil {
				return fmt.Errorf("%w: connection: %v", ErrShortRead, err)
			}
			if err := b.registerConnection(fields, data); err != nil {
				return err
			}
		case opBagHeader, opMessageData, opChunkInfo:
			// recognized opcodes, merely unexpected at top level here;
			// tolerated rather than treated as corruption.
		default:
			// Unknown opcodes are skipped via the length prefix already
			// consumed above, as in the forward scan.
		}
	}
	return nil
}

// replayIndexSection walks the index section at the end of the file
// (from index_pos to EOF), which carries the authoritative connection
// records and one chunk_info summary per chunk. Any opcode other than
// connection and chunk_info is fatal here, unlike the tolerant
// top-level scans:
// the index section is the one place the format guarantees nothing
// but metadata, so an unrecognized opcode means either a newer bag
// format revision or real corruption, and guessing silently in either
// case would be worse than failing.
func (b *Bag) replayIndexSection(from uint64) error {
	off := from
	for {
		op, fields, data, next, err := readRecordAt(b.src, off)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		off = next
		switch op {
		case opConnection:
			if err := b.registerConnection(fields, data); err != nil {
				return err
			}
		case opChunkInfo:
			if err := b.registerChunkInfo(fields, data); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: opcode 0x%02x during index replay", ErrUnknownOp, op)
		}
	}
}

func (b *Bag) registerConnection(fields map[string][]byte, data []byte) error {
	id, err := fieldUint32(fields, "conn")
	if err != nil {
		return err
	}
	topic, err := fieldRequiredString(fields, "topic")
	if err != nil {
		return err
	}
	if _, exists := b.connections[int(id)]; exists {
		return fmt.Errorf("%w: duplicate connection id %d", ErrCorruptField, id)
	}

	connFields, err := parseHeaderFields(data)
	if err != nil {
		return fmt.Errorf("connection %d data: %w", id, err)
	}
	typeName, err := fieldRequiredString(connFields, "type")
	if err != nil {
		return fmt.Errorf("connection %d: %w", id, err)
	}
	md5sum, _ := fieldString(connFields, "md5sum")
	msgDef, _ := fieldString(connFields, "message_definition")
	callerID, _ := fieldString(connFields, "callerid")
	latching, err := fieldBool(connFields, "latching", false)
	if err != nil {
		return fmt.Errorf("connection %d: %w", id, err)
	}

	conn := &Connection{
		ID:                int(id),
		Topic:             topic,
		Type:              typeName,
		Scope:             rosmsg.Scope(typeName),
		MD5Sum:            md5sum,
		MessageDefinition: msgDef,
		CallerID:          callerID,
		Latching:          latching,
	}
	b.connections[conn.ID] = conn
	b.connOrder = append(b.connOrder, conn.ID)
	b.topicToConns[topic] = append(b.topicToConns[topic], conn)
	return nil
}

func (b *Bag) registerIndexData(chunkIdx int, fields map[string][]byte, data []byte) error {
	connID, err := fieldUint32(fields, "conn")
	if err != nil {
		return err
	}
	count, err := fieldUint32(fields, "count")
	if err != nil {
		return err
	}
	const entrySize = 12 // 8-byte time + 4-byte offset
	if uint64(len(data)) < uint64(count)*entrySize {
		return fmt.Errorf("%w: index_data shorter than declared count", ErrCorruptField)
	}
	ci := b.chunks[chunkIdx]
	key := chunkConnKey{chunk: chunkIdx, conn: int(connID)}
	entries := make([]indexEntry, count)
	for i := uint32(0); i < count; i++ {
		base := i * entrySize
		t := rostime.Time{
			Sec:  binary.LittleEndian.Uint32(data[base : base+4]),
			Nsec: binary.LittleEndian.Uint32(data[base+4 : base+8]),
		}
		offset := binary.LittleEndian.Uint32(data[base+8 : base+12])
		entries[i] = indexEntry{connID: int(connID), time: t, offsetInChunk: offset}
		if ci.connCounts == nil {
			ci.connCounts = map[int]int{}
		}
		ci.connCounts[int(connID)]++
		if ci.startTime == (rostime.Time{}) || t.Compare(ci.startTime) < 0 {
			ci.startTime = t
		}
		if t.Compare(ci.endTime) > 0 {
			ci.endTime = t
		}
	}
	if _, existed := b.indexByChunkConn[key]; !existed {
		b.connChunks[int(connID)] = append(b.connChunks[int(connID)], chunkIdx)
	}
	b.indexByChunkConn[key] = append(b.indexByChunkConn[key], entries...)
	return nil
}

func (b *Bag) registerChunkInfo(fields map[string][]byte, data []byte) error {
	chunkPos, err := fieldUint64(fields, "chunk_pos")
	if err != nil {
		return err
	}
	idx, ok := b.chunkPosToIndex[chunkPos]
	if !ok {
		return fmt.Errorf("%w: chunk_info refers to unknown chunk_pos %d", ErrCorruptField, chunkPos)
	}
	ci := b.chunks[idx]
	startTime, err := fieldTime(fields, "start_time")
	if err != nil {
		return err
	}
	endTime, err := fieldTime(fields, "end_time")
	if err != nil {
		return err
	}
	ci.startTime, ci.endTime = startTime, endTime

	const entrySize = 8 // 4-byte conn + 4-byte count
	if len(data)%entrySize != 0 {
		return fmt.Errorf("%w: chunk_info connection count table misaligned", ErrCorruptField)
	}
	for i := 0; i+entrySize <= len(data); i += entrySize {
		connID := binary.LittleEndian.Uint32(data[i : i+4])
		count := binary.LittleEndian.Uint32(data[i+4 : i+8])
		if conn, ok := b.connections[int(connID)]; ok {
			conn.MessageCount += int(count)
		}
	}
	return nil
}
