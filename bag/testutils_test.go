package bag

import (
	"bytes"
	"encoding/binary"
)

// The helpers in this file assemble synthetic bag byte streams field
// by field, mirroring the teacher's testutils.go approach to building
// MCAP fixtures by hand rather than shelling out to a recorder binary.

func leUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// field builds one length-prefixed "name=value" header field.
func field(name string, value []byte) []byte {
	body := append([]byte(name+"="), value...)
	return append(leUint32(uint32(len(body))), body...)
}

// fieldOrder is a list of (name, value) pairs, kept ordered since
// real headers have a stable field order even though the format
// doesn't require one.
type fieldOrder [][2]any

func header(fields fieldOrder) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		name := f[0].(string)
		value := f[1].([]byte)
		buf.Write(field(name, value))
	}
	return buf.Bytes()
}

// record assembles one complete framed record: header_len, header
// fields (always including op), data_len, and data.
func record(op byte, fields fieldOrder, data []byte) []byte {
	h := header(append(fieldOrder{{"op", []byte{op}}}, fields...))
	var buf bytes.Buffer
	buf.Write(leUint32(uint32(len(h))))
	buf.Write(h)
	buf.Write(leUint32(uint32(len(data))))
	buf.Write(data)
	return buf.Bytes()
}

func bagHeaderRecord(indexPos uint64, connCount, chunkCount uint32) []byte {
	return record(opBagHeader, fieldOrder{
		{"index_pos", leUint64(indexPos)},
		{"conn_count", leUint32(connCount)},
		{"chunk_count", leUint32(chunkCount)},
	}, bytes.Repeat([]byte{0}, 4096)) // bag header padding, as real recordings carry
}

func connectionRecord(id uint32, topic, msgType, md5sum, msgDef, callerID string, latching bool) []byte {
	latchByte := []byte{0}
	if latching {
		latchByte = []byte{1}
	}
	data := header(fieldOrder{
		{"topic", []byte(topic)},
		{"type", []byte(msgType)},
		{"md5sum", []byte(md5sum)},
		{"message_definition", []byte(msgDef)},
		{"callerid", []byte(callerID)},
		{"latching", latchByte},
	})
	return record(opConnection, fieldOrder{
		{"conn", leUint32(id)},
		{"topic", []byte(topic)},
	}, data)
}

func messageDataRecord(connID uint32, sec, nsec uint32, payload []byte) []byte {
	return record(opMessageData, fieldOrder{
		{"conn", leUint32(connID)},
		{"time", append(leUint32(sec), leUint32(nsec)...)},
	}, payload)
}

func chunkRecord(compression string, uncompressed []byte) []byte {
	return record(opChunk, fieldOrder{
		{"compression", []byte(compression)},
		{"size", leUint32(uint32(len(uncompressed)))},
	}, uncompressed)
}

func indexDataRecord(connID uint32, times []uint32, offsets []uint32) []byte {
	var data bytes.Buffer
	for i := range offsets {
		data.Write(leUint32(times[i]))
		data.Write(leUint32(0)) // nsec
		data.Write(leUint32(offsets[i]))
	}
	return record(opIndexData, fieldOrder{
		{"ver", leUint32(1)},
		{"conn", leUint32(connID)},
		{"count", leUint32(uint32(len(offsets)))},
	}, data.Bytes())
}

func chunkInfoRecord(chunkPos uint64, startSec, endSec uint32, connCounts map[uint32]uint32) []byte {
	var data bytes.Buffer
	for conn, count := range connCounts {
		data.Write(leUint32(conn))
		data.Write(leUint32(count))
	}
	return record(opChunkInfo, fieldOrder{
		{"ver", leUint32(1)},
		{"chunk_pos", leUint64(chunkPos)},
		{"start_time", append(leUint32(startSec), leUint32(0)...)},
		{"end_time", append(leUint32(endSec), leUint32(0)...)},
		{"count", leUint32(uint32(len(connCounts)))},
	}, data.Bytes())
}
