package bag

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/embarktrucks/embag/rostime"
)

// Record opcodes, per the bag v2.0 framing table.
const (
	opMessageData byte = 0x02
	opBagHeader   byte = 0x03
	opIndexData   byte = 0x04
	opChunk       byte = 0x05
	opChunkInfo   byte = 0x06
	opConnection  byte = 0x07
)

// parseHeaderFields splits a record header block into its `name=value`
// fields. Each field is itself length-prefixed, independent of the
// record's own header_len.
func parseHeaderFields(buf []byte) (map[string][]byte, error) {
	fields := make(map[string][]byte)
	offset := 0
	for offset < len(buf) {
		if offset+4 > len(buf) {
			return nil, fmt.Errorf("%w: truncated header field length", ErrCorruptField)
		}
		flen := int(binary.LittleEndian.Uint32(buf[offset : offset+4]))
		offset += 4
		if flen < 0 || offset+flen > len(buf) {
			return nil, fmt.Errorf("%w: truncated header field", ErrCorruptField)
		}
		field := buf[offset : offset+flen]
		offset += flen
		idx := bytes.IndexByte(field, '=')
		if idx < 0 {
			return nil, fmt.Errorf("%w: header field missing '=': %q", ErrCorruptField, field)
		}
		fields[string(field[:idx])] = field[idx+1:]
	}
	return fields, nil
}

// readRecordHeaderAt reads a record's header_len/header/data_len at
// off without reading the data block itself, returning the opcode,
// parsed fields, the byte range of the (unread) data block, and the
// offset immediately following the record. This lets the reader learn
// a chunk's compression and size without paying to read or decompress
// its payload until a caller actually needs it.
func readRecordHeaderAt(src Source, off uint64) (op byte, fields map[string][]byte, dataOffset, dataLen, next uint64, err error) {
	if off >= src.Size() {
		return 0, nil, 0, 0, off, io.EOF
	}
	hlenBuf, err := src.Slice(off, 4)
	if err != nil {
		return 0, nil, 0, 0, off, fmt.Errorf("%w: record header length: %v", ErrShortRead, err)
	}
	hlen := uint64(binary.LittleEndian.Uint32(hlenBuf))
	off += 4

	header, err := src.Slice(off, hlen)
	if err != nil {
		return 0, nil, 0, 0, off, fmt.Errorf("%w: record header: %v", ErrShortRead, err)
	}
	off += hlen

	dlenBuf, err := src.Slice(off, 4)
	if err != nil {
		return 0, nil, 0, 0, off, fmt.Errorf("%w: record data length: %v", ErrShortRead, err)
	}
	dlen := uint64(binary.LittleEndian.Uint32(dlenBuf))
	off += 4

	dataOffset = off
	dataLen = dlen
	next = off + dlen
	if next > src.Size() {
		return 0, nil, 0, 0, off, fmt.Errorf("%w: record data", ErrShortRead)
	}

	fields, err = parseHeaderFields(header)
	if err != nil {
		return 0, nil, 0, 0, next, err
	}
	opField, ok := fields["op"]
	if !ok || len(opField) != 1 {
		return 0, nil, 0, 0, next, fmt.Errorf("%w: missing or malformed op field", ErrCorruptField)
	}
	return opField[0], fields, dataOffset, dataLen, next, nil
}

// readRecordAt is readRecordHeaderAt plus an eager read of the data
// block, for records small enough (connection, index-data, chunk-info)
// that there is no benefit to deferring the read.
func readRecordAt(src Source, off uint64) (op byte, fields map[string][]byte, data []byte, next uint64, err error) {
	op, fields, dataOffset, dataLen, next, err := readRecordHeaderAt(src, off)
	if err != nil {
		return 0, nil, nil, next, err
	}
	data, err = src.Slice(dataOffset, dataLen)
	if err != nil {
		return 0, nil, nil, next, fmt.Errorf("%w: record data: %v", ErrShortRead, err)
	}
	return op, fields, data, next, nil
}

func fieldUint32(fields map[string][]byte, name string) (uint32, error) {
	v, ok := fields[name]
	if !ok || len(v) != 4 {
		return 0, fmt.Errorf("%w: field %q", ErrCorruptField, name)
	}
	return binary.LittleEndian.Uint32(v), nil
}

func fieldUint64(fields map[string][]byte, name string) (uint64, error) {
	v, ok := fields[name]
	if !ok || len(v) != 8 {
		return 0, fmt.Errorf("%w: field %q", ErrCorruptField, name)
	}
	return binary.LittleEndian.Uint64(v), nil
}

func fieldString(fields map[string][]byte, name string) (string, bool) {
	v, ok := fields[name]
	if !ok {
		return "", false
	}
	return string(v), true
}

func fieldRequiredString(fields map[string][]byte, name string) (string, error) {
	v, ok := fieldString(fields, name)
	if !ok {
		return "", fmt.Errorf("%w: field %q", ErrCorruptField, name)
	}
	return v, nil
}

func fieldTime(fields map[string][]byte, name string) (rostime.Time, error) {
	v, ok := fields[name]
	if !ok || len(v) != 8 {
		return rostime.Time{}, fmt.Errorf("%w: field %q", ErrCorruptField, name)
	}
	return rostime.Time{
		Sec:  binary.LittleEndian.Uint32(v[:4]),
		Nsec: binary.LittleEndian.Uint32(v[4:8]),
	}, nil
}

func fieldBool(fields map[string][]byte, name string, def bool) (bool, error) {
	v, ok := fields[name]
	if !ok {
		return def, nil
	}
	if len(v) != 1 {
		return false, fmt.Errorf("%w: field %q", ErrCorruptField, name)
	}
	return v[0] != 0, nil
}
