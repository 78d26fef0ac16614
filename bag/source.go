package bag

import (
	"fmt"
	"os"
)

// Source is the byte-range abstraction the reader builds on: a file on
// disk or an in-memory buffer present the same Slice interface, so the
// record scanner and chunk decoder never need to know which backs a
// given Bag. Mirrors how a host-language binding hands either a
// filesystem path or an already-downloaded byte buffer to the same
// reader.
type Source interface {
	// Size returns the total number of bytes in the source.
	Size() uint64
	// Slice returns the length bytes starting at offset. For a
	// memory-backed source this is a zero-copy subslice of the
	// original buffer; for a file-backed source it is a fresh read.
	Slice(offset, length uint64) ([]byte, error)
	// ReadAt returns a fresh copy of the length bytes starting at
	// offset, safe for the caller to retain or mutate independently of
	// the source — unlike Slice, it never aliases a memory-backed
	// source's own backing array.
	ReadAt(offset, length uint64) ([]byte, error)
}

// byteSource is a zero-copy Source over an in-memory buffer. It is
// also used internally to replay a chunk's decompressed payload
// through the same record-scanning code used for the top-level file.
type byteSource struct {
	data []byte
}

// NewByteSource wraps an already-resident byte slice as a Source. The
// Bag borrows data for its lifetime; the caller must not mutate it.
func NewByteSource(data []byte) Source {
	return &byteSource{data: data}
}

func (s *byteSource) Size() uint64 { return uint64(len(s.data)) }

func (s *byteSource) Slice(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end < offset || end > uint64(len(s.data)) {
		return nil, ErrReadPastEnd
	}
	return s.data[offset:end], nil
}

func (s *byteSource) ReadAt(offset, length uint64) ([]byte, error) {
	view, err := s.Slice(offset, length)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	copy(buf, view)
	return buf, nil
}

// fileSource is a Source over an *os.File, read via ReadAt so that
// many Views can iterate the same Bag concurrently without contending
// on a shared file cursor.
type fileSource struct {
	f    *os.File
	size uint64
}

// NewFileSource wraps an open file as a Source, sized via Stat.
func NewFileSource(f *os.File) (Source, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("bag: stat source file: %w", err)
	}
	return &fileSource{f: f, size: uint64(info.Size())}, nil
}

func (s *fileSource) Size() uint64 { return s.size }

func (s *fileSource) Slice(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end < offset || end > s.size {
		return nil, ErrReadPastEnd
	}
	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}
	if _, err := s.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return buf, nil
}

// ReadAt is identical to Slice for a file-backed source: every read
// already allocates a fresh buffer, so there is no zero-copy fast path
// to preserve.
func (s *fileSource) ReadAt(offset, length uint64) ([]byte, error) {
	return s.Slice(offset, length)
}
