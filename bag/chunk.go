package bag

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
)

// decompressChunk inflates a chunk's raw payload according to its
// declared compression scheme, validating the result against the
// uncompressedSize the writer recorded in the chunk's header fields.
// bz2 uses the standard library (the teacher repo itself reaches for
// compress/bzip2 rather than a third-party decoder — see DESIGN.md);
// lz4 uses the pierrec decoder, the same one the teacher's MCAP chunk
// reader uses for its own lz4-compressed chunks.
func decompressChunk(compression string, payload []byte, uncompressedSize uint32) ([]byte, error) {
	switch compression {
	case "none":
		if uint32(len(payload)) != uncompressedSize {
			return nil, fmt.Errorf("%w: declared %d bytes, payload is %d", ErrSizeMismatch, uncompressedSize, len(payload))
		}
		return payload, nil
	case "bz2":
		out, err := decodeExact(bzip2.NewReader(bytes.NewReader(payload)), uncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("bz2: %w", err)
		}
		return out, nil
	case "lz4":
		out, err := decodeExact(lz4.NewReader(bytes.NewReader(payload)), uncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, compression)
	}
}

// decodeExact reads exactly size bytes from r and then confirms the
// stream has nothing left, catching both sides of a size mismatch: a
// stream shorter than size fails inside io.ReadFull, and a stream
// longer than size — which io.ReadFull alone would silently accept,
// since it stops reading the moment size bytes are in hand — is
// caught by the trailing single-byte Read that must see io.EOF.
func decodeExact(r io.Reader, size uint32) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	var extra [1]byte
	if n, err := r.Read(extra[:]); n > 0 || (err != nil && err != io.EOF) {
		return nil, fmt.Errorf("%w: decoded stream longer than declared size %d", ErrSizeMismatch, size)
	}
	return out, nil
}

// Arena holds one chunk's decompressed bytes, shared by every Message
// decoded from it. Every Value produced against the arena's data
// borrows a subslice of Data rather than copying it; Go's garbage
// collector already keeps the backing array alive for as long as any
// such subslice is reachable, so Arena does not implement an explicit
// release — there is nothing for it to safely free early. issued is
// kept only as a diagnostic counter (surfaced by Issued, used in
// tests to confirm a chunk was decoded exactly once per read pass).
type Arena struct {
	Data   []byte
	issued int64
}

func newArena(data []byte) *Arena {
	return &Arena{Data: data}
}

func (a *Arena) retain() { atomic.AddInt64(&a.issued, 1) }

// Issued reports how many messages have been produced from this
// arena so far.
func (a *Arena) Issued() int64 { return atomic.LoadInt64(&a.issued) }
