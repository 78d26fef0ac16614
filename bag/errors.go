package bag

import "errors"

// Error kinds from spec §7. All are sentinels; CorruptField and
// UnknownOp carry no extra structured context beyond their wrapped
// message, following the teacher's mix of plain sentinels for the
// common cases (go/mcap/errors.go: ErrUnknownSchema, ErrBadOffset)
// reserving a struct type for errors that need positional detail
// (ErrTruncatedRecord there; not needed here since %w wrapping already
// carries offsets and field names in the message).
var (
	// ErrBadMagic indicates the file does not begin with the ROS bag
	// v2.0 magic line.
	ErrBadMagic = errors.New("bag: missing or invalid magic header")

	// ErrShortRead indicates the byte source had less data than a
	// length prefix promised.
	ErrShortRead = errors.New("bag: short read")

	// ErrReadPastEnd indicates a requested byte range lies beyond the
	// source's size.
	ErrReadPastEnd = errors.New("bag: read past end of source")

	// ErrUnknownOp indicates a record opcode other than connection or
	// chunk_info was encountered during index replay, where the format
	// requires knowing it. The top-level scans tolerate unknown
	// opcodes by skipping the record via its length prefix; index
	// replay does not.
	ErrUnknownOp = errors.New("bag: unknown record opcode")

	// ErrCorruptField indicates a required header field was missing
	// or had the wrong width for its declared type.
	ErrCorruptField = errors.New("bag: corrupt or missing header field")

	// ErrDecompress indicates chunk decompression failed outright.
	ErrDecompress = errors.New("bag: chunk decompression failed")

	// ErrSizeMismatch indicates a decompressed chunk did not match its
	// declared uncompressed size.
	ErrSizeMismatch = errors.New("bag: decompressed chunk size mismatch")

	// ErrUnknownCompression indicates a chunk's compression field was
	// not one of "none", "bz2", "lz4".
	ErrUnknownCompression = errors.New("bag: unknown compression scheme")
)
