package rosval

import "errors"

// ErrTypeMismatch is returned when a caller requests a primitive
// accessor (e.g. AsInt16) on a value whose schema kind disagrees.
var ErrTypeMismatch = errors.New("rosval: type mismatch")

// ErrOutOfRange is returned by indexed or named access to a field or
// array element that does not exist.
var ErrOutOfRange = errors.New("rosval: out of range")

// ErrShortRead is returned when a value's schema calls for more bytes
// than remain in its backing slice — a malformed or truncated message.
var ErrShortRead = errors.New("rosval: short read while walking message")
