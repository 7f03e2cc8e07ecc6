package recordwire

import (
	"bytes"
	"encoding/binary"
)

// Frame layout.
const (
	// idSize is the width of the big-endian id field.
	idSize = 4
	// TextFieldSize is the fixed width of the text field on the wire.
	TextFieldSize = 100
	// MaxTextLen is the number of text bytes a sender writes; the last byte
	// of the field is always left as a terminator.
	MaxTextLen = TextFieldSize - 1
	// FrameSize is the total encoded size of one record.
	FrameSize = idSize + TextFieldSize
)

// Record is the single entity exchanged over a connection.
type Record struct {
	ID   int32
	Text string
}

// Encode returns the 104-byte frame for r. Text longer than MaxTextLen
// bytes is cut and truncated reports it.
func Encode(r Record) (frame []byte, truncated bool) {
	return AppendFrame(make([]byte, 0, FrameSize), r)
}

// AppendFrame appends the frame for r to dst.
func AppendFrame(dst []byte, r Record) ([]byte, bool) {
	dst = binary.BigEndian.AppendUint32(dst, uint32(r.ID))

	text := r.Text
	truncated := len(text) > MaxTextLen
	if truncated {
		text = text[:MaxTextLen]
	}

	start := len(dst)
	dst = append(dst, text...)
	for len(dst)-start < TextFieldSize {
		dst = append(dst, 0)
	}
	return dst, truncated
}

// Decode parses the first FrameSize bytes of b. The text ends at the first
// zero byte or at the field boundary, so unterminated fields are accepted.
func Decode(b []byte) (Record, error) {
	if len(b) < FrameSize {
		return Record{}, &FormatError{Len: len(b)}
	}

	field := b[idSize:FrameSize]
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}

	return Record{
		ID:   int32(binary.BigEndian.Uint32(b[:idSize])),
		Text: string(field),
	}, nil
}
