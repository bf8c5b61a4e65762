package bufferutil

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Deserializer reads back what a Serializer wrote. Every read fails with
// io.ErrUnexpectedEOF if the buffer holds fewer bytes than requested.
type Deserializer struct {
	buffer *bytes.Buffer
}

// NewDeserializer returns an instance of Deserializer.
func NewDeserializer(buffer *bytes.Buffer) *Deserializer {
	return &Deserializer{buffer}
}

// Len returns the number of unread bytes.
func (d *Deserializer) Len() int {
	return d.buffer.Len()
}

// ReadUint32 reads a uint32 value from reader's buffer.
func (d *Deserializer) ReadUint32() (uint32, error) {
	b, err := d.ReadSlice(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a uint64 value from reader's buffer.
func (d *Deserializer) ReadUint64() (uint64, error) {
	b, err := d.ReadSlice(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadSlice reads the next n bytes from the reader's buffer
func (d *Deserializer) ReadSlice(n uint) ([]byte, error) {
	if uint(d.buffer.Len()) < n {
		return nil, io.ErrUnexpectedEOF
	}
	decoded := make([]byte, n)
	if _, err := io.ReadFull(d.buffer, decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
