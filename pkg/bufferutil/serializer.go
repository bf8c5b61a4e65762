package bufferutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Serializer writes fixed-width little-endian values and byte slices to an
// underlying buffer.
type Serializer struct {
	buffer *bytes.Buffer
}

// NewSerializer returns an instance of Serializer.
func NewSerializer(buf *bytes.Buffer) *Serializer {
	if buf == nil {
		buf = bytes.NewBuffer([]byte{})
	}
	return &Serializer{buf}
}

// Bytes returns writer's buffer
func (s *Serializer) Bytes() []byte {
	return s.buffer.Bytes()
}

// WriteUint32 writes the given uint32 value to writer's buffer.
func (s *Serializer) WriteUint32(val uint32) error {
	return s.WriteSlice(binary.LittleEndian.AppendUint32(nil, val))
}

// WriteUint64 writes the given uint64 value to writer's buffer.
func (s *Serializer) WriteUint64(val uint64) error {
	return s.WriteSlice(binary.LittleEndian.AppendUint64(nil, val))
}

// WriteSlice appends the given byte array to the writer's buffer
func (s *Serializer) WriteSlice(val []byte) error {
	_, err := s.buffer.Write(val)
	return err
}

// WriteFixedSlice appends val to the buffer and fails if its length is not n.
func (s *Serializer) WriteFixedSlice(val []byte, n int) error {
	if len(val) != n {
		return fmt.Errorf("invalid slice length: got %d, expected %d", len(val), n)
	}
	return s.WriteSlice(val)
}
