package bufferutil

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializerAndDeserializer(t *testing.T) {
	t.Run("WriteReadUint32", testWriteReadUint32)
	t.Run("WriteReadUint64", testWriteReadUint64)
	t.Run("WriteReadSlice", testWriteReadSlice)
	t.Run("ShortBuffer", testShortBuffer)
	t.Run("FixedSlice", testFixedSlice)
}

func testWriteReadUint32(t *testing.T) {
	bw := NewSerializer(nil)

	in := []uint32{0, 1, 1 << 16, math.MaxUint32}
	expected := [][]byte{
		{0x00, 0x00, 0x00, 0x00},
		{0x01, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x01, 0x00},
		{0xff, 0xff, 0xff, 0xff},
	}

	for _, v := range in {
		require.NoError(t, bw.WriteUint32(v))
	}
	require.Equal(t, bytes.Join(expected, nil), bw.Bytes())

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, v := range in {
		res, err := br.ReadUint32()
		require.NoError(t, err)
		require.Equal(t, v, res)
	}
	require.Zero(t, br.Len())
}

func testWriteReadUint64(t *testing.T) {
	bw := NewSerializer(nil)

	in := []uint64{0, 1, 1 << 32, math.MaxUint64}
	for _, v := range in {
		require.NoError(t, bw.WriteUint64(v))
	}
	require.Len(t, bw.Bytes(), 8*len(in))

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	for _, v := range in {
		res, err := br.ReadUint64()
		require.NoError(t, err)
		require.Equal(t, v, res)
	}
}

func testWriteReadSlice(t *testing.T) {
	bw := NewSerializer(nil)
	require.NoError(t, bw.WriteSlice([]byte{0x01, 0x02}))
	require.NoError(t, bw.WriteUint32(7))

	br := NewDeserializer(bytes.NewBuffer(bw.Bytes()))
	res, err := br.ReadSlice(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, res)
	require.Equal(t, 4, br.Len())

	empty, err := br.ReadSlice(0)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func testShortBuffer(t *testing.T) {
	br := NewDeserializer(bytes.NewBuffer([]byte{0x01, 0x02}))
	_, err := br.ReadUint32()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	br = NewDeserializer(bytes.NewBuffer([]byte{0x05, 0x01}))
	_, err = br.ReadSlice(3)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, 2, br.Len())
}

func testFixedSlice(t *testing.T) {
	bw := NewSerializer(nil)
	require.NoError(t, bw.WriteFixedSlice(make([]byte, 32), 32))
	require.Error(t, bw.WriteFixedSlice(make([]byte, 31), 32))
	require.Len(t, bw.Bytes(), 32)
}
