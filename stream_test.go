package pystruct

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutWriteRead(t *testing.T) {
	l := MustCompile(">hB3s")
	var buf bytes.Buffer

	n, err := l.Write(&buf, -1, 2, "abc")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	n, err = l.Write(&buf, 3, 4, "de")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{255, 255, 2, 'a', 'b', 'c', 0, 3, 4, 'd', 'e', 0}, buf.Bytes())

	values, err := l.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []any{int16(-1), uint8(2), "abc"}, values)
	values, err = l.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []any{int16(3), uint8(4), "de"}, values)

	_, err = l.Read(&buf)
	assert.ErrorIs(t, err, io.EOF)

	_, err = l.Read(bytes.NewReader([]byte{1, 2}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestLayoutWriteError(t *testing.T) {
	var buf bytes.Buffer
	n, err := MustCompile("B").Write(&buf, 256)
	assert.True(t, errors.Is(err, ErrRange))
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())
}

func TestMarshalToUnmarshalFrom(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalTo(&buf, &testMarshalExample))
	require.NoError(t, MarshalTo(&buf, testMarshalExample))
	assert.Equal(t, 2*len(testMarshalExampleBytes()), buf.Len())

	for i := 0; i < 2; i++ {
		var out marshalExample
		require.NoError(t, UnmarshalFrom(&buf, &out))
		assert.Equal(t, testMarshalExample, out)
	}

	var out marshalExample
	assert.ErrorIs(t, UnmarshalFrom(&buf, &out), io.EOF)
	assert.Error(t, UnmarshalFrom(&buf, 7))
}
