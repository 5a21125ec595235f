package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkReader_DeliversInOrder(t *testing.T) {
	r := NewChunkReader("ab", "cd")

	got, err := r.Read(10)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))

	got, err = r.Read(10)
	require.NoError(t, err)
	assert.Equal(t, "cd", string(got))

	got, err = r.Read(10)
	require.NoError(t, err)
	assert.Empty(t, got, "exhausted reader signals end of stream")
	assert.Equal(t, 3, r.Reads())
}

func TestChunkReader_SplitsAtMax(t *testing.T) {
	r := NewChunkReader("abcdef")

	first, _ := r.Read(4)
	second, _ := r.Read(4)

	assert.Equal(t, "abcd", string(first))
	assert.Equal(t, "ef", string(second))
}

func TestChunkReader_ErrAfterScript(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewChunkReader("x")
	r.Err = boom

	_, err := r.Read(10)
	require.NoError(t, err)

	_, err = r.Read(10)
	assert.ErrorIs(t, err, boom)
}

func TestByteAtATime(t *testing.T) {
	assert.Equal(t, []string{"a", "\r", "\n"}, ByteAtATime("a\r\n"))
	assert.Empty(t, ByteAtATime(""))
}
