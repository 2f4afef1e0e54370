package frame_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"i4.energy/across/atlink/frame"
)

func TestAppend(t *testing.T) {
	t.Run("Stores bytes in order", func(t *testing.T) {
		b := frame.New(16)
		res := b.Append([]byte("AT\r"))
		require.Equal(t, frame.AppendResult{Added: 3}, res)
		res = b.Append([]byte("\r\nOK"))
		require.Equal(t, 4, res.Added)
		require.False(t, res.Shifted())
		require.Equal(t, "AT\r\r\nOK", string(b.Bytes()))
		require.Equal(t, 7, b.Len())
		require.Equal(t, 16, b.Cap())
	})

	t.Run("Empty and all-NUL chunks are no-ops", func(t *testing.T) {
		b := frame.New(8)
		b.Append([]byte("OK"))

		res := b.Append(nil)
		require.False(t, res.Grew())
		res = b.Append([]byte{0, 0, 0})
		require.False(t, res.Grew())
		require.Equal(t, "OK", string(b.Bytes()))
	})

	t.Run("NUL bytes are filtered", func(t *testing.T) {
		b := frame.New(8)
		res := b.Append([]byte{0, 'O', 0, 0, 'K', 0})
		require.Equal(t, 2, res.Added)
		require.Equal(t, "OK", string(b.Bytes()))
	})

	t.Run("Evicts exactly the overflow from the front", func(t *testing.T) {
		b := frame.New(8)
		b.Append([]byte("abcdef"))
		res := b.Append([]byte("ghij"))
		require.Equal(t, frame.AppendResult{Added: 4, Evicted: 2}, res)
		require.True(t, res.Shifted())
		require.Equal(t, "cdefghij", string(b.Bytes()))
	})

	t.Run("Chunk larger than capacity keeps its tail", func(t *testing.T) {
		b := frame.New(4)
		b.Append([]byte("xy"))
		res := b.Append([]byte("0123456789"))
		require.Equal(t, 10, res.Added)
		require.Equal(t, "6789", string(b.Bytes()))
	})

	t.Run("NUL bytes do not count toward eviction", func(t *testing.T) {
		b := frame.New(4)
		b.Append([]byte("ab"))
		res := b.Append([]byte{'c', 0, 0, 0, 'd'})
		require.Equal(t, 0, res.Evicted)
		require.Equal(t, "abcd", string(b.Bytes()))
	})
}

func TestReset(t *testing.T) {
	b := frame.New(4)
	b.Append([]byte("abcd"))
	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Equal(t, 4, b.Cap())
	b.Append([]byte("ef"))
	require.Equal(t, "ef", string(b.Bytes()))
}

func TestSnapshotIsOwned(t *testing.T) {
	b := frame.New(4)
	b.Append([]byte("ab"))
	snap := b.Snapshot()
	b.Reset()
	b.Append([]byte("zz"))
	require.Equal(t, "ab", string(snap))
}

func TestNewDefaultsCapacity(t *testing.T) {
	require.Equal(t, frame.DefaultCapacity, frame.New(0).Cap())
}

// The buffer always equals the last Cap() valid bytes ever appended.
func TestSlidingWindowProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, capacity := range []int{1, 3, 16, 100} {
		b := frame.New(capacity)
		var valid []byte

		for i := 0; i < 500; i++ {
			chunk := make([]byte, rng.Intn(2*capacity+2))
			for j := range chunk {
				if rng.Intn(4) == 0 {
					chunk[j] = 0
				} else {
					chunk[j] = byte('A' + rng.Intn(26))
				}
			}
			b.Append(chunk)
			valid = append(valid, bytes.ReplaceAll(chunk, []byte{0}, nil)...)

			require.LessOrEqual(t, b.Len(), capacity)
			want := valid
			if len(want) > capacity {
				want = want[len(want)-capacity:]
			}
			require.Equal(t, string(want), string(b.Bytes()))
		}
	}
}
