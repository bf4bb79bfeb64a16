package keystream

import (
	"bytes"
	"crypto/rc4"
	"io"
	"testing"

	"gotest.tools/assert"

	"seijaku.dev/seijaku/pkg/readers"
)

func randomBytes(seed uint64, n int) []byte {
	b := make([]byte, n)
	_, _ = io.ReadFull(readers.DeterministicRandomReader(seed), b)
	return b
}

func TestEmptyKey(t *testing.T) {
	_, err := New(nil)
	assert.Equal(t, err, ErrEmptyKey)
}

func TestPermutationInvariant(t *testing.T) {
	st, err := New([]byte("CHANGE_ME"))
	assert.NilError(t, err)
	for round := 0; round < 4; round++ {
		var seen [256]bool
		table := st.Table()
		for _, v := range table {
			assert.Assert(t, !seen[v], "value %d appears twice", v)
			seen[v] = true
		}
		for k := 0; k < 1000; k++ {
			st.Next()
		}
	}
}

func TestMatchesStdlibRC4(t *testing.T) {
	for _, keyLen := range []int{1, 5, 16, 32, 255, 256} {
		key := randomBytes(uint64(keyLen), keyLen)
		plain := randomBytes(99, 4096)

		ours, err := New(key)
		assert.NilError(t, err)
		ref, err := rc4.NewCipher(key)
		assert.NilError(t, err)

		got := make([]byte, len(plain))
		want := make([]byte, len(plain))
		ours.XORKeyStream(got, plain)
		ref.XORKeyStream(want, plain)
		assert.Assert(t, bytes.Equal(got, want), "key length %d", keyLen)
	}
}

// Test vector from RFC 6229 (key 0x0102030405, offset 0).
func TestRFC6229(t *testing.T) {
	st, err := New([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	assert.NilError(t, err)
	expected := []byte{0xb2, 0x39, 0x63, 0x05, 0xf0, 0x3d, 0xc0, 0x27, 0xcc, 0xc3, 0x52, 0x4a, 0x0a, 0x11, 0x18, 0xa8}
	out := make([]byte, len(expected))
	for k := range out {
		out[k] = st.Next()
	}
	assert.DeepEqual(t, out, expected)
}

func TestSymmetry(t *testing.T) {
	key := []byte("V6h9A_wyEE6YLFiAtxY4W601RkBQIsLn")
	plain := randomBytes(7, 10000)

	enc, err := New(key)
	assert.NilError(t, err)
	dec, err := New(key)
	assert.NilError(t, err)

	// Encrypt in place using uneven chunk sizes so the state has to carry over
	// between calls.
	buf := append([]byte(nil), plain...)
	for off, chunk := 0, 1; off < len(buf); off, chunk = off+chunk, chunk*3%1021+1 {
		end := min(off+chunk, len(buf))
		enc.XORKeyStream(buf[off:end], buf[off:end])
	}
	assert.Assert(t, !bytes.Equal(buf, plain))

	dec.XORKeyStream(buf, buf)
	assert.Assert(t, bytes.Equal(buf, plain))
}

func TestIndependentStates(t *testing.T) {
	key := []byte("secret")
	a, _ := New(key)
	b, _ := New(key)
	assert.Equal(t, a.Table(), b.Table())

	a.Next()
	i, _ := a.Indices()
	assert.Equal(t, i, uint8(1))
	bi, bj := b.Indices()
	assert.Equal(t, bi, uint8(0))
	assert.Equal(t, bj, uint8(0))
}
