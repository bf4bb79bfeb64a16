package must

import (
	"errors"
	"testing"

	"gotest.tools/assert"
)

func TestDo(t *testing.T) {
	assert.Equal(t, Do(7, nil), 7)

	defer func() {
		r := recover()
		assert.Assert(t, r != nil)
	}()
	Do(0, errors.New("boom"))
}

func TestReadRandom(t *testing.T) {
	var b [32]byte
	ReadRandom(b[:])
	assert.Assert(t, b != [32]byte{})
}
