package combinators

import (
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestOr(t *testing.T) {
	assert.Equal(t, StringOr("", "/bin/sh"), "/bin/sh")
	assert.Equal(t, StringOr("/bin/bash", "/bin/sh"), "/bin/bash")
	assert.Equal(t, Or(0, 4444), 4444)
	assert.Equal(t, Or(2333, 4444), 2333)
	assert.Equal(t, Or(time.Duration(0), time.Second), time.Second)
}
