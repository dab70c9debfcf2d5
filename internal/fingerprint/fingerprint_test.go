package fingerprint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	// Well-known SHA-256 vectors.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest([]byte{}))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest([]byte("abc")))

	assert.Len(t, Digest([]byte("A")), 64)
	assert.Equal(t, Digest([]byte("A")), Digest([]byte("A")))
	assert.NotEqual(t, Digest([]byte("A")), Digest([]byte("B")))
}

func TestDigest_LargeInput(t *testing.T) {
	data := bytes.Repeat([]byte("tick,"), 10000)
	assert.Equal(t, Digest(data), Digest(append([]byte(nil), data...)))
	assert.NotEqual(t, Digest(data), Digest(data[:len(data)-1]))
}
