package chunkid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContent_MatchesKnownDigest(t *testing.T) {
	// Given: the literal bytes "hello world"

	// When: deriving its chunk-id

	// Then: it matches the well-known sha256("hello world") digest
	id := FromContent([]byte("hello world"))
	assert.Equal(t, "chunk:sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", id)
}

func TestParse_RoundTripsFromContent(t *testing.T) {
	id := FromContent([]byte("package main"))
	hexPart, err := Parse(id)
	require.NoError(t, err)
	assert.Equal(t, Sha256Bytes([]byte("package main")), hexPart)
}

func TestParse_RejectsBadPrefix(t *testing.T) {
	_, err := Parse("sha256:deadbeef")
	require.Error(t, err)
	var invalid *ErrInvalid
	require.ErrorAs(t, err, &invalid)
}

func TestParse_RejectsWrongLength(t *testing.T) {
	_, err := Parse("chunk:sha256:deadbeef")
	require.Error(t, err)
}

func TestParse_RejectsUppercaseHex(t *testing.T) {
	id := FromContent([]byte("x"))
	upper := id[:len(id)-1] + "F"
	_, err := Parse(upper)
	require.Error(t, err)
}

func TestVerify_DetectsCorruption(t *testing.T) {
	blob := []byte("hello world")
	id := FromContent(blob)
	assert.True(t, Verify(id, blob))

	corrupt := append([]byte(nil), blob...)
	corrupt[0] ^= 0xFF
	assert.False(t, Verify(id, corrupt))
}

func TestShard_SplitsFirstTwoHexChars(t *testing.T) {
	id := FromContent([]byte("hello world"))
	prefix2, rest, err := Shard(id)
	require.NoError(t, err)
	assert.Equal(t, "b9", prefix2)
	assert.Equal(t, "4d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", rest)
}

func TestValid_RejectsEmptyString(t *testing.T) {
	assert.False(t, Valid(""))
}
