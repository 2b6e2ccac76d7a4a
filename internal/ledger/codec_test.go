package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	enc := NewEncoder("Sample", 64)
	enc.PutUint64(42)
	enc.PutInt64(-7)
	enc.PutBoundedString("hello", 16)
	enc.PutUint8(201)

	dec, err := NewDecoder("Sample", enc.Bytes())
	require.NoError(t, err)

	assert.Equal(t, uint64(42), dec.Uint64())
	assert.Equal(t, int64(-7), dec.Int64())
	assert.Equal(t, "hello", dec.BoundedString(16))
	assert.Equal(t, uint8(201), dec.Uint8())
	assert.NoError(t, dec.Err())
}

func TestDecoderRejectsWrongDiscriminator(t *testing.T) {
	enc := NewEncoder("Registry", 16)
	enc.PutUint64(1)

	_, err := NewDecoder("SafetyReport", enc.Bytes())
	assert.ErrorContains(t, err, "discriminator mismatch")
}

func TestDecoderRejectsShortRecord(t *testing.T) {
	_, err := NewDecoder("Registry", []byte{1, 2, 3})
	assert.ErrorContains(t, err, "too short")
}

func TestDecoderReportsTruncation(t *testing.T) {
	enc := NewEncoder("Sample", 16)
	enc.PutUint8(5)

	dec, err := NewDecoder("Sample", enc.Bytes())
	require.NoError(t, err)

	_ = dec.Uint64()
	assert.Error(t, dec.Err())
}

// The reserved area keeps record size independent of string content.
func TestBoundedStringFixedWidth(t *testing.T) {
	short := NewEncoder("Sample", 64)
	short.PutBoundedString("a", 32)
	long := NewEncoder("Sample", 64)
	long.PutBoundedString("abcdefghijklmnopqrstuvwxyz", 32)

	assert.Equal(t, len(short.Bytes()), len(long.Bytes()))
}

func TestDiscriminatorStablePerType(t *testing.T) {
	assert.Equal(t, Discriminator("Registry"), Discriminator("Registry"))
	assert.NotEqual(t, Discriminator("Registry"), Discriminator("Subscription"))
}
