package transform

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64RoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	encSink := NewBufferSink()
	require.NoError(t, From(NewBufferSource(data)).Then(NewBase64Encode(false)).To(encSink))

	decSink := NewBufferSink()
	require.NoError(t, From(NewBufferSource(encSink.Bytes())).Then(NewBase64Decode()).To(decSink))

	assert.Equal(t, data, decSink.Bytes())
}

func TestBase64EncodeWithNewline(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	sink := NewBufferSink()
	require.NoError(t, From(NewBufferSource(data)).Then(NewBase64Encode(true)).To(sink))

	for _, line := range bytes.Split(bytes.TrimRight(sink.Bytes(), "\n"), []byte("\n")) {
		assert.LessOrEqual(t, len(line), 64)
	}
}

func TestHexRoundTrip(t *testing.T) {
	data := []byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0xFF}

	encSink := NewBufferSink()
	require.NoError(t, From(NewBufferSource(data)).Then(NewHexEncode()).To(encSink))
	assert.Equal(t, "00deadbeefff", string(encSink.Bytes()))

	decSink := NewBufferSink()
	require.NoError(t, From(NewBufferSource(encSink.Bytes())).Then(NewHexDecode()).To(decSink))
	assert.Equal(t, data, decSink.Bytes())
}

func TestHexDecodeOddLengthFails(t *testing.T) {
	sink := NewBufferSink()
	err := From(NewBufferSource([]byte("abc"))).Then(NewHexDecode()).To(sink)
	require.Error(t, err)
}

func TestStripSpace(t *testing.T) {
	sink := NewBufferSink()
	require.NoError(t, From(NewBufferSource([]byte("a b\tc\r\nd"))).Then(NewStripSpace()).To(sink))
	assert.Equal(t, "abcd", string(sink.Bytes()))
}

func TestDigestSha256(t *testing.T) {
	sum, err := Digest(Sha256, []byte("abc"))
	require.NoError(t, err)
	// Known SHA-256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(sum))
}

func TestAESCBCRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	iv := bytes.Repeat([]byte{0x02}, 16)
	plaintext := []byte("Named Data Networking payload that spans multiple AES blocks of data")

	ciphertext, err := EncryptCBC(key, iv, plaintext)
	require.NoError(t, err)
	assert.Equal(t, 0, len(ciphertext)%16)

	decrypted, err := DecryptCBC(key, iv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESCBCRejectsBadIVLength(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 16)
	_, err := NewBlockCipher(Encrypt, key, []byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestAESCBCRejectsBadKeyLength(t *testing.T) {
	_, err := NewBlockCipher(Encrypt, bytes.Repeat([]byte{1}, 17), bytes.Repeat([]byte{1}, 16))
	require.Error(t, err)
}

type fakeSigner struct{ sig []byte }

func (f fakeSigner) Sign(digest []byte) ([]byte, error) { return f.sig, nil }

type fakeVerifier struct{ want []byte }

func (f fakeVerifier) Verify(digest, signature []byte) (bool, error) {
	return bytes.Equal(signature, f.want), nil
}

func TestSignerVerifierFilters(t *testing.T) {
	message := []byte("signed Interest payload")
	sig, err := Sign(Sha256, fakeSigner{sig: []byte("deadbeef")}, message)
	require.NoError(t, err)
	assert.Equal(t, []byte("deadbeef"), sig)

	ok, err := Verify(Sha256, fakeVerifier{want: sig}, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(Sha256, fakeVerifier{want: sig}, message, []byte("wrong"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteAfterEndFails(t *testing.T) {
	sink := NewBufferSink()
	require.NoError(t, sink.End())
	_, err := sink.Write([]byte("x"))
	require.Error(t, err)
}

func TestStepSource(t *testing.T) {
	sink := NewBufferSink()
	src := NewStepSource()
	require.NoError(t, From(src).Then(NewStripSpace()).To(sink))

	_, err := src.Write([]byte("a b"))
	require.NoError(t, err)
	_, err = src.Write([]byte("c d"))
	require.NoError(t, err)
	require.NoError(t, src.End())

	assert.Equal(t, "abcd", string(sink.Bytes()))
}

func TestChainErrorReportsIndex(t *testing.T) {
	sink := NewBufferSink()
	err := From(NewBufferSource([]byte("abc"))).Then(NewHexDecode()).To(sink)
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 1, tErr.Index) // source=0, hex-decode filter=1
}
