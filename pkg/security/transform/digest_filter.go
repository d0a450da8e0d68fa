package transform

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// DigestAlgorithm identifies a hash function the digest filter can compute.
type DigestAlgorithm uint8

const (
	Sha224 DigestAlgorithm = iota
	Sha256
	Sha384
	Sha512
	Sha3_224
	Sha3_256
	Sha3_384
	Sha3_512
	Blake2b256
	Blake2b512
	Blake2s256
)

func newHash(algo DigestAlgorithm) (hash.Hash, error) {
	switch algo {
	case Sha224:
		return sha256.New224(), nil
	case Sha256:
		return sha256.New(), nil
	case Sha384:
		return sha512.New384(), nil
	case Sha512:
		return sha512.New(), nil
	case Sha3_224:
		return sha3.New224(), nil
	case Sha3_256:
		return sha3.New256(), nil
	case Sha3_384:
		return sha3.New384(), nil
	case Sha3_512:
		return sha3.New512(), nil
	case Blake2b256:
		return blake2b.New256(nil)
	case Blake2b512:
		return blake2b.New512(nil)
	case Blake2s256:
		return blake2s.New256(nil)
	default:
		return nil, errAt(-1, "unsupported digest algorithm %d", algo)
	}
}

// DigestFilter hashes everything it receives and, on End, writes the
// final digest (and only the digest) to its successor.
type DigestFilter struct {
	baseModule
	h hash.Hash
}

// NewDigestFilter builds a digest filter for the given algorithm.
func NewDigestFilter(algo DigestAlgorithm) (*DigestFilter, error) {
	h, err := newHash(algo)
	if err != nil {
		return nil, err
	}
	return &DigestFilter{h: h}, nil
}

func (f *DigestFilter) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	n, err := f.h.Write(p)
	if err != nil {
		return 0, errAt(f.index, "digest: %v", err)
	}
	return n, nil
}

func (f *DigestFilter) End() error {
	if f.hasEnded() {
		return nil
	}
	sum := f.h.Sum(nil)
	if err := WriteAll(f.next, sum); err != nil {
		return err
	}
	f.markEnded()
	return f.next.End()
}

// Digest is a convenience one-shot helper equivalent to running
// buffer-source >> digest-filter >> buffer-sink.
func Digest(algo DigestAlgorithm, data []byte) ([]byte, error) {
	filter, err := NewDigestFilter(algo)
	if err != nil {
		return nil, err
	}
	sink := NewBufferSink()
	if err := From(NewBufferSource(data)).Then(filter).To(sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}
