package transform

import "hash"

// Signer is the minimal capability a signer-filter needs from a private
// key: turn a message digest into a signature. Concrete private keys (see
// package keys) implement this directly so that transform need not import
// the key-material package.
type Signer interface {
	Sign(digest []byte) (signature []byte, err error)
}

// Verifier is the minimal capability a verifier-filter needs from a public
// key (or certificate, or raw key bits): check a signature over a digest.
type Verifier interface {
	Verify(digest, signature []byte) (bool, error)
}

// SignerFilter digests everything it receives and, on End, signs the
// digest with the bound private key and writes the signature bytes
// downstream (typically into a BufferSink).
type SignerFilter struct {
	baseModule
	h      hash.Hash
	signer Signer
}

// NewSignerFilter builds a signer filter using the given digest algorithm
// and Signer.
func NewSignerFilter(algo DigestAlgorithm, signer Signer) (*SignerFilter, error) {
	h, err := newHash(algo)
	if err != nil {
		return nil, err
	}
	return &SignerFilter{h: h, signer: signer}, nil
}

func (f *SignerFilter) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	n, err := f.h.Write(p)
	if err != nil {
		return 0, errAt(f.index, "digest: %v", err)
	}
	return n, nil
}

func (f *SignerFilter) End() error {
	if f.hasEnded() {
		return nil
	}
	sig, err := f.signer.Sign(f.h.Sum(nil))
	if err != nil {
		return errAt(f.index, "sign: %v", err)
	}
	if err := WriteAll(f.next, sig); err != nil {
		return err
	}
	f.markEnded()
	return f.next.End()
}

// Sign is a one-shot convenience equivalent to
// buffer-source >> signer-filter >> buffer-sink.
func Sign(algo DigestAlgorithm, signer Signer, message []byte) ([]byte, error) {
	filter, err := NewSignerFilter(algo, signer)
	if err != nil {
		return nil, err
	}
	sink := NewBufferSink()
	if err := From(NewBufferSource(message)).Then(filter).To(sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// VerifierFilter digests everything it receives and, on End, checks the
// bound signature against the bound public key, writing a single
// 0x00/0x01 byte downstream (meant for a BoolSink).
type VerifierFilter struct {
	baseModule
	h         hash.Hash
	verifier  Verifier
	signature []byte
}

// NewVerifierFilter builds a verifier filter for the given digest
// algorithm, public key and expected signature bytes.
func NewVerifierFilter(algo DigestAlgorithm, verifier Verifier, signature []byte) (*VerifierFilter, error) {
	h, err := newHash(algo)
	if err != nil {
		return nil, err
	}
	return &VerifierFilter{h: h, verifier: verifier, signature: signature}, nil
}

func (f *VerifierFilter) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	n, err := f.h.Write(p)
	if err != nil {
		return 0, errAt(f.index, "digest: %v", err)
	}
	return n, nil
}

func (f *VerifierFilter) End() error {
	if f.hasEnded() {
		return nil
	}
	ok, err := f.verifier.Verify(f.h.Sum(nil), f.signature)
	if err != nil {
		return errAt(f.index, "verify: %v", err)
	}
	b := byte(0)
	if ok {
		b = 1
	}
	if err := WriteAll(f.next, []byte{b}); err != nil {
		return err
	}
	f.markEnded()
	return f.next.End()
}

// Verify is a one-shot convenience equivalent to
// buffer-source >> verifier-filter >> bool-sink.
func Verify(algo DigestAlgorithm, verifier Verifier, message, signature []byte) (bool, error) {
	filter, err := NewVerifierFilter(algo, verifier, signature)
	if err != nil {
		return false, err
	}
	sink := NewBoolSink()
	if err := From(NewBufferSource(message)).Then(filter).To(sink); err != nil {
		return false, err
	}
	return sink.Value(), nil
}
