package transform

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

// HMACFilter computes an HMAC-SHA256 over everything it receives and, on
// End, writes the MAC downstream.
type HMACFilter struct {
	baseModule
	h hash.Hash
}

// NewHMACFilter builds an HMAC filter keyed with key.
func NewHMACFilter(key []byte) *HMACFilter {
	return &HMACFilter{h: hmac.New(sha256.New, key)}
}

func (f *HMACFilter) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	n, err := f.h.Write(p)
	if err != nil {
		return 0, errAt(f.index, "hmac: %v", err)
	}
	return n, nil
}

func (f *HMACFilter) End() error {
	if f.hasEnded() {
		return nil
	}
	if err := WriteAll(f.next, f.h.Sum(nil)); err != nil {
		return err
	}
	f.markEnded()
	return f.next.End()
}

// HMACSign is a one-shot convenience equivalent to
// buffer-source >> hmac-filter >> buffer-sink.
func HMACSign(key, message []byte) ([]byte, error) {
	sink := NewBufferSink()
	if err := From(NewBufferSource(message)).Then(NewHMACFilter(key)).To(sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}
