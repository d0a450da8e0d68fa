package transform

import "io"

// BufferSource produces a fixed in-memory byte slice once, in a single
// Pump call.
type BufferSource struct {
	index int
	data  []byte
}

// NewBufferSource wraps an in-memory buffer as a chain source.
func NewBufferSource(data []byte) *BufferSource {
	return &BufferSource{data: data}
}

func (s *BufferSource) SetIndex(i int) { s.index = i }
func (s *BufferSource) Index() int     { return s.index }

func (s *BufferSource) Pump(next Sink) error {
	if err := WriteAll(next, s.data); err != nil {
		return err
	}
	return next.End()
}

// StreamSource reads from an io.Reader to exhaustion, in chunks, rather
// than loading everything up front.
type StreamSource struct {
	index     int
	r         io.Reader
	chunkSize int
}

// NewStreamSource wraps r as a chain source, reading chunkSize bytes at a
// time (default 64KiB if chunkSize <= 0).
func NewStreamSource(r io.Reader, chunkSize int) *StreamSource {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &StreamSource{r: r, chunkSize: chunkSize}
}

func (s *StreamSource) SetIndex(i int) { s.index = i }
func (s *StreamSource) Index() int     { return s.index }

func (s *StreamSource) Pump(next Sink) error {
	buf := make([]byte, s.chunkSize)
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			if werr := WriteAll(next, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errAt(s.index, "read: %v", err)
		}
	}
	return next.End()
}

// StepSource is a source whose bytes arrive via explicit caller-driven
// Write/End calls rather than being pulled from a Reader up front. It is
// useful when the producer of plaintext is itself reacting to external
// events (e.g. a status-dataset handler appending chunks over time). Its
// Pump is a no-op: wiring it into a Builder only assigns chain indices and
// connects it to the next module; the caller then drives it directly via
// Write/End.
type StepSource struct {
	baseModule
}

// NewStepSource creates a step source. Bind it to the rest of the chain
// with From(src).Then(...).To(sink), which sets src.next, then call
// src.Write/src.End as bytes become available.
func NewStepSource() *StepSource {
	return &StepSource{}
}

// Pump is a no-op for a step source: bytes are pushed explicitly.
func (s *StepSource) Pump(next Sink) error {
	s.next = next
	return nil
}

// Write forwards bytes to the bound successor.
func (s *StepSource) Write(p []byte) (int, error) {
	if s.next == nil {
		return 0, errAt(s.index, "step source not bound to a chain")
	}
	if s.hasEnded() {
		return 0, errAt(s.index, "write after end")
	}
	if err := WriteAll(s.next, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// End finalizes the chain. Idempotent.
func (s *StepSource) End() error {
	if s.hasEnded() {
		return nil
	}
	s.markEnded()
	return s.next.End()
}
