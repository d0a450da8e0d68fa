// Package transform implements the chainable source/filter/sink crypto
// pipeline used throughout the security stack: base64/hex encode-decode,
// whitespace stripping, digesting, block-cipher, HMAC, signing and
// verification are all expressed as composable modules over a byte stream.
//
// A chain is built "source >> filter1 >> filter2 >> sink" style with a
// fluent builder (Go has no operator overloading): From(source).Then(f1).
// Then(f2).To(sink) wires the modules together, assigns each a monotonic
// chain index used in error messages, and pumps the source.
package transform

import "fmt"

// Error reports a failure at a specific point in a transform chain, so
// callers can tell which stage misbehaved.
type Error struct {
	Index   int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform[%d]: %s", e.Index, e.Message)
}

func errAt(index int, format string, args ...interface{}) error {
	return &Error{Index: index, Message: fmt.Sprintf(format, args...)}
}

// Sink is the downstream half of every non-source module: something that
// accepts bytes and can be told there are no more coming.
//
// Write returns the number of bytes of p it accepted; callers MUST loop,
// re-offering the remainder, until all of p has been consumed. A Write may
// legitimately accept 0 bytes and return a nil error when a filter is
// holding an internal buffer that must drain into its own successor first;
// WriteAll below implements that retry loop with a bounded number of
// no-progress attempts so a genuinely stuck filter surfaces as an error
// instead of spinning forever.
type Sink interface {
	Write(p []byte) (accepted int, err error)
	// End signals no more input will arrive. It must flush any buffered
	// output to the successor and is idempotent: calling End twice is a
	// no-op, and Write after End must fail.
	End() error
}

// Indexable is implemented by modules that want their position in the
// chain recorded for error messages. The builder assigns indices in
// source-to-sink order.
type Indexable interface {
	SetIndex(i int)
	Index() int
}

// Source has no predecessor; it is the producer at the head of a chain. A
// *step* source (see StepSource) additionally accepts explicit Write/End
// calls from the caller instead of producing eagerly.
type Source interface {
	// Pump drives all of the source's bytes into next, then calls
	// next.End(). Buffer/stream sources do this all at once when Pump is
	// called; step sources instead rely on the caller invoking their own
	// Write/End and ignore an unused Pump (see StepSource doc).
	Pump(next Sink) error
}

const maxNoProgressRetries = 10000

// WriteAll loops Write(p) against sink until all of p is accepted,
// tolerating a bounded number of zero-byte "deferred" writes.
func WriteAll(sink Sink, p []byte) error {
	noProgress := 0
	for len(p) > 0 {
		n, err := sink.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			noProgress++
			if noProgress > maxNoProgressRetries {
				return errAt(indexOf(sink), "no progress after %d retries", maxNoProgressRetries)
			}
			continue
		}
		noProgress = 0
		p = p[n:]
	}
	return nil
}

func indexOf(m interface{}) int {
	if ix, ok := m.(Indexable); ok {
		return ix.Index()
	}
	return -1
}

// baseModule provides the Indexable bookkeeping shared by every concrete
// filter and sink, plus idempotent-End tracking.
type baseModule struct {
	index  int
	ended  bool
	next   Sink
}

func (b *baseModule) SetIndex(i int)   { b.index = i }
func (b *baseModule) Index() int       { return b.index }
func (b *baseModule) SetNext(n Sink)   { b.next = n }
func (b *baseModule) hasEnded() bool   { return b.ended }
func (b *baseModule) markEnded()       { b.ended = true }

// Filter is a transform module: it consumes bytes, produces bytes, and
// forwards them to a successor Sink. It is itself a Sink from its
// predecessor's point of view.
type Filter interface {
	Sink
	Indexable
	SetNext(next Sink)
}

// Builder assembles a chain fluently: From(source).Then(f1).Then(f2).To(sink).
type Builder struct {
	source  Source
	filters []Filter
}

// From starts a chain at the given source.
func From(source Source) *Builder {
	return &Builder{source: source}
}

// Then appends a filter to the chain.
func (b *Builder) Then(f Filter) *Builder {
	b.filters = append(b.filters, f)
	return b
}

// To wires the chain to its terminal sink, assigns chain indices in
// source-to-sink order, and pumps the source through it.
func (b *Builder) To(sink Sink) error {
	idx := 0
	if ix, ok := b.source.(Indexable); ok {
		ix.SetIndex(idx)
	}
	idx++

	var next Sink = sink
	for i := len(b.filters) - 1; i >= 0; i-- {
		b.filters[i].SetNext(next)
		next = b.filters[i]
	}
	for _, f := range b.filters {
		f.SetIndex(idx)
		idx++
	}
	if ix, ok := sink.(Indexable); ok {
		ix.SetIndex(idx)
	}

	return b.source.Pump(next)
}
