// Package dataset implements the status-dataset context: a stateful
// segmenter that buffers a dataset handler's output and emits it as a
// sequence of versioned, segmented Data packets terminated by a
// FinalBlockId, or as a single Nack-style rejection if the handler never
// gets to produce anything.
package dataset

import (
	"time"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/mgmt"
	"ndnsec/pkg/ndn"
)

// MaxNDNPacketSize is the conventional upper bound on an NDN packet's wire
// size; DefaultMaxPayloadLength leaves headroom for the TLV overhead this
// module's NativeCodec doesn't model.
const MaxNDNPacketSize = 8800

// DefaultMaxPayloadLength is the per-segment content budget.
const DefaultMaxPayloadLength = MaxNDNPacketSize - 800

// State is the context's state machine position.
type State uint8

const (
	StateInitial State = iota
	StateResponded
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateResponded:
		return "responded"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// EmitFunc sends one finished, signed segment (or a Nack Data standing in
// for a rejection) and caches it for retransmission. Supplied by the
// dispatcher, which owns the face and the retransmission store.
type EmitFunc func(d ndn.Data) error

// SignFunc signs a Data packet's content under the producer's identity.
type SignFunc func(d ndn.Data) (ndn.Data, error)

// Context drives one status-dataset response. A new Context is created per
// incoming Interest and discarded once it reaches StateFinalized.
type Context struct {
	interestName ndn.Name
	prefix       ndn.Name
	havePrefix   bool
	buffer       []byte
	segmentNum   uint64
	state        State
	maxPayload   int
	sign         SignFunc
	emit         EmitFunc
	now          func() time.Time
}

// New builds a Context for interestName, to be signed with sign and
// delivered with emit.
func New(interestName ndn.Name, sign SignFunc, emit EmitFunc) *Context {
	return &Context{
		interestName: interestName,
		state:        StateInitial,
		maxPayload:   DefaultMaxPayloadLength,
		sign:         sign,
		emit:         emit,
		now:          time.Now,
	}
}

// State reports the context's current state-machine position.
func (c *Context) State() State { return c.state }

// SetPrefix fixes the name under which segments are emitted. Only legal in
// StateInitial. p must start with the requesting Interest's name and must
// not itself contain a segment component (that's the segmenter's job to
// append); if p lacks a version component, one is generated from the
// current time and appended.
func (c *Context) SetPrefix(p ndn.Name) error {
	if c.state != StateInitial {
		return logicErrorf("SetPrefix called in state %s, expected initial", c.state)
	}
	if !c.interestName.IsPrefixOf(p) {
		return errors.InvalidInputf("dataset prefix %s does not start with interest name %s", p, c.interestName)
	}
	for i := 0; i < p.Len(); i++ {
		if p.At(i).Type == ndn.ComponentSegment {
			return errors.InvalidInputf("dataset prefix %s must not contain a segment component", p)
		}
	}
	if p.Len() == 0 || p.At(-1).Type != ndn.ComponentVersion {
		p = p.Append(ndn.NewVersionComponent(uint64(c.now().UnixNano())))
	}
	c.prefix = p
	c.havePrefix = true
	return nil
}

// Append buffers bytes, flushing a non-final segment every time the buffer
// reaches its capacity. Legal in StateInitial or StateResponded; always
// leaves the context in StateResponded.
func (c *Context) Append(b []byte) error {
	if c.state != StateInitial && c.state != StateResponded {
		return logicErrorf("Append called in state %s, expected initial or responded", c.state)
	}
	if !c.havePrefix {
		return errors.InvalidInputf("Append called before SetPrefix")
	}
	c.buffer = append(c.buffer, b...)
	for len(c.buffer) >= c.maxPayload {
		chunk := c.buffer[:c.maxPayload]
		c.buffer = c.buffer[c.maxPayload:]
		if err := c.flush(chunk, false); err != nil {
			return err
		}
	}
	c.state = StateResponded
	return nil
}

// End flushes any remaining buffered bytes as the final segment (with
// FinalBlockId set), even if empty, and transitions to StateFinalized.
// Legal in StateInitial or StateResponded.
func (c *Context) End() error {
	if c.state != StateInitial && c.state != StateResponded {
		return logicErrorf("End called in state %s, expected initial or responded", c.state)
	}
	if !c.havePrefix {
		return errors.InvalidInputf("End called before SetPrefix")
	}
	if err := c.flush(c.buffer, true); err != nil {
		return err
	}
	c.buffer = nil
	c.state = StateFinalized
	return nil
}

// Reject emits a single Nack-style Data wrapping resp and transitions
// directly to StateFinalized. Legal only in StateInitial, before any
// segment has been produced.
func (c *Context) Reject(resp mgmt.ControlResponse) error {
	if c.state != StateInitial {
		return logicErrorf("Reject called in state %s, expected initial", c.state)
	}
	d := ndn.NewData(c.interestName, resp.Encode())
	d.ContentType = ndn.ContentTypeNack
	signed, err := c.sign(d)
	if err != nil {
		return errors.Wrap(err, "sign dataset rejection")
	}
	if err := c.emit(signed); err != nil {
		return errors.Wrap(err, "emit dataset rejection")
	}
	c.state = StateFinalized
	return nil
}

func (c *Context) flush(content []byte, final bool) error {
	name := c.prefix.Append(ndn.NewSegmentComponent(c.segmentNum))
	d := ndn.NewData(name, append([]byte(nil), content...))
	if final {
		last := name.At(-1)
		d.FinalBlockID = &last
	}
	signed, err := c.sign(d)
	if err != nil {
		return errors.Wrap(err, "sign dataset segment %d", c.segmentNum)
	}
	if err := c.emit(signed); err != nil {
		return errors.Wrap(err, "emit dataset segment %d", c.segmentNum)
	}
	c.segmentNum++
	return nil
}

func logicErrorf(format string, args ...interface{}) error {
	return errors.Wrap(errors.Newf(format, args...), "dataset context logic error")
}
