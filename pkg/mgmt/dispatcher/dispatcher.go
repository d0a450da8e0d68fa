// Package dispatcher implements the management dispatcher: a server-side
// request router that multiplexes a single NDN name namespace into Control
// Commands, Status Datasets and Notification Streams, authorizes each
// request, segments dataset responses, signs every outgoing Data, and
// serves retransmissions from an in-memory store.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"ndnsec/pkg/face"
	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/helper/log"
	"ndnsec/pkg/mgmt"
	"ndnsec/pkg/mgmt/dataset"
	"ndnsec/pkg/metrics"
	"ndnsec/pkg/ndn"
)

// DefaultStorageCapacity bounds the number of signed Data the dispatcher
// retains for retransmission, evicted FIFO once full.
const DefaultStorageCapacity = 256

// RejectReply controls how a Control Command handler responds to an
// authorization rejection.
type RejectReply uint8

const (
	RejectSilent RejectReply = iota
	RejectStatus403
)

// AuthorizeFunc decides whether interest is permitted; a false result
// carries a human-readable reason.
type AuthorizeFunc func(ctx context.Context, interest ndn.Interest) (bool, string)

// ParseFunc extracts parameters from interest. rawParam is the raw bytes of
// the name component immediately after the matched relPrefix, the "old
// style" convention; command-specific parsers that need more than one
// component should ignore it and parse interest.Name themselves. An error
// here means the request is structurally malformed and is dropped silently
// rather than answered.
type ParseFunc func(interest ndn.Interest, rawParam []byte) ([]byte, error)

// ValidateFunc checks previously-parsed parameters for domain validity. An
// error here is semantically invalid and answered with status 400.
type ValidateFunc func(params []byte) error

// HandleFunc runs the command and returns the response body to embed in the
// ControlResponse. There is no separate continuation type: an idiomatic Go
// handler simply returns its result, the same collapse of a callback into a
// direct return value the rest of this module uses wherever the original
// design posted a continuation.
type HandleFunc func(ctx context.Context, interest ndn.Interest, params []byte) ([]byte, error)

// DatasetHandleFunc streams a status dataset's content into dsctx via
// Append/End, or rejects via dsctx.Reject.
type DatasetHandleFunc func(ctx context.Context, interest ndn.Interest, dsctx *dataset.Context) error

// PostNotificationFunc publishes one notification block, returned by
// AddNotificationStream.
type PostNotificationFunc func(block []byte) error

type handlerEntry struct {
	relPrefix ndn.Name
	kind      string
	command   *commandSpec
	dataset   *datasetSpec
}

type commandSpec struct {
	parse    ParseFunc
	authorize AuthorizeFunc
	validate ValidateFunc
	handle   HandleFunc
	reject   RejectReply
}

type datasetSpec struct {
	authorize AuthorizeFunc
	handle    DatasetHandleFunc
}

type topPrefix struct {
	name         ndn.Name
	wantRegister bool
	signing      mgmt.SigningInfo
	installed    []ndn.Name
}

// Dispatcher is the management-namespace multiplexer. Zero value is not
// usable; construct with New.
type Dispatcher struct {
	mu          sync.Mutex
	face        face.Face
	log         log.Logger
	metrics     *metrics.Registry
	storage     *store
	started     bool
	topPrefixes map[string]*topPrefix
	handlers    map[string]*handlerEntry
	streams     map[string]uint64
}

// New builds a Dispatcher that routes through f, with the default storage
// capacity.
func New(f face.Face, logger log.Logger, reg *metrics.Registry) *Dispatcher {
	return NewWithCapacity(f, logger, reg, DefaultStorageCapacity)
}

// NewWithCapacity is New with an explicit retransmission-store capacity.
func NewWithCapacity(f face.Face, logger log.Logger, reg *metrics.Registry, capacity int) *Dispatcher {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Dispatcher{
		face:        f,
		log:         logger,
		metrics:     reg,
		storage:     newStore(capacity),
		topPrefixes: make(map[string]*topPrefix),
		handlers:    make(map[string]*handlerEntry),
		streams:     make(map[string]uint64),
	}
}

func (d *Dispatcher) checkRelPrefixLocked(relPrefix ndn.Name) error {
	for _, h := range d.handlers {
		if h.relPrefix.IsPrefixOf(relPrefix) || relPrefix.IsPrefixOf(h.relPrefix) {
			return errors.InvalidInputf("relPrefix %s overlaps already-registered relPrefix %s", relPrefix, h.relPrefix)
		}
	}
	return nil
}

// AddControlCommand registers a Control Command handler under relPrefix.
// Must be called before the first AddTopPrefix.
func (d *Dispatcher) AddControlCommand(relPrefix ndn.Name, parse ParseFunc, authorize AuthorizeFunc, validate ValidateFunc, handle HandleFunc, reject RejectReply) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.Internalf("AddControlCommand called after AddTopPrefix")
	}
	if err := d.checkRelPrefixLocked(relPrefix); err != nil {
		return err
	}
	d.handlers[relPrefix.String()] = &handlerEntry{
		relPrefix: relPrefix,
		kind:      "command",
		command:   &commandSpec{parse: parse, authorize: authorize, validate: validate, handle: handle, reject: reject},
	}
	return nil
}

// AddStatusDataset registers a Status Dataset handler under relPrefix. Must
// be called before the first AddTopPrefix.
func (d *Dispatcher) AddStatusDataset(relPrefix ndn.Name, authorize AuthorizeFunc, handle DatasetHandleFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.Internalf("AddStatusDataset called after AddTopPrefix")
	}
	if err := d.checkRelPrefixLocked(relPrefix); err != nil {
		return err
	}
	d.handlers[relPrefix.String()] = &handlerEntry{
		relPrefix: relPrefix,
		kind:      "dataset",
		dataset:   &datasetSpec{authorize: authorize, handle: handle},
	}
	return nil
}

// AddNotificationStream registers relPrefix as a notification stream and
// returns the function used to publish to it. Must be called before the
// first AddTopPrefix.
func (d *Dispatcher) AddNotificationStream(relPrefix ndn.Name) (PostNotificationFunc, error) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return nil, errors.Internalf("AddNotificationStream called after AddTopPrefix")
	}
	if err := d.checkRelPrefixLocked(relPrefix); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.handlers[relPrefix.String()] = &handlerEntry{relPrefix: relPrefix, kind: "notification"}
	d.streams[relPrefix.String()] = 0
	d.mu.Unlock()

	return func(block []byte) error {
		d.mu.Lock()
		if len(d.topPrefixes) != 1 {
			d.mu.Unlock()
			d.log.Warn("PostNotification requires exactly one registered top prefix")
			return nil
		}
		var tp *topPrefix
		for _, v := range d.topPrefixes {
			tp = v
		}
		seq := d.streams[relPrefix.String()]
		d.streams[relPrefix.String()] = seq + 1
		d.mu.Unlock()

		name := tp.name.AppendName(relPrefix).Append(ndn.NewSequenceNumberComponent(seq))
		raw := ndn.NewData(name, block)
		signed, err := tp.signing.Sign(raw)
		if err != nil {
			return errors.Wrap(err, "sign notification %s", name)
		}
		d.storage.put(signed)
		d.metrics.RecordDispatcherRequest("notification", "posted", 0)
		return nil
	}, nil
}

// AddTopPrefix activates prefix: every previously registered handler gets a
// face registration at prefix+relPrefix. Once any AddTopPrefix call has
// been made, no further AddControlCommand/AddStatusDataset/
// AddNotificationStream calls are accepted.
func (d *Dispatcher) AddTopPrefix(prefix ndn.Name, wantRegister bool, signing mgmt.SigningInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.topPrefixes {
		if existing.name.IsPrefixOf(prefix) || prefix.IsPrefixOf(existing.name) {
			return errors.InvalidInputf("top prefix %s overlaps already-registered top prefix %s", prefix, existing.name)
		}
	}

	d.started = true
	tp := &topPrefix{name: prefix, wantRegister: wantRegister, signing: signing}
	for _, h := range d.handlers {
		full := prefix.AppendName(h.relPrefix)
		offset := full.Len()
		handlerFn := d.buildHandler(h, full, offset, signing)
		if err := d.face.RegisterPrefix(full, handlerFn); err != nil {
			return errors.Wrap(err, "register handler for %s", full)
		}
		tp.installed = append(tp.installed, full)
	}
	d.topPrefixes[prefix.String()] = tp
	return nil
}

// RemoveTopPrefix undoes AddTopPrefix, unregistering every filter installed
// under prefix.
func (d *Dispatcher) RemoveTopPrefix(prefix ndn.Name) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tp, ok := d.topPrefixes[prefix.String()]
	if !ok {
		return errors.NotFoundf("top prefix %s is not registered", prefix)
	}
	for _, full := range tp.installed {
		if err := d.face.UnregisterPrefix(full); err != nil {
			d.log.Warn("unregister " + full.String() + " during RemoveTopPrefix: " + err.Error())
		}
	}
	delete(d.topPrefixes, prefix.String())
	return nil
}

func (d *Dispatcher) buildHandler(h *handlerEntry, full ndn.Name, offset int, signing mgmt.SigningInfo) face.Handler {
	switch h.kind {
	case "command":
		return d.commandHandler(h.command, signing, offset)
	case "dataset":
		return d.datasetHandler(h.dataset, signing)
	default:
		return d.notificationHandler()
	}
}

func (d *Dispatcher) recordRequest(kind, status string, start time.Time) {
	d.metrics.RecordDispatcherRequest(kind, status, time.Since(start))
}

func (d *Dispatcher) commandHandler(spec *commandSpec, signing mgmt.SigningInfo, paramOffset int) face.Handler {
	return func(ctx context.Context, interest ndn.Interest) (*ndn.Data, error) {
		start := time.Now()
		if cached, ok := d.storage.get(interest.Name); ok {
			d.recordRequest("command", "cache-hit", start)
			return &cached, nil
		}

		var raw []byte
		if paramOffset < interest.Name.Len() {
			raw = interest.Name.At(paramOffset).Bytes
		}
		params, err := spec.parse(interest, raw)
		if err != nil {
			d.log.Debug("dropping structurally malformed command at " + interest.Name.String())
			d.recordRequest("command", "malformed", start)
			return nil, nil
		}

		if ok, reason := spec.authorize(ctx, interest); !ok {
			d.recordRequest("command", "rejected", start)
			if spec.reject == RejectStatus403 {
				return d.signAndStore(interest, signing, mgmt.ControlResponse{StatusCode: 403, StatusText: reason}, "command")
			}
			return nil, nil
		}

		if err := spec.validate(params); err != nil {
			d.recordRequest("command", "invalid", start)
			return d.signAndStore(interest, signing, mgmt.ControlResponse{StatusCode: 400, StatusText: err.Error()}, "command")
		}

		body, err := spec.handle(ctx, interest, params)
		if err != nil {
			d.log.Error("command handler for "+interest.Name.String()+" failed", err)
			d.recordRequest("command", "handler-error", start)
			return nil, nil
		}

		data, err := d.signAndStore(interest, signing, mgmt.ControlResponse{StatusCode: 200, StatusText: "OK", Body: body}, "command")
		if err != nil {
			return nil, err
		}
		d.recordRequest("command", "ok", start)
		return data, nil
	}
}

func (d *Dispatcher) signAndStore(interest ndn.Interest, signing mgmt.SigningInfo, resp mgmt.ControlResponse, kind string) (*ndn.Data, error) {
	encoded := resp.Encode()
	if len(encoded) > dataset.DefaultMaxPayloadLength {
		d.log.Warn(kind + " response for " + interest.Name.String() + " exceeds max payload, dropping")
		return nil, nil
	}
	raw := ndn.NewData(interest.Name, encoded)
	signed, err := signing.Sign(raw)
	if err != nil {
		return nil, errors.Wrap(err, "sign %s response for %s", kind, interest.Name)
	}
	d.storage.put(signed)
	return &signed, nil
}

func (d *Dispatcher) datasetHandler(spec *datasetSpec, signing mgmt.SigningInfo) face.Handler {
	return func(ctx context.Context, interest ndn.Interest) (*ndn.Data, error) {
		start := time.Now()
		if cached, ok := d.storage.get(interest.Name); ok {
			d.recordRequest("dataset", "cache-hit", start)
			return &cached, nil
		}

		for i := 0; i < interest.Name.Len(); i++ {
			c := interest.Name.At(i)
			if c.Type == ndn.ComponentVersion || c.Type == ndn.ComponentSegment {
				d.recordRequest("dataset", "malformed", start)
				return nil, nil
			}
		}

		var first *ndn.Data
		emit := func(seg ndn.Data) error {
			d.storage.put(seg)
			if first == nil {
				cp := seg
				first = &cp
			}
			return nil
		}
		dsctx := dataset.New(interest.Name, signing.Sign, emit)
		if err := dsctx.SetPrefix(interest.Name); err != nil {
			d.log.Error("dataset SetPrefix for "+interest.Name.String()+" failed", err)
			d.recordRequest("dataset", "error", start)
			return nil, nil
		}

		if ok, reason := spec.authorize(ctx, interest); !ok {
			if err := dsctx.Reject(mgmt.ControlResponse{StatusCode: 403, StatusText: reason}); err != nil {
				d.log.Error("dataset reject for "+interest.Name.String()+" failed", err)
			}
			d.recordRequest("dataset", "rejected", start)
			return first, nil
		}

		if err := spec.handle(ctx, interest, dsctx); err != nil {
			d.log.Error("dataset handler for "+interest.Name.String()+" failed", err)
			if dsctx.State() == dataset.StateInitial {
				_ = dsctx.Reject(mgmt.ControlResponse{StatusCode: 500, StatusText: "internal error"})
			} else if dsctx.State() != dataset.StateFinalized {
				_ = dsctx.End()
			}
			d.recordRequest("dataset", "handler-error", start)
			return first, nil
		}
		if dsctx.State() != dataset.StateFinalized {
			if err := dsctx.End(); err != nil {
				d.log.Error("dataset End for "+interest.Name.String()+" failed", err)
			}
		}
		d.recordRequest("dataset", "ok", start)
		return first, nil
	}
}

func (d *Dispatcher) notificationHandler() face.Handler {
	return func(ctx context.Context, interest ndn.Interest) (*ndn.Data, error) {
		if cached, ok := d.storage.get(interest.Name); ok {
			d.metrics.RecordDispatcherRequest("notification", "cache-hit", 0)
			return &cached, nil
		}
		d.metrics.RecordDispatcherRequest("notification", "miss", 0)
		return nil, nil
	}
}

// store is a FIFO-evicted bounded in-memory cache of signed Data, keyed by
// name, used to serve retransmissions without re-running a handler.
type store struct {
	mu       sync.Mutex
	capacity int
	order    []string
	data     map[string]ndn.Data
}

func newStore(capacity int) *store {
	if capacity <= 0 {
		capacity = DefaultStorageCapacity
	}
	return &store{capacity: capacity, data: make(map[string]ndn.Data)}
}

func (s *store) put(d ndn.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := d.Name.String()
	if _, exists := s.data[key]; !exists {
		s.order = append(s.order, key)
		if len(s.order) > s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.data, oldest)
		}
	}
	s.data[key] = d
}

func (s *store) get(name ndn.Name) (ndn.Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[name.String()]
	return d, ok
}
