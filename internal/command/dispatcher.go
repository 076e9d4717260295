package command

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSettle is the processing delay between accepting a dispatch and
// producing its event.
const DefaultSettle = 800 * time.Millisecond

// Source identifies the modality that produced a dispatch.
type Source string

const (
	SourceGesture Source = "gesture"
	SourceVoice   Source = "voice"
)

// Event is the output of a completed dispatch. Action is empty for
// informational responses such as "not understood".
type Event struct {
	ID          string    `json:"id"`
	Action      string    `json:"action,omitempty"`
	Response    string    `json:"response"`
	Urgent      bool      `json:"urgent"`
	Source      Source    `json:"source"`
	Trigger     string    `json:"trigger,omitempty"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

// Sink receives completed command events. OnCommand may be called with the
// producer's session lock held, so it must not call back into the engine.
type Sink interface {
	OnCommand(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// OnCommand implements Sink.
func (f SinkFunc) OnCommand(e Event) { f(e) }

// Request asks the dispatcher to produce an event.
type Request struct {
	Action   string
	Response string
	Urgent   bool
	Source   Source
	// Trigger is the gesture label or utterance that caused the request.
	Trigger string
	// Guard is called when the settle delay elapses. It runs deliver only if
	// the request is still current and reports whether it did; deliver must
	// run under whatever lock protects that check, so a concurrent reset
	// cannot slip between them. Nil delivers unconditionally.
	Guard func(deliver func()) bool
	// Done is called after the event was delivered or discarded.
	Done func(delivered bool)
}

// RequestFor builds a request for a table definition.
func RequestFor(def Definition, source Source, trigger string) Request {
	return Request{
		Action:   def.Action,
		Response: def.Response,
		Urgent:   def.Urgent,
		Source:   source,
		Trigger:  trigger,
	}
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Settle    time.Duration
	Scheduler Scheduler
	Sink      Sink
	Now       func() time.Time
	Logger    *zap.Logger
}

// Dispatcher allows at most one dispatch in flight process-wide. Requests that
// arrive while busy are dropped, not queued.
type Dispatcher struct {
	settle    time.Duration
	scheduler Scheduler
	sink      Sink
	now       func() time.Time
	logger    *zap.Logger

	mu   sync.Mutex
	busy bool
}

// NewDispatcher creates a Dispatcher. Zero fields fall back to DefaultSettle,
// TimerScheduler, time.Now and a no-op logger.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		settle:    cfg.Settle,
		scheduler: cfg.Scheduler,
		sink:      cfg.Sink,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
	if d.settle <= 0 {
		d.settle = DefaultSettle
	}
	if d.scheduler == nil {
		d.scheduler = TimerScheduler{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Busy reports whether a dispatch is in flight.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Dispatch accepts req if no dispatch is in flight and schedules its
// completion after the settle delay. It never blocks.
func (d *Dispatcher) Dispatch(req Request) bool {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		d.logger.Debug("dispatch dropped, busy",
			zap.String("action", req.Action),
			zap.String("source", string(req.Source)),
		)
		return false
	}
	d.busy = true
	d.mu.Unlock()

	d.logger.Debug("dispatch accepted",
		zap.String("action", req.Action),
		zap.String("source", string(req.Source)),
	)
	d.scheduler.AfterFunc(d.settle, func() { d.complete(req) })
	return true
}

func (d *Dispatcher) complete(req Request) {
	event := Event{
		ID:          uuid.New().String(),
		Action:      req.Action,
		Response:    req.Response,
		Urgent:      req.Urgent,
		Source:      req.Source,
		Trigger:     req.Trigger,
		TriggeredAt: d.now(),
	}
	deliver := func() {
		if d.sink != nil {
			d.sink.OnCommand(event)
		}
	}

	delivered := true
	if req.Guard != nil {
		delivered = req.Guard(deliver)
	} else {
		deliver()
	}
	if !delivered {
		d.logger.Debug("stale dispatch discarded", zap.String("action", req.Action))
	}

	if req.Done != nil {
		req.Done(delivered)
	}

	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}
