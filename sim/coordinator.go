package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/auctionio/auctionio/sim/trace"
)

// ErrSimulationEnded is returned by Inject once the run has finished.
var ErrSimulationEnded = errors.New("simulation ended")

// Arrival is one client arriving Offset after the run starts.
type Arrival struct {
	Offset  time.Duration
	ID      ClientID
	Volumes []float64
}

// Collaborators are the pluggable parts of a run. Nil fields get defaults:
// WallClock, a SimulatedTransfer built from Config.Transfer, the failure and
// admission policies named in Config, and no extra observer.
type Collaborators struct {
	Clock     Clock
	Transfer  Transfer
	Failure   FailurePolicy
	Admission AdmissionPolicy
	Observer  Observer
}

// EndReason explains why a run stopped.
type EndReason string

const (
	EndDrained  EndReason = "drained"  // every accepted client finished
	EndShutdown EndReason = "shutdown" // the caller cancelled the run
	EndHorizon  EndReason = "horizon"  // Config.Horizon elapsed
	EndFatal    EndReason = "fatal"    // a concurrency invariant broke
)

// Result summarizes a finished run. Client counts are by final outcome.
type Result struct {
	RunID   string
	Reason  EndReason
	Started time.Time
	Ended   time.Time

	Accepted  int // clients admitted to the queue
	Rejected  int // clients refused at the boundary
	Completed int // clients whose whole pack was sent
	Dropped   int // clients removed after one file with files left
	Failed    int // clients discarded after a failed transfer
	Unserved  int // clients still queued when the run stopped

	HostServed map[HostID]int // transfers started per host
	Metrics    *Metrics
	Trace      *trace.SimulationTrace // nil unless tracing was enabled
}

// Coordinator is the root of a simulation: it owns the queue and scheduler,
// runs the hosts and the arrival stream, and decides when the run is over.
type Coordinator struct {
	cfg       Config
	runID     string
	clock     Clock
	queue     *ClientQueue
	sched     *Scheduler
	hosts     []*Host
	transfer  Transfer
	failure   FailurePolicy
	admission AdmissionPolicy
	metrics   *Metrics
	recorder  *TraceRecorder
	observer  Observer
	arrivals  []Arrival

	mu           sync.Mutex
	live         map[ClientID]bool // accepted and not yet finished
	arrivalsDone bool
	ended        bool
	drained      chan struct{}
	hasRun       bool
	result       Result
}

// NewCoordinator validates cfg and wires a run. arrivals are replayed in
// Offset order once Run starts.
func NewCoordinator(cfg Config, arrivals []Arrival, collab Collaborators) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Reenqueue == "" {
		cfg.Reenqueue = ReenqueueDrop
	}
	c := &Coordinator{
		cfg:       cfg,
		runID:     uuid.NewString(),
		clock:     collab.Clock,
		failure:   collab.Failure,
		admission: collab.Admission,
		metrics:   NewMetrics(),
		live:      make(map[ClientID]bool),
		drained:   make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = WallClock{}
	}
	if c.failure == nil {
		c.failure = NewFailurePolicy(cfg.FailurePolicy, cfg.FailureMaxAttempts)
	}
	if c.admission == nil {
		c.admission = NewAdmissionPolicy(cfg.Admission, cfg.Tick)
	}
	c.recorder = NewTraceRecorder(c.runID, cfg.Trace)
	c.observer = Observers{c.metrics, c.recorder, collab.Observer}

	c.queue = NewClientQueue()
	c.sched = NewScheduler(c.queue, c.clock, cfg.Tick, cfg.Retry, c.observer)
	ids := cfg.HostIDs()
	c.hosts = make([]*Host, len(ids))
	for i, id := range ids {
		c.hosts[i] = NewHost(id)
	}
	c.transfer = collab.Transfer
	if c.transfer == nil {
		rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
		c.transfer = NewSimulatedTransfer(cfg.Transfer, cfg.Tick, rng, ids)
	}

	c.arrivals = append([]Arrival(nil), arrivals...)
	sort.SliceStable(c.arrivals, func(i, j int) bool {
		return c.arrivals[i].Offset < c.arrivals[j].Offset
	})
	return c, nil
}

// RunID returns the unique identifier of this run.
func (c *Coordinator) RunID() string { return c.runID }

// Queue returns the shared client queue.
func (c *Coordinator) Queue() *ClientQueue { return c.queue }

// Scheduler returns the scheduler the hosts select through.
func (c *Coordinator) Scheduler() *Scheduler { return c.sched }

// Hosts returns the hosts of this run.
func (c *Coordinator) Hosts() []*Host { return c.hosts }

// Metrics returns the live metrics of this run.
func (c *Coordinator) Metrics() *Metrics { return c.metrics }

// Inject admits a client to the queue. A zero ArrivalTime is stamped with the
// current time; an ArrivalTime in the future is rejected, and so is a client
// the admission policy turns away (ErrAdmissionDenied). Rejections are
// reported as client_rejected events and returned.
func (c *Coordinator) Inject(client *Client) error {
	if client == nil {
		return c.reject(0, fmt.Errorf("%w: nil client", ErrInvalidInput))
	}
	now := c.clock.Now()
	if client.ArrivalTime.IsZero() {
		client.ArrivalTime = now
	}
	if client.FirstArrival.IsZero() {
		client.FirstArrival = client.ArrivalTime
	}
	if client.ArrivalTime.After(now) {
		return c.reject(client.ID, fmt.Errorf("%w: client %d arrives in the future", ErrInvalidInput, client.ID))
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSimulationEnded
	}
	if c.live[client.ID] {
		c.mu.Unlock()
		return c.reject(client.ID, fmt.Errorf("%w: %d", ErrDuplicateID, client.ID))
	}
	if err := client.Validate(); err != nil {
		c.mu.Unlock()
		return c.reject(client.ID, err)
	}
	if ok, reason := c.admission.Admit(client, c.queue.Len(), now); !ok {
		c.mu.Unlock()
		return c.reject(client.ID, fmt.Errorf("%w: client %d: %s", ErrAdmissionDenied, client.ID, reason))
	}
	// Once enqueued the client belongs to the queue and a host may take it
	// at once, so the event is built and emitted beforehand.
	id := client.ID
	c.observer.Observe(Event{Type: EventClientEnqueued, Time: now, ClientID: id, Remaining: client.Remaining()})
	if err := c.queue.Enqueue(client); err != nil {
		c.mu.Unlock()
		return c.reject(id, err)
	}
	c.live[id] = true
	c.result.Accepted++
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) reject(id ClientID, err error) error {
	c.mu.Lock()
	c.result.Rejected++
	c.mu.Unlock()
	c.observer.Observe(Event{Type: EventClientRejected, Time: c.clock.Now(), ClientID: id, Err: err})
	return err
}

// Changed implements Dispatcher.
func (c *Coordinator) Changed() <-chan struct{} {
	return c.queue.Changed()
}

// SelectForHost implements Dispatcher.
func (c *Coordinator) SelectForHost(ctx context.Context, host *Host) (*Assignment, error) {
	return c.sched.SelectForHost(ctx, host)
}

// Complete implements Dispatcher. It releases the client from its host and
// applies the re-enqueue mode on success or the failure policy on error.
func (c *Coordinator) Complete(a *Assignment, transferErr error) error {
	if err := c.sched.Release(a); err != nil {
		return err
	}
	now := c.clock.Now()
	client := a.Client

	if transferErr == nil {
		client.Failures = 0
		c.observer.Observe(Event{Type: EventTransferCompleted, Time: now, HostID: a.Host, ClientID: client.ID, File: a.File, Remaining: client.Remaining()})
		if client.Remaining() == 0 {
			c.finish(client.ID, &c.result.Completed)
			return nil
		}
		switch c.cfg.Reenqueue {
		case ReenqueueReset:
			client.ArrivalTime = now
			c.requeue(client)
		case ReenqueueKeep:
			c.requeue(client)
		default:
			c.finish(client.ID, &c.result.Dropped)
		}
		return nil
	}

	client.Failures++
	c.observer.Observe(Event{Type: EventTransferFailed, Time: now, HostID: a.Host, ClientID: client.ID, File: a.File, Attempt: client.Failures, Err: transferErr})
	if c.failure.OnFailure(client, a.File, client.Failures) == Retry {
		client.PutBack(a.File)
		client.ArrivalTime = now
		c.requeue(client)
		return nil
	}
	c.finish(client.ID, &c.result.Failed)
	return nil
}

// requeue puts a released client back in the queue. The client stays live.
// Nothing reads the client after Enqueue: from then on a host may hold it.
func (c *Coordinator) requeue(client *Client) {
	id := client.ID
	c.observer.Observe(Event{Type: EventClientRequeued, Time: c.clock.Now(), ClientID: id, Remaining: client.Remaining()})
	if err := c.queue.Enqueue(client); err != nil {
		c.observer.Observe(Event{Type: EventClientRejected, Time: c.clock.Now(), ClientID: id, Err: err})
		c.finish(id, &c.result.Failed)
	}
}

// finish retires a live client and bumps the outcome counter.
func (c *Coordinator) finish(id ClientID, outcome *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.live, id)
	*outcome++
	c.checkDrainedLocked()
}

func (c *Coordinator) markArrivalsDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arrivalsDone = true
	c.checkDrainedLocked()
}

func (c *Coordinator) checkDrainedLocked() {
	if !c.arrivalsDone || len(c.live) > 0 {
		return
	}
	select {
	case <-c.drained:
	default:
		close(c.drained)
	}
}

// Run executes the simulation: hosts loop request -> serve -> repeat while the
// arrival stream feeds the queue. It returns when every arrival has been
// admitted and every accepted client has finished, when ctx is cancelled,
// or when Config.Horizon elapses. In-flight transfers always complete before
// Run returns. A non-nil error means a fatal invariant broke.
// Panics if called more than once.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if c.hasRun {
		c.mu.Unlock()
		panic("Coordinator.Run() called more than once")
	}
	c.hasRun = true
	c.mu.Unlock()

	started := c.clock.Now()
	runCtx := ctx
	if c.cfg.Horizon > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Horizon)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	hostCtx, stopHosts := context.WithCancel(gctx)
	defer stopHosts()

	for _, h := range c.hosts {
		h := h
		g.Go(func() error {
			return h.Run(hostCtx, c, c.transfer, c.cfg.PollInterval)
		})
	}
	g.Go(func() error {
		c.arrive(gctx)
		return nil
	})
	g.Go(func() error {
		select {
		case <-c.drained:
		case <-gctx.Done():
		}
		stopHosts()
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	c.ended = true
	res := c.result
	c.mu.Unlock()

	res.RunID = c.runID
	res.Started = started
	res.Ended = c.clock.Now()
	res.Unserved = c.queue.Len()
	res.Metrics = c.metrics
	res.Trace = c.recorder.Trace()
	res.HostServed = make(map[HostID]int, len(c.hosts))
	for _, h := range c.hosts {
		res.HostServed[h.ID] = h.Served()
	}
	switch {
	case err != nil:
		res.Reason = EndFatal
	case ctx.Err() != nil:
		res.Reason = EndShutdown
	case runCtx.Err() != nil:
		res.Reason = EndHorizon
	default:
		res.Reason = EndDrained
	}

	c.observer.Observe(Event{Type: EventSimulationEnded, Time: res.Ended, Summary: &res})
	if err != nil {
		return &res, fmt.Errorf("simulation %s halted: %w", c.runID, err)
	}
	return &res, nil
}

// arrive replays the arrival stream on the run's Clock, so a ManualClock
// releases arrivals only as it is advanced.
func (c *Coordinator) arrive(ctx context.Context) {
	defer c.markArrivalsDone()
	start := c.clock.Now()
	for _, a := range c.arrivals {
		if wait := a.Offset - c.clock.Now().Sub(start); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-after(c.clock, wait):
			}
		}
		if ctx.Err() != nil {
			return
		}
		client, err := NewClient(a.ID, c.clock.Now(), a.Volumes...)
		if err != nil {
			_ = c.reject(a.ID, err)
			continue
		}
		_ = c.Inject(client)
	}
}

// Standing is a queued client's current position in the selection order.
type Standing struct {
	Rank int
	CandidateScore
}

// Standings scores the queue as it is now and returns it in selection order,
// the way the next idle host would see it.
func (c *Coordinator) Standings() ([]Standing, error) {
	ranked, err := c.sched.Rank(c.queue.Snapshot(), c.clock.Now())
	if err != nil {
		return nil, err
	}
	out := make([]Standing, len(ranked))
	for i, r := range ranked {
		out[i] = Standing{Rank: i + 1, CandidateScore: r}
	}
	return out, nil
}
