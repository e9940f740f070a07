package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
)

// ErrStarted is returned by Subscribe once the dispatcher is running.
var ErrStarted = errors.New("events: dispatcher already started")

// Handler consumes one event. The context carries the per-subscriber
// timeout and is not tied to any HTTP request.
type Handler func(ctx context.Context, ev Event) error

// DefaultHandlerTimeout bounds a single subscriber invocation.
const DefaultHandlerTimeout = 5 * time.Second

// Options configures a Dispatcher.
type Options struct {
	HandlerTimeout time.Duration
}

type subscriber struct {
	name string
	fn   Handler
}

// Dispatcher is an in-process publish/subscribe bus. Publish appends to an
// unbounded FIFO queue and returns immediately; a single consumer goroutine
// delivers events in publish order, calling every subscriber of the topic
// in registration order.
type Dispatcher struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	subs    map[Topic][]subscriber
	queue   []Event
	pending int
	waiters []chan struct{}
	started bool
	closed  bool
	done    chan struct{}
}

// New creates a dispatcher. Subscribers must be registered before Start.
func New(log *zap.Logger, m *metrics.Metrics, opts Options) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = DefaultHandlerTimeout
	}
	d := &Dispatcher{
		log:     log.Named("events"),
		metrics: m,
		timeout: opts.HandlerTimeout,
		subs:    make(map[Topic][]subscriber),
		done:    make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Subscribe registers handler for topic under a name used in logs and
// metrics.
func (d *Dispatcher) Subscribe(topic Topic, name string, handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrStarted
	}
	d.subs[topic] = append(d.subs[topic], subscriber{name: name, fn: handler})
	return nil
}

// SubscribeAll registers handler for every topic.
func (d *Dispatcher) SubscribeAll(name string, handler Handler) error {
	for _, topic := range AllTopics {
		if err := d.Subscribe(topic, name, handler); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the consumer goroutine. Events published earlier are
// delivered first.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.run()
}

// Publish enqueues ev for delivery. It never blocks on subscribers.
// Events on topics nobody subscribed to are discarded.
func (d *Dispatcher) Publish(ev Event) {
	if ev == nil {
		return
	}
	topic := ev.Topic()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("event published after close", zap.String("topic", string(topic)))
		return
	}
	if len(d.subs[topic]) == 0 {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, ev)
	d.pending++
	depth := len(d.queue)
	d.cond.Signal()
	d.mu.Unlock()

	d.metrics.EventPublished(string(topic))
	d.metrics.SetQueueDepth(depth)
}

// Drain blocks until every event published so far has been delivered, or
// ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	if d.pending == 0 {
		d.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	d.waiters = append(d.waiters, ch)
	d.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining events: %w", ctx.Err())
	}
}

// Close drains the queue and stops the consumer. Publish after Close logs
// and drops the event.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()

	var drainErr error
	if started {
		drainErr = d.Drain(ctx)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return drainErr
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-d.done:
		return drainErr
	case <-ctx.Done():
		return fmt.Errorf("closing dispatcher: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		subs := d.subs[ev.Topic()]
		depth := len(d.queue)
		d.mu.Unlock()

		d.metrics.SetQueueDepth(depth)
		for _, s := range subs {
			d.deliver(s, ev)
		}

		d.mu.Lock()
		d.pending--
		if d.pending == 0 {
			for _, w := range d.waiters {
				close(w)
			}
			d.waiters = nil
		}
		d.mu.Unlock()
	}
}

func (d *Dispatcher) deliver(s subscriber, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.invoke(ctx, s, ev)
	d.metrics.HandlerDone(s.name, time.Since(start))
	if err == nil {
		return
	}

	d.metrics.HandlerFailed(string(ev.Topic()), s.name)
	d.log.Error("event subscriber failed",
		zap.String("topic", string(ev.Topic())),
		zap.String("subscriber", s.name),
		zap.Error(err),
	)
}

func (d *Dispatcher) invoke(ctx context.Context, s subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(ctx, ev)
}
