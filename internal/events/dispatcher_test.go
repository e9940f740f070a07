package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func newTestDispatcher(t *testing.T, timeout time.Duration) *Dispatcher {
	t.Helper()
	d := New(zaptest.NewLogger(t), metrics.New("test"), Options{HandlerTimeout: timeout})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		d.Close(ctx)
	})
	return d
}

func drain(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func itemEvent(name string) ItemCreated {
	return ItemCreated{Header: NewHeader(Actor{UserID: model.NewID()}), Item: &model.Item{Name: name}}
}

func TestDeliversInPublishOrder(t *testing.T) {
	d := newTestDispatcher(t, time.Second)

	var mu sync.Mutex
	var got []string
	d.Subscribe(TopicItemCreated, "recorder", func(ctx context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.(ItemCreated).Item.Name)
		return nil
	})
	d.Start()

	for _, name := range []string{"a", "b", "c", "d"} {
		d.Publish(itemEvent(name))
	}
	drain(t, d)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFailingSubscriberDoesNotBlockOthers(t *testing.T) {
	d := newTestDispatcher(t, time.Second)

	var mu sync.Mutex
	calls := map[string]int{}
	count := func(name string) {
		mu.Lock()
		calls[name]++
		mu.Unlock()
	}

	d.Subscribe(TopicItemCreated, "erroring", func(ctx context.Context, ev Event) error {
		count("erroring")
		return errors.New("boom")
	})
	d.Subscribe(TopicItemCreated, "panicking", func(ctx context.Context, ev Event) error {
		count("panicking")
		panic("kaboom")
	})
	d.Subscribe(TopicItemCreated, "healthy", func(ctx context.Context, ev Event) error {
		count("healthy")
		return nil
	})
	d.Start()

	d.Publish(itemEvent("x"))
	d.Publish(itemEvent("y"))
	drain(t, d)

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"erroring", "panicking", "healthy"} {
		if calls[name] != 2 {
			t.Errorf("%s: expected 2 calls, got %d", name, calls[name])
		}
	}
}

func TestHandlerContextIsDetachedWithTimeout(t *testing.T) {
	d := newTestDispatcher(t, 50*time.Millisecond)

	result := make(chan error, 1)
	d.Subscribe(TopicItemCreated, "slow", func(ctx context.Context, ev Event) error {
		if _, ok := ctx.Deadline(); !ok {
			result <- errors.New("expected a deadline")
			return nil
		}
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})
	d.Start()

	d.Publish(itemEvent("slow"))
	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never finished")
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	d := newTestDispatcher(t, time.Second)
	d.Subscribe(TopicItemCreated, "only-items", func(ctx context.Context, ev Event) error { return nil })
	d.Start()

	for range 100 {
		d.Publish(SystemAlert{Header: NewHeader(Actor{}), Title: "nobody listens"})
	}

	d.mu.Lock()
	queued, pending := len(d.queue), d.pending
	d.mu.Unlock()
	if queued != 0 || pending != 0 {
		t.Errorf("expected nothing queued, got queue %d pending %d", queued, pending)
	}
	drain(t, d)
}

func TestSubscribeAfterStartFails(t *testing.T) {
	d := newTestDispatcher(t, time.Second)
	d.Start()
	err := d.Subscribe(TopicItemCreated, "late", func(ctx context.Context, ev Event) error { return nil })
	if !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted, got %v", err)
	}
}

func TestPublishBeforeStartIsDelivered(t *testing.T) {
	d := newTestDispatcher(t, time.Second)

	delivered := make(chan struct{}, 1)
	d.SubscribeAll("all", func(ctx context.Context, ev Event) error {
		delivered <- struct{}{}
		return nil
	})
	d.Publish(itemEvent("early"))
	d.Start()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event published before Start was not delivered")
	}
}

func TestCloseDrainsAndRejects(t *testing.T) {
	d := New(zaptest.NewLogger(t), nil, Options{})

	var mu sync.Mutex
	n := 0
	d.Subscribe(TopicItemCreated, "counter", func(ctx context.Context, ev Event) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		n++
		mu.Unlock()
		return nil
	})
	d.Start()
	for range 10 {
		d.Publish(itemEvent("x"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	if n != 10 {
		t.Errorf("expected 10 deliveries before close, got %d", n)
	}
	mu.Unlock()

	d.Publish(itemEvent("late"))
	mu.Lock()
	defer mu.Unlock()
	if n != 10 {
		t.Errorf("expected no delivery after close, got %d", n)
	}
}

func TestEventTopics(t *testing.T) {
	events := []Event{
		ItemCreated{}, ItemUpdated{}, ItemDeleted{}, QuantityChanged{},
		FolderCreated{}, FolderUpdated{}, FolderDeleted{}, BulkOperation{},
		SystemAlert{}, TagChanged{}, UserEvent{}, SettingsChanged{},
	}
	seen := map[Topic]bool{}
	for _, ev := range events {
		seen[ev.Topic()] = true
	}
	if len(seen) != len(AllTopics) {
		t.Errorf("expected %d distinct topics, got %d", len(AllTopics), len(seen))
	}
	for _, topic := range AllTopics {
		if !seen[topic] {
			t.Errorf("no event variant for topic %s", topic)
		}
	}
}
