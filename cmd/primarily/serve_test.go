package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

type countingCloser struct {
	closes atomic.Int32
}

func (c *countingCloser) Close(context.Context) error {
	c.closes.Add(1)
	return nil
}

func TestServeFlushesEventsWhenListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer taken.Close()

	log := zaptest.NewLogger(t)
	dispatcher := events.New(log, metrics.New("test"), events.Options{HandlerTimeout: time.Second})
	var delivered atomic.Int32
	if err := dispatcher.Subscribe(events.TopicItemCreated, "count", func(context.Context, events.Event) error {
		delivered.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	dispatcher.Start()
	dispatcher.Publish(events.ItemCreated{
		Header: events.NewHeader(events.Actor{UserID: model.NewID()}),
		Item:   &model.Item{Name: "queued"},
	})

	server := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
	if err := serve(log, server, dispatcher, make(chan os.Signal), time.Second); err == nil {
		t.Fatal("expected an error when the address is in use")
	}

	if n := delivered.Load(); n != 1 {
		t.Errorf("expected the queued event to be delivered before returning, got %d", n)
	}
	dispatcher.Publish(events.ItemCreated{
		Header: events.NewHeader(events.Actor{UserID: model.NewID()}),
		Item:   &model.Item{Name: "late"},
	})
	if n := delivered.Load(); n != 1 {
		t.Errorf("expected the dispatcher to be closed, got %d deliveries", n)
	}
}

func TestServeStopsOnSignal(t *testing.T) {
	closer := &countingCloser{}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	if err := serve(zaptest.NewLogger(t), server, closer, quit, time.Second); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if n := closer.closes.Load(); n != 1 {
		t.Errorf("expected events to be closed once, got %d", n)
	}
}
