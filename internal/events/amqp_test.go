package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
			go func() { _, _ = io.Copy(io.Discard, c) }()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestAMQPPublishHonoursDeadline(t *testing.T) {
	p := NewAMQPPublisher(silentBroker(t), "", quietLogger())
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	begin := time.Now()
	err := p.PublishConfirmed(ctx, sampleReservation())
	if err == nil {
		t.Fatalf("expected an error from a silent broker")
	}
	if took := time.Since(begin); took > 2*time.Second {
		t.Fatalf("publish took %v, want it bounded by the context deadline", took)
	}
}

func TestAMQPPublishDoesNotQueueBehindDial(t *testing.T) {
	p := NewAMQPPublisher(silentBroker(t), "", quietLogger())
	defer p.Close()

	first := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		first <- p.PublishConfirmed(ctx, sampleReservation())
	}()

	deadline := time.Now().Add(time.Second)
	for {
		p.mu.Lock()
		dialing := p.dialing
		p.mu.Unlock()
		if dialing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first publish never started dialling")
		}
		time.Sleep(5 * time.Millisecond)
	}

	begin := time.Now()
	err := p.PublishConfirmed(context.Background(), sampleReservation())
	if !errors.Is(err, errReconnecting) {
		t.Fatalf("second publish err = %v, want errReconnecting", err)
	}
	if took := time.Since(begin); took > 100*time.Millisecond {
		t.Fatalf("second publish waited %v behind the dial", took)
	}
	if err := <-first; err == nil {
		t.Fatalf("first publish should fail against a silent broker")
	}
}
