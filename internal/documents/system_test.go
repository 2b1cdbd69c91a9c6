package documents_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docgate/internal/documents"
	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/lifecycle"
)

func gatewayConfig() documents.Config {
	return documents.Config{
		InboundTopic: "DocumentRequestInbound",
		SuccessTopic: "DocumentRequestOutbound",
		ErrorTopic:   "DocumentRequestError",
		GroupID:      "docgate",
		Consumers:    1,
		Handler:      documents.HandlerOptions{OnMissing: documents.Deny},
	}
}

func waitForRecords(t *testing.T, p *fakeProducer, want int) []bus.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if recs := p.published(); len(recs) >= want {
			return recs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d records on %s", want, p.topic)
	return nil
}

func TestGatewayRoutesResponses(t *testing.T) {
	found := documents.Request{CorrelationID: uuid.New(), FileName: "report.pdf"}
	missing := documents.Request{CorrelationID: uuid.New(), FileName: "missing.pdf"}

	b := newFakeBus()
	sub := &fakeSubscription{
		msgs: []bus.Message{
			requestMessage(t, 0, found),
			requestMessage(t, 1, missing),
		},
	}
	b.feed = func(int) *fakeSubscription { return sub }

	gw := documents.New(gatewayConfig(), newFakeStore("report.pdf"), b, discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	successes := waitForRecords(t, b.producer("DocumentRequestOutbound"), 1)
	failures := waitForRecords(t, b.producer("DocumentRequestError"), 1)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var s documents.Success
	if err := json.Unmarshal(successes[0].Value, &s); err != nil {
		t.Fatalf("decode success: %v", err)
	}
	if s.CorrelationID != found.CorrelationID || s.AccessURI == nil {
		t.Errorf("success: got %+v, want credential for %s", s, found.CorrelationID)
	}

	var f documents.Failure
	if err := json.Unmarshal(failures[0].Value, &f); err != nil {
		t.Fatalf("decode failure: %v", err)
	}
	if f.CorrelationID != missing.CorrelationID {
		t.Errorf("failure: got %s, want %s", f.CorrelationID, missing.CorrelationID)
	}

	if n := len(sub.committed()); n != 2 {
		t.Errorf("commits: got %d, want 2", n)
	}
}

func TestGatewayConsumerCount(t *testing.T) {
	b := newFakeBus()
	cfg := gatewayConfig()
	cfg.Consumers = 3

	documents.New(cfg, newFakeStore(), b, discard)

	if len(b.subs) != 3 {
		t.Errorf("subscriptions: got %d, want 3", len(b.subs))
	}

	cfg.Consumers = 0
	b = newFakeBus()
	documents.New(cfg, newFakeStore(), b, discard)
	if len(b.subs) != 1 {
		t.Errorf("subscriptions with zero consumers: got %d, want 1", len(b.subs))
	}
}

func TestGatewayStopsOnConsumerFailure(t *testing.T) {
	errFetch := errors.New("group coordinator unavailable")

	b := newFakeBus()
	b.feed = func(i int) *fakeSubscription {
		if i == 0 {
			return &fakeSubscription{fetchErr: errFetch}
		}
		return &fakeSubscription{}
	}

	cfg := gatewayConfig()
	cfg.Consumers = 2
	gw := documents.New(cfg, newFakeStore(), b, discard)

	done := make(chan error, 1)
	go func() { done <- gw.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, errFetch) {
			t.Fatalf("Run() error = %v, want %v", err, errFetch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gateway did not stop after consumer failure")
	}
}

func TestGatewayShutdownClosesConsumers(t *testing.T) {
	b := newFakeBus()
	cfg := gatewayConfig()
	cfg.Consumers = 2
	gw := documents.New(cfg, newFakeStore(), b, discard)

	lc := lifecycle.New()
	if err := gw.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}
	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for i, sub := range b.subs {
		sub.mu.Lock()
		closed := sub.closed
		sub.mu.Unlock()
		if closed != 1 {
			t.Errorf("subscription %d closes: got %d, want 1", i, closed)
		}
	}
}
