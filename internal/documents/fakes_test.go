package documents_test

import (
	"context"
	"sync"

	"github.com/JaimeStill/docgate/internal/documents"
	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/lifecycle"
	"github.com/JaimeStill/docgate/pkg/storage"
)

// fakeStore is an in-memory blob store.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]bool
	lookupErr error
	sasURI    string
	sasErr    error
	lookups   []string
	policies  []string
}

func newFakeStore(names ...string) *fakeStore {
	s := &fakeStore{
		objects: make(map[string]bool),
		sasURI:  "https://acct.blob.core.windows.net/documents?sv=2021&sig=abc",
	}
	for _, n := range names {
		s.objects[n] = true
	}
	return s
}

func (s *fakeStore) Start(lc *lifecycle.Coordinator) error { return nil }

func (s *fakeStore) Lookup(ctx context.Context, name string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, name)
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if !s.objects[name] {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{URI: "https://acct.blob.core.windows.net/documents/" + name, Name: name}, nil
}

func (s *fakeStore) EnsureContainer(ctx context.Context) error { return nil }

func (s *fakeStore) ContainerSAS(ctx context.Context, policy string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, policy)
	if s.sasErr != nil {
		return "", s.sasErr
	}
	return s.sasURI, nil
}

func (s *fakeStore) Copy(ctx context.Context, name, target string) (*storage.Object, error) {
	return nil, storage.ErrNotFound
}

func (s *fakeStore) issued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.policies)
}

// fakeResponder records responses handed to it.
type fakeResponder struct {
	mu         sync.Mutex
	successes  []documents.Success
	failures   []documents.Failure
	successErr error
	failureErr error
}

func (r *fakeResponder) PublishSuccess(ctx context.Context, resp documents.Success) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.successErr != nil {
		return r.successErr
	}
	r.successes = append(r.successes, resp)
	return nil
}

func (r *fakeResponder) PublishFailure(ctx context.Context, resp documents.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failureErr != nil {
		return r.failureErr
	}
	r.failures = append(r.failures, resp)
	return nil
}

// fakeProducer records published records.
type fakeProducer struct {
	mu      sync.Mutex
	topic   string
	records []bus.Record
	err     error
	closed  int
}

func (p *fakeProducer) Publish(ctx context.Context, rec bus.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, rec)
	return nil
}

func (p *fakeProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakeProducer) published() []bus.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bus.Record(nil), p.records...)
}

// fakeSubscription replays msgs, then returns fetchErr if set or blocks
// until ctx is done.
type fakeSubscription struct {
	mu       sync.Mutex
	msgs     []bus.Message
	fetchErr error
	commits  []bus.Message
	closed   int
}

func (s *fakeSubscription) Fetch(ctx context.Context) (bus.Message, error) {
	s.mu.Lock()
	if len(s.msgs) > 0 {
		m := s.msgs[0]
		s.msgs = s.msgs[1:]
		s.mu.Unlock()
		return m, nil
	}
	err := s.fetchErr
	s.mu.Unlock()

	if ctx.Err() != nil {
		return bus.Message{}, ctx.Err()
	}
	if err != nil {
		return bus.Message{}, err
	}
	<-ctx.Done()
	return bus.Message{}, ctx.Err()
}

func (s *fakeSubscription) Commit(ctx context.Context, msg bus.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, msg)
	return nil
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSubscription) committed() []bus.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bus.Message(nil), s.commits...)
}

// fakeBus hands out fake producers and subscriptions by topic.
type fakeBus struct {
	mu        sync.Mutex
	producers map[string]*fakeProducer
	subs      []*fakeSubscription
	feed      func(i int) *fakeSubscription
}

func newFakeBus() *fakeBus {
	return &fakeBus{producers: make(map[string]*fakeProducer)}
}

func (b *fakeBus) Start(lc *lifecycle.Coordinator) error { return nil }

func (b *fakeBus) Subscribe(topic, group string) bus.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &fakeSubscription{}
	if b.feed != nil {
		sub = b.feed(len(b.subs))
	}
	b.subs = append(b.subs, sub)
	return sub
}

func (b *fakeBus) Producer(topic string) bus.Producer {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.producers[topic]
	if !ok {
		p = &fakeProducer{topic: topic}
		b.producers[topic] = p
	}
	return p
}

func (b *fakeBus) producer(topic string) *fakeProducer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.producers[topic]
}

// handlerFunc adapts a function to documents.RequestHandler.
type handlerFunc func(ctx context.Context, req documents.Request) error

func (f handlerFunc) Handle(ctx context.Context, req documents.Request) error {
	return f(ctx, req)
}
