// Package bus provides Kafka consumer-group subscriptions and acknowledged
// producers with lifecycle coordination.
package bus

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/JaimeStill/docgate/pkg/lifecycle"
)

// Message is a record delivered from a subscription.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// ErrNotDelivered marks a publish failure where the broker is known not to
// have stored the record.
var ErrNotDelivered = errors.New("record not delivered")

// Record is an outbound record. Headers are attached as Kafka record headers.
type Record struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Subscription delivers records from one topic for one consumer group.
type Subscription interface {
	// Fetch blocks until the next record is available or ctx is done.
	Fetch(ctx context.Context) (Message, error)
	// Commit advances the group offset past msg.
	Commit(ctx context.Context, msg Message) error
	// Close leaves the group and releases the connection. Safe to call more than once.
	Close() error
}

// Producer publishes records to one topic.
type Producer interface {
	// Publish blocks until the record is acknowledged by all in-sync replicas
	// or the configured attempts are exhausted. Errors wrap ErrNotDelivered
	// when the record is known not to have been stored.
	Publish(ctx context.Context, rec Record) error
	// Close flushes and releases the producer. Safe to call more than once.
	Close() error
}

// System creates subscriptions and producers that share connection settings
// and are released on shutdown.
type System interface {
	// Start registers a broker reachability check on startup and closes every subscription
	// and producer on shutdown.
	Start(lc *lifecycle.Coordinator) error
	// Subscribe joins group on topic.
	Subscribe(topic, group string) Subscription
	// Producer returns a producer bound to topic.
	Producer(topic string) Producer
}

type kafkaBus struct {
	cfg       *Config
	dialer    *kafka.Dialer
	transport *kafka.Transport
	logger    *slog.Logger

	mu      sync.Mutex
	closers []func() error
}

// New creates a bus system from the given configuration.
// No connection is made until Start, Fetch, or Publish is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	mechanism, err := newMechanism(cfg)
	if err != nil {
		return nil, err
	}

	var tlsConfig *tls.Config
	if cfg.TLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &kafkaBus{
		cfg: cfg,
		dialer: &kafka.Dialer{
			ClientID:      cfg.ClientID,
			Timeout:       cfg.DialTimeoutDuration(),
			DualStack:     true,
			TLS:           tlsConfig,
			SASLMechanism: mechanism,
		},
		transport: &kafka.Transport{
			ClientID:    cfg.ClientID,
			DialTimeout: cfg.DialTimeoutDuration(),
			TLS:         tlsConfig,
			SASL:        mechanism,
		},
		logger: logger.With("system", "bus"),
	}, nil
}

func (b *kafkaBus) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting bus system", "brokers", strings.Join(b.cfg.Brokers, ","))

	lc.OnStartup("bus", func() error {
		if err := b.ping(lc.Context()); err != nil {
			b.logger.Error("broker ping failed", "error", err)
			return err
		}

		b.logger.Info("brokers reachable")
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		b.logger.Info("closing bus clients")

		b.mu.Lock()
		closers := b.closers
		b.closers = nil
		b.mu.Unlock()

		for _, c := range closers {
			if err := c(); err != nil {
				b.logger.Error("bus client close failed", "error", err)
			}
		}

		b.logger.Info("bus clients closed")
	})

	return nil
}

func (b *kafkaBus) Subscribe(topic, group string) Subscription {
	startOffset := kafka.FirstOffset
	if b.cfg.StartOffset == StartOffsetLatest {
		startOffset = kafka.LastOffset
	}

	s := &subscription{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        b.cfg.Brokers,
			GroupID:        group,
			Topic:          topic,
			Dialer:         b.dialer,
			StartOffset:    startOffset,
			SessionTimeout: b.cfg.SessionTimeoutDuration(),
			ErrorLogger:    b.errorLogger("topic", topic, "group", group),
		}),
	}

	b.track(s.Close)
	return s
}

func (b *kafkaBus) Producer(topic string) Producer {
	p := &producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(b.cfg.Brokers...),
			Topic:        topic,
			Balancer:     NewBalancer(b.cfg.PartitionValue()),
			MaxAttempts:  b.cfg.MaxAttempts,
			BatchSize:    1,
			RequiredAcks: kafka.RequireAll,
			Transport:    b.transport,
			ErrorLogger:  b.errorLogger("topic", topic),
		},
	}

	b.track(p.Close)
	return p
}

func (b *kafkaBus) ping(ctx context.Context) error {
	var errs []error
	for _, addr := range b.cfg.Brokers {
		conn, err := b.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("dial %s: %w", addr, err))
			continue
		}
		_, err = conn.Brokers()
		conn.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("metadata %s: %w", addr, err))
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

func (b *kafkaBus) track(closer func() error) {
	b.mu.Lock()
	b.closers = append(b.closers, closer)
	b.mu.Unlock()
}

func (b *kafkaBus) errorLogger(args ...any) kafka.Logger {
	logger := b.logger.With(args...)
	return kafka.LoggerFunc(func(msg string, a ...any) {
		logger.Error(fmt.Sprintf(msg, a...))
	})
}

func newMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch strings.ToLower(cfg.SASLMechanism) {
	case "":
		return nil, nil
	case MechanismPlain:
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism: %s", cfg.SASLMechanism)
	}
}

type subscription struct {
	reader *kafka.Reader
	once   sync.Once
	err    error
}

func (s *subscription) Fetch(ctx context.Context) (Message, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
	}, nil
}

func (s *subscription) Commit(ctx context.Context, msg Message) error {
	return s.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.err = s.reader.Close()
	})
	return s.err
}

type producer struct {
	writer *kafka.Writer
	once   sync.Once
	err    error
}

func (p *producer) Publish(ctx context.Context, rec Record) error {
	msg := kafka.Message{
		Key:   []byte(rec.Key),
		Value: rec.Value,
	}
	for k, v := range rec.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if undelivered(err) {
			return fmt.Errorf("publish to %s: %w: %w", p.writer.Topic, ErrNotDelivered, err)
		}
		return fmt.Errorf("publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

// undelivered reports whether err proves the broker never stored the record.
// Timeouts and broken connections after the request was sent are ambiguous
// and report false.
func undelivered(err error) bool {
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil && !undelivered(e) {
				return false
			}
		}
		return true
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr != kafka.RequestTimedOut && kerr != kafka.NotEnoughReplicasAfterAppend
	}

	var tooLarge kafka.MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return errors.Is(err, io.ErrClosedPipe)
}

func (p *producer) Close() error {
	p.once.Do(func() {
		p.err = p.writer.Close()
	})
	return p.err
}
