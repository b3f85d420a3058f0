// Package kafka publishes signed ledger events to a Kafka topic.
package kafka

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
	"github.com/eigerco/fraudledger/internal/events"
)

const (
	HeaderKind      = "event-kind"
	HeaderSeq       = "event-seq"
	HeaderSignature = "signature"
	HeaderSigner    = "signer"
)

var (
	ErrClosed        = errors.New("kafka publisher: closed")
	ErrMissingHeader = errors.New("kafka publisher: missing header")
	ErrUnknownSigner = errors.New("kafka publisher: unexpected signer")
)

// NewSaramaConfig returns producer settings that wait for every in-sync
// replica, so an acknowledged event is not lost on leader failover.
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "fraudledger"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// Publisher is an events.Sink writing to Kafka.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	signer   *events.Signer
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ events.Sink = (*Publisher)(nil)

// Dial connects to brokers and returns a publisher for topic.
func Dial(brokers []string, topic string, signer *events.Signer, log zerolog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers configured")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: failed to create: %w", err)
	}
	log.Info().Int("brokers", len(brokers)).Str("topic", topic).Msg("kafka publisher created")
	return NewPublisher(producer, topic, signer, log), nil
}

func NewPublisher(producer sarama.SyncProducer, topic string, signer *events.Signer, log zerolog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		signer:   signer,
		log:      log,
	}
}

// Publish sends e, signed, keyed by report so that the events of one report
// land on one partition in order.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, sig, err := p.signer.Sign(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(e.ReportID, 10)),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderKind), Value: []byte(e.Kind.String())},
			{Key: []byte(HeaderSeq), Value: []byte(strconv.FormatUint(e.Seq, 10))},
			{Key: []byte(HeaderSignature), Value: sig},
			{Key: []byte(HeaderSigner), Value: p.signer.PublicKey()},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka publisher: send event %d: %w", e.Seq, err)
	}
	p.log.Debug().
		Uint64("seq", e.Seq).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.producer.Close()
}

// Decode verifies a consumed message against the expected node key and
// returns the event it carries.
func Decode(msg *sarama.ConsumerMessage, signer ed25519.PublicKey) (events.Event, error) {
	header := func(key string) []byte {
		for _, h := range msg.Headers {
			if h != nil && string(h.Key) == key {
				return h.Value
			}
		}
		return nil
	}
	sig := header(HeaderSignature)
	if sig == nil {
		return events.Event{}, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderSignature)
	}
	if pub := header(HeaderSigner); !bytes.Equal(pub, signer) {
		return events.Event{}, ErrUnknownSigner
	}
	return events.Verify(signer, msg.Value, sig)
}
