package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
	"github.com/eigerco/fraudledger/internal/events"
	"github.com/eigerco/fraudledger/internal/record"
)

func newSigner(t *testing.T) *events.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return events.NewSigner(priv)
}

func sampleEvent() events.Event {
	e := events.NewValidated(record.Validation{
		ReportID:  12,
		Validator: crypto.MustParseAddress("0x00000000000000000000000000000000000000b1"),
		Vote:      record.VoteDispute,
		Stake:     10_000_000,
		CastAt:    1_700_000_000,
	})
	e.Seq = 40
	return e
}

// toConsumed turns a produced message into what a consumer would read.
func toConsumed(t *testing.T, msg *sarama.ProducerMessage) *sarama.ConsumerMessage {
	t.Helper()
	value, err := msg.Value.Encode()
	require.NoError(t, err)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	out := &sarama.ConsumerMessage{Topic: msg.Topic, Key: key, Value: value}
	for i := range msg.Headers {
		out.Headers = append(out.Headers, &msg.Headers[i])
	}
	return out
}

func TestPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewSaramaConfig())
	signer := newSigner(t)
	p := NewPublisher(producer, "fraudledger.events", signer, zerolog.Nop())

	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NotNil(t, sent)
	assert.Equal(t, "fraudledger.events", sent.Topic)

	consumed := toConsumed(t, sent)
	assert.Equal(t, []byte("12"), consumed.Key)

	e, err := Decode(consumed, signer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), e)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), sampleEvent()), ErrClosed)
}

func TestPublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewSaramaConfig())
	defer producer.Close()
	p := NewPublisher(producer, "fraudledger.events", newSigner(t), zerolog.Nop())

	boom := errors.New("leader not available")
	producer.ExpectSendMessageAndFail(boom)

	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
}

func TestPublishCanceled(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewSaramaConfig())
	defer producer.Close()
	p := NewPublisher(producer, "fraudledger.events", newSigner(t), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, sampleEvent()), context.Canceled)
}

func TestDecodeRejects(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewSaramaConfig())
	defer producer.Close()
	signer := newSigner(t)
	p := NewPublisher(producer, "t", signer, zerolog.Nop())

	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	_, err := Decode(toConsumed(t, sent), newSigner(t).PublicKey())
	assert.ErrorIs(t, err, ErrUnknownSigner)

	tampered := toConsumed(t, sent)
	tampered.Value[len(tampered.Value)-1] ^= 1
	_, err = Decode(tampered, signer.PublicKey())
	assert.ErrorIs(t, err, events.ErrBadSignature)

	unsigned := toConsumed(t, sent)
	unsigned.Headers = nil
	_, err = Decode(unsigned, signer.PublicKey())
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestDialWithoutBrokers(t *testing.T) {
	_, err := Dial(nil, "t", newSigner(t), zerolog.Nop())
	assert.Error(t, err)
}
