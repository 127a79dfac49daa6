package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName holds every contract log the scanner publishes.
	StreamName = "PERPSCAN_EVENTS"

	// Subject is the single subject for all event types. One subject,
	// one consumer: candle and order reductions are order-sensitive,
	// so delivery must follow the chain's block/log order.
	Subject = "perpscan.events"

	// ConsumerName is the durable pull consumer for the indexer.
	ConsumerName = "perpscan-indexer"
)

// RawEvent is the undecoded message from the stream, ready for the
// shell to parse before handing to the indexer.
type RawEvent struct {
	Data     []byte
	Received time.Time
	AckFunc  func() // Call to ACK after the event is fully applied
	NakFunc  func() // Call to NAK on failure (will be redelivered)
}

// Subscriber attaches the durable consumer and feeds raw messages into
// eventChan for the single indexing goroutine.
type Subscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumer  jetstream.ConsumeContext
}

func NewSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent) *Subscriber {
	return &Subscriber{
		js:        js,
		eventChan: eventChan,
	}
}

// Subscribe creates the durable consumer and starts delivery.
// MaxAckPending=1 keeps delivery strictly one-at-a-time so a nak'd
// event is retried before anything behind it is attempted. MaxDeliver
// is unlimited: dropping an event permanently would leave a hole in
// the derived state, so a persistent failure blocks at the failing
// event instead.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		FilterSubject: Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    -1,
		MaxAckPending: 1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", ConsumerName, err)
	}

	consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawEvent{
			Data:     msg.Data(),
			Received: time.Now(),
			AckFunc:  func() { msg.Ack() },
			NakFunc:  func() { msg.Nak() },
		}

		select {
		case s.eventChan <- raw:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", ConsumerName, err)
	}

	s.consumer = consumerContext
	log.Printf("INFO: subscribed to %s (consumer=%s)", Subject, ConsumerName)
	return nil
}

// EnsureStream creates the event stream if it doesn't exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	cfg := jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{Subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	}
	if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	log.Printf("INFO: ensured stream %s", StreamName)
	return nil
}

// Stop gracefully stops delivery.
func (s *Subscriber) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
	log.Println("INFO: stream subscriber stopped")
}

// Connect establishes a NATS connection and returns a JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
