package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/phpscreening/screener/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards review events to a Kafka topic from a background loop.
// Publish never blocks: when the buffer is full the event is dropped and counted.
type KafkaPublisher struct {
	writer  messageWriter
	log     *slog.Logger
	ch      chan models.ReviewEvent
	dropped atomic.Int64
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, buffer int, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}
	return newPublisher(w, buffer, logger)
}

func newPublisher(w messageWriter, buffer int, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &KafkaPublisher{
		writer: w,
		log:    logger,
		ch:     make(chan models.ReviewEvent, buffer),
	}
}

// Publish queues ev for delivery.
func (p *KafkaPublisher) Publish(ev models.ReviewEvent) {
	select {
	case p.ch <- ev:
	default:
		n := p.dropped.Add(1)
		p.log.Warn("event buffer full, dropping event",
			slog.String("type", string(ev.Type)),
			slog.Int64("dropped_total", n),
		)
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (p *KafkaPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run delivers queued events until ctx is cancelled, then flushes what is
// already buffered and closes the writer.
func (p *KafkaPublisher) Run(ctx context.Context) {
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Error("close kafka writer", slog.Any("err", err))
		}
	}()

	for {
		select {
		case ev := <-p.ch:
			p.deliver(ctx, ev)
		case <-ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *KafkaPublisher) flush() {
	for {
		select {
		case ev := <-p.ch:
			p.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) deliver(ctx context.Context, ev models.ReviewEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event", slog.Any("err", err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.CandidateID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("publish event", slog.String("id", ev.ID), slog.Any("err", err))
	}
}
