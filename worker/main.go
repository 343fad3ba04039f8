package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/phpscreening/screener/internal/config"
	"github.com/phpscreening/screener/internal/dedupe"
	"github.com/phpscreening/screener/internal/elasticsearch"
	"github.com/phpscreening/screener/internal/logger"
	"github.com/phpscreening/screener/internal/models"
)

type eventIndexer interface {
	IndexEvent(ctx context.Context, ev models.ReviewEvent) error
}

type dlqWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const dlqAttempts = 5

// dlqBackoff is the first retry delay; it doubles on every attempt.
var dlqBackoff = time.Second

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = esClient.EnsureIndex(initCtx)
	if err == nil {
		err = esClient.Health(initCtx)
	}
	cancel()
	if err != nil {
		log.Error("prepare audit index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	defer reader.Close()

	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic + "_dlq",
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}
	defer dlq.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("index", cfg.ElasticsearchIndex),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !deadLetter(ctx, log, dlq, msg, err) {
				if ctx.Err() != nil {
					return
				}
				// Left uncommitted so it is redelivered after a restart.
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage decodes one review event and mirrors it into the audit index.
// Events already seen are acknowledged without indexing.
func processMessage(ctx context.Context, log *slog.Logger, idx eventIndexer, cache *dedupe.Cache, msg kafka.Message) error {
	var ev models.ReviewEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" {
		return errors.New("event without id")
	}
	if !ev.Type.Valid() {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = msg.Time.UTC()
		if msg.Time.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}
	}

	if cache.IsSeen(ev.ID) {
		log.Debug("duplicate event", slog.String("id", ev.ID))
		return nil
	}

	if err := idx.IndexEvent(ctx, ev); err != nil {
		return err
	}

	cache.MarkSeen(ev.ID)
	log.Info("indexed event",
		slog.String("id", ev.ID),
		slog.String("type", string(ev.Type)),
		slog.String("candidate", ev.CandidateID),
	)
	return nil
}

// deadLetter forwards a failed message to the DLQ with its origin and error
// attached, retrying with exponential backoff. It reports whether the write landed.
func deadLetter(ctx context.Context, log *slog.Logger, w dlqWriter, msg kafka.Message, cause error) bool {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	out := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	backoff := dlqBackoff
	for attempt := 0; attempt < dlqAttempts; attempt++ {
		err := w.WriteMessages(ctx, out)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
		backoff *= 2
	}

	log.Error("DLQ write exhausted retries",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}
