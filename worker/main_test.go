package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/phpscreening/screener/internal/dedupe"
	"github.com/phpscreening/screener/internal/models"
)

type stubIndexer struct {
	events []models.ReviewEvent
	err    error
}

func (s *stubIndexer) IndexEvent(_ context.Context, ev models.ReviewEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

type flakyWriter struct {
	failures int
	written  []kafka.Message
}

func (w *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("broker unavailable")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventMessage(t *testing.T, ev models.ReviewEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessMessageIndexesEventOnce(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	msg := eventMessage(t, models.ReviewEvent{
		ID: "evt-1", Type: models.EventJudged, CandidateID: "PHP-001",
		Status: models.StatusKept, PreviousStatus: models.StatusPending, Timestamp: ts,
	})

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.events, 1)
	require.Equal(t, "PHP-001", idx.events[0].CandidateID)
	require.Equal(t, models.StatusKept, idx.events[0].Status)
	require.True(t, ts.Equal(idx.events[0].Timestamp))

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.events, 1)
}

func TestProcessMessageFillsTimestamp(t *testing.T) {
	idx := &stubIndexer{}
	msg := eventMessage(t, models.ReviewEvent{ID: "evt-2", Type: models.EventExported, Count: 3})
	msg.Time = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, dedupe.NewCache(10, time.Hour), msg))
	require.Equal(t, msg.Time, idx.events[0].Timestamp)
}

func TestProcessMessageRejectsInvalid(t *testing.T) {
	cache := dedupe.NewCache(10, time.Hour)
	idx := &stubIndexer{}

	tests := []struct {
		name string
		msg  kafka.Message
	}{
		{name: "not json", msg: kafka.Message{Value: []byte("{")}},
		{name: "missing id", msg: eventMessage(t, models.ReviewEvent{Type: models.EventJudged})},
		{name: "unknown type", msg: eventMessage(t, models.ReviewEvent{ID: "x", Type: "deleted"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, processMessage(context.Background(), discardLogger(), idx, cache, tt.msg))
		})
	}
	require.Empty(t, idx.events)
}

func TestProcessMessageIndexFailureNotCached(t *testing.T) {
	cache := dedupe.NewCache(10, time.Hour)
	idx := &stubIndexer{err: errors.New("es down")}
	msg := eventMessage(t, models.ReviewEvent{ID: "evt-3", Type: models.EventUndone})

	require.Error(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.False(t, cache.IsSeen("evt-3"))

	idx.err = nil
	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.events, 1)
}

func TestDeadLetterRetries(t *testing.T) {
	dlqBackoff = time.Millisecond
	t.Cleanup(func() { dlqBackoff = time.Second })

	w := &flakyWriter{failures: 2}
	msg := kafka.Message{Partition: 3, Offset: 42, Value: []byte("{")}

	require.True(t, deadLetter(context.Background(), discardLogger(), w, msg, errors.New("decode event")))
	require.Len(t, w.written, 1)

	headers := map[string]string{}
	for _, h := range w.written[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "3", headers["original_partition"])
	require.Equal(t, "42", headers["original_offset"])
	require.Equal(t, "decode event", headers["error"])
}

func TestDeadLetterGivesUp(t *testing.T) {
	dlqBackoff = time.Millisecond
	t.Cleanup(func() { dlqBackoff = time.Second })

	w := &flakyWriter{failures: dlqAttempts}
	require.False(t, deadLetter(context.Background(), discardLogger(), w, kafka.Message{}, errors.New("boom")))
	require.Empty(t, w.written)
}
