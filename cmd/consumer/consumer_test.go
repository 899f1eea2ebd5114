package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/models"
)

// fakeWriter implements LocationWriter for tests
type fakeWriter struct {
	fail  int // number of times to fail before succeeding
	calls int
	saved []models.DriverLocation
}

func (f *fakeWriter) Upsert(ctx context.Context, d models.DriverLocation) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("redis fail")
	}
	f.saved = append(f.saved, d)
	return nil
}

func TestUpdateWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeWriter{fail: 2}
	d := models.DriverLocation{DriverID: 1, Location: models.LatLng{Lat: 1, Lng: 2}}
	start := time.Now()
	if err := updateWithRetry(context.Background(), f, d, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("expected backoff between attempts")
	}
}

func TestUpdateWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeWriter{fail: 5}
	d := models.DriverLocation{DriverID: 1}
	if err := updateWithRetry(context.Background(), f, d, 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
}

func TestDecodeLocation(t *testing.T) {
	if _, err := decodeLocation([]byte(`{"location":{"lat":1,"lng":2}}`)); !errors.Is(err, errMissingDriver) {
		t.Fatalf("expected errMissingDriver, got %v", err)
	}
	if _, err := decodeLocation([]byte(`not json`)); err == nil {
		t.Fatalf("expected json error")
	}
	d, err := decodeLocation([]byte(`{"driver_id":3,"location":{"lat":1,"lng":2}}`))
	if err != nil || d.DriverID != 3 || d.Location.Lng != 2 {
		t.Fatalf("unexpected decode %+v %v", d, err)
	}
}

// scriptedReader replays messages then blocks until ctx is done.
type scriptedReader struct{ msgs []kafka.Message }

func (s *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := s.msgs[0]
	s.msgs = s.msgs[1:]
	return m, nil
}

func TestConsumeSkipsInvalidMessages(t *testing.T) {
	r := &scriptedReader{msgs: []kafka.Message{
		{Value: []byte(`{"driver_id":1,"location":{"lat":1,"lng":1}}`)},
		{Value: []byte(`garbage`)},
		{Value: []byte(`{"driver_id":2,"location":{"lat":2,"lng":2}}`)},
	}}
	w := &fakeWriter{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	consume(ctx, r, w, config.ConsumerConfig{RetryAttempts: 1, RetryDelay: time.Millisecond}, logger)
	if len(w.saved) != 2 || w.saved[1].DriverID != 2 {
		t.Fatalf("expected two locations written, got %+v", w.saved)
	}
}
