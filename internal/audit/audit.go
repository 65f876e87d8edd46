// Package audit provides a strictly non-authoritative, best-effort record
// of job lifecycle events. It exists only for historical reporting; nothing
// in internal/engine ever reads it back, so disabling it (the default)
// changes no wire-visible behavior.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// EventKind identifies a point in a job's lifecycle.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventRemoved   EventKind = "removed"
	EventCancelled EventKind = "cancelled"
)

// Event is one lifecycle transition for one job.
type Event struct {
	JobID        string
	Command      string
	Kind         EventKind
	Timestamp    time.Time
	ConnectionID string
	OutputBytes  int
}

// Sink receives lifecycle events. A nil Sink (the default when the audit
// pipeline is disabled) is handled by callers with a plain nil check,
// so Publish is never called on a disabled sink.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

func decodeEvent(data []byte, event *Event) error {
	return json.Unmarshal(data, event)
}

// CompositeSink publishes to Kafka and, if configured, mirrors the event's
// status into the optional Redis cache. The cache write is best-effort: a
// failure there never fails Publish.
type CompositeSink struct {
	Publisher *Publisher
	Cache     *StatusCache
}

// Publish implements Sink.
func (s *CompositeSink) Publish(ctx context.Context, event Event) error {
	if err := s.Publisher.Publish(ctx, event); err != nil {
		return err
	}
	if s.Cache != nil {
		_ = s.Cache.SetStatus(ctx, event.JobID, event.Kind)
	}
	return nil
}

// Close closes the publisher and, if present, the cache.
func (s *CompositeSink) Close() error {
	err := s.Publisher.Close()
	if s.Cache != nil {
		if cacheErr := s.Cache.Close(); cacheErr != nil && err == nil {
			err = cacheErr
		}
	}
	return err
}

var _ Sink = (*CompositeSink)(nil)
