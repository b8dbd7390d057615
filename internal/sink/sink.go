package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Segment is a finalized primary-channel utterance handed to collaborators.
// Translation is empty and Translated is false when the translation call failed.
type Segment struct {
	SessionID           string        `json:"session_id"`
	Index               int           `json:"index"`
	ChannelID           string        `json:"channel_id"`
	Transcript          string        `json:"transcript"`
	Translation         string        `json:"translation"`
	Translated          bool          `json:"translated"`
	SourceLanguage      string        `json:"source_language"`
	TargetLanguage      string        `json:"target_language"`
	Mode                string        `json:"mode"`
	SpokenAt            time.Time     `json:"spoken_at"`
	Latency             time.Duration `json:"latency_ns"`
	TranslationDuration time.Duration `json:"translation_duration_ns"`
}

type Sink interface {
	WriteSegment(ctx context.Context, seg Segment) error
}

type namedSink struct {
	name string
	sink Sink
}

// Fanout delivers each segment to every registered sink. A failing sink is
// logged and does not prevent delivery to the others.
type Fanout struct {
	sinks []namedSink
}

func NewFanout() *Fanout {
	return &Fanout{}
}

func (f *Fanout) Add(name string, s Sink) *Fanout {
	if s != nil {
		f.sinks = append(f.sinks, namedSink{name: name, sink: s})
	}
	return f
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) WriteSegment(ctx context.Context, seg Segment) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.sink.WriteSegment(ctx, seg); err != nil {
			slog.Error("sink write failed", "sink", s.name, "session_id", seg.SessionID, "segment_index", seg.Index, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.sink.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
