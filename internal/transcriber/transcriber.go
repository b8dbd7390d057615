package transcriber

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStreamProtocol reports a violation of the send/close ordering:
	// the inbound side ended before end-of-input, or audio was sent after it.
	ErrStreamProtocol = errors.New("transcript stream protocol violation")
	// ErrTransport reports a connection-level failure. It is fatal to the session.
	ErrTransport = errors.New("transcript stream transport failure")
)

// ResultState is the finality of an event. The zero value is unknown and
// must be handled as partial.
type ResultState int

const (
	StateUnknown ResultState = iota
	StatePartial
	StateFinal
)

func (s ResultState) String() string {
	switch s {
	case StatePartial:
		return "partial"
	case StateFinal:
		return "final"
	default:
		return "unknown"
	}
}

type Alternative struct {
	Transcript string
	Confidence float32
}

// Event is one recognition result. Alternatives are ranked best-first.
type Event struct {
	Alternatives []Alternative
	ChannelID    string
	State        ResultState
	ReceivedAt   time.Time
}

func (e Event) IsFinal() bool {
	return e.State == StateFinal
}

func (e Event) Best() (Alternative, bool) {
	if len(e.Alternatives) == 0 {
		return Alternative{}, false
	}
	return e.Alternatives[0], true
}

type StreamConfig struct {
	LanguageCode    string
	SampleRateHertz int
	ChannelCount    int
}

// Stream is one bidirectional recognition session.
//
// Send and CloseSend belong to the producer goroutine, Recv to the consumer
// goroutine. Recv returns io.EOF only when the service closed the stream after
// CloseSend; any earlier close is ErrStreamProtocol.
type Stream interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (Event, error)
	Channels() []string
	Close() error
}

type Transcriber interface {
	StartStream(ctx context.Context, sessionID string, cfg StreamConfig) (Stream, error)
}
