package router

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
)

var ErrUnknownChannel = errors.New("primary channel is not emitted by the stream")

type Action int

const (
	ActionDiscard Action = iota
	ActionTranslate
)

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoAlternatives Reason = "no_alternatives"
	ReasonPartial        Reason = "partial"
	ReasonOtherChannel   Reason = "other_channel"
	ReasonBlank          Reason = "blank"
)

type Decision struct {
	Action Action
	Reason Reason
	Text   string
}

// Router forwards finalized text of a single primary channel.
type Router struct {
	primary string
}

// New validates primary against the channels a session can emit.
func New(primary string, channels []string) (*Router, error) {
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return nil, fmt.Errorf("%w: empty channel id", ErrUnknownChannel)
	}
	if !slices.Contains(channels, primary) {
		return nil, fmt.Errorf("%w: %q not in %v", ErrUnknownChannel, primary, channels)
	}
	return &Router{primary: primary}, nil
}

func (r *Router) Primary() string {
	return r.primary
}

func (r *Router) Route(ev transcriber.Event) Decision {
	return Route(ev, r.primary)
}

// Route decides what happens to one event. Anything not explicitly final,
// including StateUnknown, is treated as partial.
func Route(ev transcriber.Event, primary string) Decision {
	best, ok := ev.Best()
	if !ok {
		return Decision{Action: ActionDiscard, Reason: ReasonNoAlternatives}
	}
	if !ev.IsFinal() {
		return Decision{Action: ActionDiscard, Reason: ReasonPartial, Text: best.Transcript}
	}
	if ev.ChannelID != primary {
		return Decision{Action: ActionDiscard, Reason: ReasonOtherChannel, Text: best.Transcript}
	}
	if strings.TrimSpace(best.Transcript) == "" {
		return Decision{Action: ActionDiscard, Reason: ReasonBlank}
	}
	return Decision{Action: ActionTranslate, Text: best.Transcript}
}
