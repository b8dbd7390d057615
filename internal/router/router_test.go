package router

import (
	"errors"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
)

func event(state transcriber.ResultState, channel string, texts ...string) transcriber.Event {
	alts := make([]transcriber.Alternative, 0, len(texts))
	for _, text := range texts {
		alts = append(alts, transcriber.Alternative{Transcript: text})
	}
	return transcriber.Event{Alternatives: alts, ChannelID: channel, State: state}
}

func TestRoute_PartialsThenFinalForwardsOnce(t *testing.T) {
	r, err := New("0", []string{"0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := []transcriber.Event{
		event(transcriber.StatePartial, "0", "he"),
		event(transcriber.StatePartial, "0", "hell"),
		event(transcriber.StateFinal, "0", "hello"),
	}
	var forwarded []string
	for _, ev := range events {
		if d := r.Route(ev); d.Action == ActionTranslate {
			forwarded = append(forwarded, d.Text)
		}
	}
	if len(forwarded) != 1 || forwarded[0] != "hello" {
		t.Fatalf("expected exactly one forward of hello, got %v", forwarded)
	}
}

func TestRoute_Decisions(t *testing.T) {
	cases := []struct {
		name   string
		ev     transcriber.Event
		action Action
		reason Reason
		text   string
	}{
		{"no alternatives", event(transcriber.StateFinal, "0"), ActionDiscard, ReasonNoAlternatives, ""},
		{"partial", event(transcriber.StatePartial, "0", "hi"), ActionDiscard, ReasonPartial, "hi"},
		{"unknown state is partial", event(transcriber.StateUnknown, "0", "hi"), ActionDiscard, ReasonPartial, "hi"},
		{"other channel", event(transcriber.StateFinal, "1", "hi"), ActionDiscard, ReasonOtherChannel, "hi"},
		{"blank", event(transcriber.StateFinal, "0", "  "), ActionDiscard, ReasonBlank, ""},
		{"best alternative wins", event(transcriber.StateFinal, "0", "best", "second"), ActionTranslate, ReasonNone, "best"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Route(tc.ev, "0")
			if d.Action != tc.action || d.Reason != tc.reason || d.Text != tc.text {
				t.Fatalf("unexpected decision: %+v", d)
			}
		})
	}
}

func TestNew_ValidatesPrimaryChannel(t *testing.T) {
	if _, err := New("0", []string{"1", "2"}); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
	if _, err := New(" ", []string{"0"}); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel for empty id, got %v", err)
	}
	r, err := New(" 2 ", []string{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Primary() != "2" {
		t.Fatalf("unexpected primary: %q", r.Primary())
	}
}
