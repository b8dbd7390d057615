package sink

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/repository"
)

type recordingSink struct {
	segments []Segment
	err      error
	closed   bool
}

func (r *recordingSink) WriteSegment(_ context.Context, seg Segment) error {
	r.segments = append(r.segments, seg)
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestFanout_DeliversToAllSinksDespiteFailure(t *testing.T) {
	failing := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}
	f := NewFanout().Add("file", failing).Add("redis", ok).Add("nil", nil)

	if f.Len() != 2 {
		t.Fatalf("expected nil sinks to be skipped, got %d", f.Len())
	}
	err := f.WriteSegment(context.Background(), Segment{SessionID: "s", Index: 1, Transcript: "hello"})
	if err == nil || !strings.Contains(err.Error(), "file") {
		t.Fatalf("expected named error from failing sink, got %v", err)
	}
	if len(ok.segments) != 1 || len(failing.segments) != 1 {
		t.Fatalf("expected delivery to every sink: %d, %d", len(ok.segments), len(failing.segments))
	}
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !ok.closed || !failing.closed {
		t.Fatal("expected sinks to be closed")
	}
}

type mockTranscriptRepo struct {
	inputs []repository.InsertSegmentInput
}

func (m *mockTranscriptRepo) InsertSegment(_ context.Context, input repository.InsertSegmentInput) error {
	m.inputs = append(m.inputs, input)
	return nil
}

func (m *mockTranscriptRepo) ListSegmentsBySessionID(context.Context, string) ([]repository.TranscriptSegment, error) {
	return nil, nil
}

func TestRepositorySink_MapsSegment(t *testing.T) {
	repo := &mockTranscriptRepo{}
	s := NewRepositorySink(repo)
	if err := s.WriteSegment(context.Background(), Segment{
		SessionID: "s", Index: 3, ChannelID: "0", Transcript: "hello", Translation: "你好", Translated: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.inputs) != 1 || repo.inputs[0].SegmentIndex != 3 || repo.inputs[0].Translation != "你好" || !repo.inputs[0].Translated {
		t.Fatalf("unexpected insert: %+v", repo.inputs)
	}
}

type mockDiscord struct {
	enabled  bool
	messages []string
}

func (m *mockDiscord) Connect(context.Context) error                        { return nil }
func (m *mockDiscord) Close() error                                         { return nil }
func (m *mockDiscord) Enabled() bool                                        { return m.enabled }
func (m *mockDiscord) ChannelID() string                                    { return "text-1" }
func (m *mockDiscord) SendChannelMessageWithFile(discord.FileMessage) error { return nil }
func (m *mockDiscord) ResolveChannelName(id string) string                  { return id }
func (m *mockDiscord) SendChannelMessage(_, content string) error {
	m.messages = append(m.messages, content)
	return nil
}

func TestDiscordSink(t *testing.T) {
	dc := &mockDiscord{}
	s := NewDiscordSink(dc)
	if err := s.WriteSegment(context.Background(), Segment{Transcript: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dc.messages) != 0 {
		t.Fatal("disabled client must not receive messages")
	}

	dc.enabled = true
	_ = s.WriteSegment(context.Background(), Segment{Transcript: "hello", Translation: "你好", Translated: true})
	_ = s.WriteSegment(context.Background(), Segment{Transcript: "bye"})
	if len(dc.messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(dc.messages))
	}
	if !strings.Contains(dc.messages[0], "你好") {
		t.Fatalf("expected translation in message: %s", dc.messages[0])
	}
	if !strings.Contains(dc.messages[1], "translation unavailable") {
		t.Fatalf("expected unavailable marker: %s", dc.messages[1])
	}
}
