package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/latency"
	"github.com/foxseedlab/tsuyaku/internal/router"
	"github.com/foxseedlab/tsuyaku/internal/sink"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

// liveReader yields a fixed number of frames, then either fails or blocks
// like a live device until interrupted.
type liveReader struct {
	frames      int
	fail        error
	interrupted chan struct{}
	once        sync.Once
	closes      atomic.Int32
}

func newLiveReader(frames int) *liveReader {
	return &liveReader{frames: frames, interrupted: make(chan struct{})}
}

func (r *liveReader) ReadFrame(_ []byte) error {
	if r.frames > 0 {
		r.frames--
		return nil
	}
	if r.fail != nil {
		return r.fail
	}
	<-r.interrupted
	return io.EOF
}

func (r *liveReader) Interrupt() {
	r.once.Do(func() { close(r.interrupted) })
}

func (r *liveReader) Close() error {
	r.closes.Add(1)
	r.Interrupt()
	return nil
}

type mockDevice struct {
	reader *liveReader
	err    error
}

func (d *mockDevice) Open(_ audio.Format) (audio.Reader, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.reader, nil
}

// mockStream replays scripted events. Once they are exhausted it fails with
// recvErr, or waits for end-of-input and ends normally.
type mockStream struct {
	ctx       context.Context
	events    chan transcriber.Event
	recvErr   error
	channels  []string
	endSent   chan struct{}
	endOnce   sync.Once
	mu        sync.Mutex
	sent      int
	closeSend int
	closes    int
}

func newMockStream(recvErr error, events ...transcriber.Event) *mockStream {
	ch := make(chan transcriber.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &mockStream{events: ch, recvErr: recvErr, channels: []string{"0"}, endSent: make(chan struct{})}
}

func (s *mockStream) Send(_ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return nil
}

func (s *mockStream) CloseSend() error {
	s.mu.Lock()
	s.closeSend++
	s.mu.Unlock()
	s.endOnce.Do(func() { close(s.endSent) })
	return nil
}

func (s *mockStream) Recv() (transcriber.Event, error) {
	select {
	case ev, ok := <-s.events:
		if ok {
			return ev, nil
		}
	case <-s.ctx.Done():
		return transcriber.Event{}, context.Canceled
	}
	if s.recvErr != nil {
		return transcriber.Event{}, s.recvErr
	}
	select {
	case <-s.endSent:
		return transcriber.Event{}, io.EOF
	case <-s.ctx.Done():
		return transcriber.Event{}, context.Canceled
	}
}

func (s *mockStream) Channels() []string { return s.channels }

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

type mockTranscriber struct {
	stream *mockStream
	err    error
	calls  int
}

func (m *mockTranscriber) StartStream(ctx context.Context, _ string, _ transcriber.StreamConfig) (transcriber.Stream, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.stream.ctx = ctx
	return m.stream, nil
}

type mockDispatcher struct {
	mu       sync.Mutex
	texts    []string
	states   []State
	err      error
	onCall   func()
	pipeline *Pipeline
}

func (d *mockDispatcher) Translate(_ context.Context, req translator.Request, mode translator.Mode) (translator.Result, error) {
	d.mu.Lock()
	d.texts = append(d.texts, req.Text)
	if d.pipeline != nil {
		d.states = append(d.states, d.pipeline.State())
	}
	d.mu.Unlock()
	if d.onCall != nil {
		d.onCall()
	}
	res := translator.Result{Text: req.Text, Mode: mode, Attempts: 1, Duration: time.Millisecond}
	if d.err != nil {
		return res, d.err
	}
	res.Translated = "[" + req.TargetLanguage + "] " + req.Text
	return res, nil
}

type mockSink struct {
	mu       sync.Mutex
	segments []sink.Segment
	onWrite  func(sink.Segment)
}

func (s *mockSink) WriteSegment(_ context.Context, seg sink.Segment) error {
	s.mu.Lock()
	s.segments = append(s.segments, seg)
	s.mu.Unlock()
	if s.onWrite != nil {
		s.onWrite(seg)
	}
	return nil
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		SampleRate:         16000,
		Channels:           1,
		FrameSamples:       160,
		SourceLanguage:     "en",
		TargetLanguage:     "zh",
		TranscribeLanguage: "en-US",
		PrimaryChannel:     "0",
		Mode:               translator.ModeService,
	}
}

func ev(state transcriber.ResultState, channel, text string) transcriber.Event {
	return transcriber.Event{
		Alternatives: []transcriber.Alternative{{Transcript: text}},
		ChannelID:    channel,
		State:        state,
		ReceivedAt:   time.Now(),
	}
}

func runWithTimeout(t *testing.T, ctx context.Context, p *Pipeline) (RunResult, error) {
	t.Helper()
	type out struct {
		res RunResult
		err error
	}
	done := make(chan out, 1)
	go func() {
		res, err := p.Run(ctx, "session-1")
		done <- out{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
		return RunResult{}, nil
	}
}

func TestRun_ForwardsFinalOnceAndClosesAfterStop(t *testing.T) {
	reader := newLiveReader(3)
	stream := newMockStream(nil,
		ev(transcriber.StatePartial, "0", "he"),
		ev(transcriber.StatePartial, "0", "hell"),
		ev(transcriber.StateFinal, "0", "hello"),
	)
	dispatcher := &mockDispatcher{}
	out := &mockSink{}
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, dispatcher, out, latency.NewTracker(1000))
	dispatcher.pipeline = p
	out.onWrite = func(sink.Segment) { p.Stop() }

	res, err := runWithTimeout(t, context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateClosed || p.State() != StateClosed {
		t.Fatalf("expected closed, got %v", res.State)
	}
	if len(dispatcher.texts) != 1 || dispatcher.texts[0] != "hello" {
		t.Fatalf("expected exactly one dispatch of hello, got %v", dispatcher.texts)
	}
	if len(out.segments) != 1 || out.segments[0].Translation != "[zh] hello" || !out.segments[0].Translated {
		t.Fatalf("unexpected segments: %+v", out.segments)
	}
	if res.Latency.Events != 3 || res.Latency.Translations != 1 {
		t.Fatalf("unexpected latency summary: %+v", res.Latency)
	}
	if !res.StopRequested || res.Segments != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if stream.closeSend != 1 || stream.closes != 1 || reader.closes.Load() != 1 {
		t.Fatalf("expected single release: close_send=%d closes=%d reader=%d", stream.closeSend, stream.closes, reader.closes.Load())
	}
}

func TestRun_TranslationFailureKeepsStreaming(t *testing.T) {
	reader := newLiveReader(1)
	stream := newMockStream(nil, ev(transcriber.StateFinal, "0", "hello"))
	dispatcher := &mockDispatcher{err: translator.ErrTranslationService}
	out := &mockSink{}
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, dispatcher, out, nil)
	dispatcher.pipeline = p
	var stateAtSink State
	out.onWrite = func(sink.Segment) {
		stateAtSink = p.State()
		p.Stop()
	}

	res, err := runWithTimeout(t, context.Background(), p)
	if err != nil {
		t.Fatalf("translation failure must not end the session: %v", err)
	}
	if len(dispatcher.states) != 1 || dispatcher.states[0] != StateStreaming || stateAtSink != StateStreaming {
		t.Fatalf("expected streaming during failed translation, got %v / %v", dispatcher.states, stateAtSink)
	}
	if len(out.segments) != 1 || out.segments[0].Translated || out.segments[0].Translation != "" {
		t.Fatalf("sink must not receive a translation: %+v", out.segments)
	}
	if res.Latency.Events != 1 || res.Latency.Translations != 0 {
		t.Fatalf("expected event counted without translation: %+v", res.Latency)
	}
	if res.State != StateClosed {
		t.Fatalf("expected closed, got %v", res.State)
	}
}

func TestRun_DeviceErrorFailsAndReleases(t *testing.T) {
	reader := newLiveReader(2)
	reader.fail = errors.New("usb unplugged")
	stream := &mockStream{events: make(chan transcriber.Event), channels: []string{"0"}, endSent: make(chan struct{})}
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, &mockSink{}, nil)

	res, err := runWithTimeout(t, context.Background(), p)
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %v", res.State)
	}
	if stream.closeSend != 1 || stream.closes != 1 || reader.closes.Load() != 1 {
		t.Fatalf("expected release on error path: close_send=%d closes=%d reader=%d", stream.closeSend, stream.closes, reader.closes.Load())
	}
}

func TestRun_ProtocolErrorFailsAndStopsProducer(t *testing.T) {
	reader := newLiveReader(5)
	stream := newMockStream(transcriber.ErrStreamProtocol, ev(transcriber.StatePartial, "0", "he"))
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, &mockSink{}, nil)

	res, err := runWithTimeout(t, context.Background(), p)
	if !errors.Is(err, transcriber.ErrStreamProtocol) {
		t.Fatalf("expected ErrStreamProtocol, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %v", res.State)
	}
	if reader.closes.Load() != 1 {
		t.Fatalf("expected device released once, got %d", reader.closes.Load())
	}
}

func TestRun_TransportErrorIsFatal(t *testing.T) {
	reader := newLiveReader(1)
	stream := newMockStream(transcriber.ErrTransport)
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, &mockSink{}, nil)

	res, err := runWithTimeout(t, context.Background(), p)
	if !errors.Is(err, transcriber.ErrTransport) || res.State != StateFailed {
		t.Fatalf("expected failed with ErrTransport, got %v / %v", err, res.State)
	}
}

func TestRun_InputEndDrainsAndCloses(t *testing.T) {
	reader := newLiveReader(2)
	reader.fail = io.EOF
	stream := newMockStream(nil, ev(transcriber.StateFinal, "0", "bye"))
	out := &mockSink{}
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, out, nil)

	res, err := runWithTimeout(t, context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateClosed || res.StopRequested {
		t.Fatalf("unexpected result: %+v", res)
	}
	if stream.sent != 2 || len(out.segments) != 1 {
		t.Fatalf("expected two frames and one segment, got %d / %d", stream.sent, len(out.segments))
	}
}

func TestRun_OpenFailureFailsBeforeStreaming(t *testing.T) {
	stt := &mockTranscriber{stream: newMockStream(nil)}
	p := NewPipeline(testSessionConfig(), &mockDevice{err: errors.New("no such device")}, stt, &mockDispatcher{}, &mockSink{}, nil)

	res, err := p.Run(context.Background(), "session-1")
	if !errors.Is(err, audio.ErrDevice) || res.State != StateFailed {
		t.Fatalf("expected failed with ErrDevice, got %v / %v", err, res.State)
	}
	if stt.calls != 0 {
		t.Fatal("transcript stream must not start when the device cannot open")
	}
}

func TestRun_UnknownPrimaryChannelFails(t *testing.T) {
	reader := newLiveReader(0)
	stream := newMockStream(nil)
	stream.channels = []string{"1", "2"}
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, &mockSink{}, nil)

	res, err := runWithTimeout(t, context.Background(), p)
	if !errors.Is(err, router.ErrUnknownChannel) || res.State != StateFailed {
		t.Fatalf("expected failed with ErrUnknownChannel, got %v / %v", err, res.State)
	}
	if reader.closes.Load() != 1 || stream.closes != 1 {
		t.Fatal("expected resources released")
	}
}

func TestRun_ParentCancelFails(t *testing.T) {
	reader := newLiveReader(0)
	stream := &mockStream{events: make(chan transcriber.Event), channels: []string{"0"}, endSent: make(chan struct{})}
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, &mockSink{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	res, err := runWithTimeout(t, ctx, p)
	if !errors.Is(err, context.Canceled) || res.State != StateFailed {
		t.Fatalf("expected failed with context.Canceled, got %v / %v", err, res.State)
	}
}

func TestRun_IsNotRestartable(t *testing.T) {
	reader := newLiveReader(0)
	reader.fail = io.EOF
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: newMockStream(nil)}, &mockDispatcher{}, &mockSink{}, nil)
	if _, err := runWithTimeout(t, context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Run(context.Background(), "session-2"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestRun_StopBeforeRunEndsImmediately(t *testing.T) {
	reader := newLiveReader(10)
	stream := newMockStream(nil)
	p := NewPipeline(testSessionConfig(), &mockDevice{reader: reader}, &mockTranscriber{stream: stream}, &mockDispatcher{}, &mockSink{}, nil)
	p.Stop()

	res, err := runWithTimeout(t, context.Background(), p)
	if err != nil || res.State != StateClosed {
		t.Fatalf("expected clean close, got %v / %v", err, res.State)
	}
	if res.FramesSent != 0 {
		t.Fatalf("expected no frames after early stop, got %d", res.FramesSent)
	}
}

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestHandleEvent_LatencyWindow(t *testing.T) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dispatcher := &mockDispatcher{onCall: func() { clock.advance(5 * time.Millisecond) }}
	out := &mockSink{}
	p := NewPipeline(testSessionConfig(), nil, nil, dispatcher, out, latency.NewTracker(1000))
	p.now = clock.now
	rt, err := router.New("0", []string{"0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	partial := transcriber.Event{
		Alternatives: []transcriber.Alternative{{Transcript: "he"}},
		ChannelID:    "0",
		State:        transcriber.StatePartial,
		ReceivedAt:   clock.t.Add(-3 * time.Millisecond),
	}
	p.handleEvent(context.Background(), "s", rt, partial)
	if s := p.tracker.Snapshot(); s.TotalLatency != 3*time.Millisecond {
		t.Fatalf("expected window from receipt, got %v", s.TotalLatency)
	}

	final := transcriber.Event{
		Alternatives: []transcriber.Alternative{{Transcript: "hello"}},
		ChannelID:    "0",
		State:        transcriber.StateFinal,
		ReceivedAt:   clock.t.Add(-100 * time.Millisecond),
	}
	p.handleEvent(context.Background(), "s", rt, final)
	s := p.tracker.Snapshot()
	if s.Events != 2 || s.TotalLatency != 8*time.Millisecond || s.AverageLatency != 4*time.Millisecond {
		t.Fatalf("expected window restarted at finalized boundary, got %+v", s)
	}
	if len(out.segments) != 1 || out.segments[0].Latency != 5*time.Millisecond {
		t.Fatalf("unexpected segment latency: %+v", out.segments)
	}
	if !out.segments[0].SpokenAt.Equal(final.ReceivedAt) {
		t.Fatalf("expected spoken_at from event receipt, got %v", out.segments[0].SpokenAt)
	}

	empty := transcriber.Event{ChannelID: "0", State: transcriber.StateFinal}
	p.handleEvent(context.Background(), "s", rt, empty)
	if got := p.tracker.Snapshot().Events; got != 3 {
		t.Fatalf("empty events must still be counted, got %d", got)
	}
}

func TestHandleEvent_FinalOnSecondaryChannelRestartsWindow(t *testing.T) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dispatcher := &mockDispatcher{}
	p := NewPipeline(testSessionConfig(), nil, nil, dispatcher, &mockSink{}, latency.NewTracker(1000))
	p.now = clock.now
	rt, err := router.New("1", []string{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	secondary := transcriber.Event{
		Alternatives: []transcriber.Alternative{{Transcript: "other speaker"}},
		ChannelID:    "2",
		State:        transcriber.StateFinal,
		ReceivedAt:   clock.t.Add(-250 * time.Millisecond),
	}
	p.handleEvent(context.Background(), "s", rt, secondary)

	blank := transcriber.Event{
		Alternatives: []transcriber.Alternative{{Transcript: "   "}},
		ChannelID:    "1",
		State:        transcriber.StateFinal,
		ReceivedAt:   clock.t.Add(-400 * time.Millisecond),
	}
	p.handleEvent(context.Background(), "s", rt, blank)

	s := p.tracker.Snapshot()
	if s.Events != 2 || s.TotalLatency != 0 {
		t.Fatalf("expected finalized events to restart the window, got %+v", s)
	}
	if len(dispatcher.texts) != 0 {
		t.Fatalf("expected no translation, got %v", dispatcher.texts)
	}
}
