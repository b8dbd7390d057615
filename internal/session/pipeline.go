package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/latency"
	"github.com/foxseedlab/tsuyaku/internal/router"
	"github.com/foxseedlab/tsuyaku/internal/sink"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"golang.org/x/sync/errgroup"
)

const frameStatsEvery = 1000

var ErrAlreadyStarted = errors.New("pipeline already started")

type Dispatcher interface {
	Translate(ctx context.Context, req translator.Request, mode translator.Mode) (translator.Result, error)
}

// RunResult summarizes one finished pipeline run.
type RunResult struct {
	State         State
	StopRequested bool
	Segments      int
	FramesSent    uint64
	FramesDropped uint64
	Latency       latency.Summary
}

// Pipeline couples an audio producer and a transcript consumer for exactly
// one session. It is not restartable.
type Pipeline struct {
	cfg         SessionConfig
	device      audio.Device
	transcriber transcriber.Transcriber
	dispatcher  Dispatcher
	sink        sink.Sink
	tracker     *latency.Tracker
	now         func() time.Time

	state         atomic.Int32
	stopRequested atomic.Bool
	audio         atomic.Pointer[audio.Stream]
	framesSent    atomic.Uint64

	// consumer-owned
	segments int
}

func NewPipeline(cfg SessionConfig, device audio.Device, stt transcriber.Transcriber, dispatcher Dispatcher, out sink.Sink, tracker *latency.Tracker) *Pipeline {
	if tracker == nil {
		tracker = latency.NewTracker(latency.DefaultReportEvery)
	}
	return &Pipeline{
		cfg:         cfg,
		device:      device,
		transcriber: stt,
		dispatcher:  dispatcher,
		sink:        out,
		tracker:     tracker,
		now:         time.Now,
	}
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) Tracker() *latency.Tracker {
	return p.tracker
}

// Stop ends the audio sequence. The producer then sends end-of-input and the
// consumer drains the remaining events. Safe to call from any goroutine.
func (p *Pipeline) Stop() {
	if p.stopRequested.Swap(true) {
		return
	}
	slog.Info("pipeline stop requested", "state", p.State().String())
	if s := p.audio.Load(); s != nil {
		s.Stop()
	}
}

// Run blocks until the session ends. A nil error means the stream ended
// normally and the pipeline is Closed; any error leaves it Failed.
func (p *Pipeline) Run(ctx context.Context, sessionID string) (RunResult, error) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateStreaming)) {
		return RunResult{State: p.State()}, ErrAlreadyStarted
	}

	err := p.run(ctx, sessionID)
	final := StateClosed
	if err != nil {
		final = StateFailed
	}
	p.state.Store(int32(final))

	res := RunResult{
		State:         final,
		StopRequested: p.stopRequested.Load(),
		Segments:      p.segments,
		FramesSent:    p.framesSent.Load(),
		Latency:       p.tracker.Snapshot(),
	}
	if s := p.audio.Load(); s != nil {
		res.FramesDropped = s.Dropped()
	}
	slog.Info("pipeline finished",
		"session_id", sessionID,
		"state", final.String(),
		"segments", res.Segments,
		"frames_sent", res.FramesSent,
		"frames_dropped", res.FramesDropped,
		"events", res.Latency.Events,
		"average_latency", res.Latency.AverageLatency,
		"error", err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, sessionID string) error {
	as, err := audio.Open(p.device, audio.Format{
		SampleRate:   p.cfg.SampleRate,
		Channels:     p.cfg.Channels,
		FrameSamples: p.cfg.FrameSamples,
		DeviceIndex:  p.cfg.DeviceIndex,
	})
	if err != nil {
		return err
	}
	p.audio.Store(as)
	defer func() {
		if err := as.Close(); err != nil {
			slog.Warn("failed to close audio stream", "session_id", sessionID, "error", err)
		}
	}()
	if p.stopRequested.Load() {
		as.Stop()
	}

	// The group context ends when either task fails, which also unblocks a
	// pending device read and the transcript stream.
	g, gctx := errgroup.WithContext(ctx)
	stopAudio := context.AfterFunc(gctx, as.Stop)
	defer stopAudio()

	stream, err := p.transcriber.StartStream(gctx, sessionID, transcriber.StreamConfig{
		LanguageCode:    p.cfg.TranscribeLanguage,
		SampleRateHertz: p.cfg.SampleRate,
		ChannelCount:    p.cfg.Channels,
	})
	if err != nil {
		return fmt.Errorf("start transcript stream: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			slog.Warn("failed to close transcript stream", "session_id", sessionID, "error", err)
		}
	}()

	rt, err := router.New(p.cfg.PrimaryChannel, stream.Channels())
	if err != nil {
		return err
	}
	slog.Info("pipeline streaming", "session_id", sessionID, "primary_channel", rt.Primary(), "channels", stream.Channels(), "mode", p.cfg.Mode)

	var endInput sync.Once
	var endInputErr error
	closeSend := func() error {
		endInput.Do(func() { endInputErr = stream.CloseSend() })
		return endInputErr
	}

	g.Go(func() error {
		return p.produce(gctx, sessionID, as, stream, closeSend)
	})
	g.Go(func() error {
		return p.consume(gctx, sessionID, rt, stream)
	})
	return g.Wait()
}

func (p *Pipeline) produce(ctx context.Context, sessionID string, as *audio.Stream, stream transcriber.Stream, closeSend func() error) error {
	defer func() {
		// End-of-input is sent on every exit path so the remote side can finish.
		if err := closeSend(); err != nil && ctx.Err() == nil {
			slog.Warn("failed to send end of input", "session_id", sessionID, "error", err)
		}
	}()
	for {
		frame, err := as.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("audio capture failed", "session_id", sessionID, "seq", as.Frames(), "error", err)
			return err
		}
		if err := stream.Send(frame.Data); err != nil {
			slog.Error("failed to send audio frame", "session_id", sessionID, "seq", frame.Seq, "error", err)
			return err
		}
		if n := p.framesSent.Add(1); n%frameStatsEvery == 0 {
			slog.Info("audio pipeline stats", "session_id", sessionID, "frames_sent", n, "frames_dropped", as.Dropped())
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.state.CompareAndSwap(int32(StateStreaming), int32(StateDraining))
	slog.Info("audio input ended; draining transcript stream", "session_id", sessionID, "frames_sent", p.framesSent.Load())
	return closeSend()
}

func (p *Pipeline) consume(ctx context.Context, sessionID string, rt *router.Router, stream transcriber.Stream) error {
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, context.Canceled) {
				return ctxErr
			}
			slog.Error("transcript stream failed", "session_id", sessionID, "error", err)
			return err
		}
		p.handleEvent(ctx, sessionID, rt, ev)
	}
}

// handleEvent routes one event and records its latency. The latency window
// opens when the event arrives and reopens at every finalized boundary,
// whatever the channel or text, so a translated event measures translation
// and sink delivery only.
func (p *Pipeline) handleEvent(ctx context.Context, sessionID string, rt *router.Router, ev transcriber.Event) {
	start := ev.ReceivedAt
	if start.IsZero() {
		start = p.now()
	}

	if ev.IsFinal() {
		start = p.now()
	}

	d := rt.Route(ev)
	switch {
	case d.Action == router.ActionTranslate:
		p.deliver(ctx, sessionID, ev, d.Text, start)
	case d.Reason == router.ReasonPartial:
		slog.Debug("partial transcript", "session_id", sessionID, "channel_id", ev.ChannelID, "text", d.Text)
	case d.Reason == router.ReasonOtherChannel:
		slog.Debug("final transcript on secondary channel", "session_id", sessionID, "channel_id", ev.ChannelID, "text", d.Text)
	}

	p.tracker.Record(p.now().Sub(start))
	if s, ok := p.tracker.MaybeReport(); ok {
		slog.Info("latency report",
			"session_id", sessionID,
			"events", s.Events,
			"average_latency", s.AverageLatency,
			"translations", s.Translations,
			"average_translation", s.AverageTranslation)
	}
}

func (p *Pipeline) deliver(ctx context.Context, sessionID string, ev transcriber.Event, text string, start time.Time) {
	slog.Info("final transcript", "session_id", sessionID, "channel_id", ev.ChannelID, "text", text)

	res, err := p.dispatcher.Translate(ctx, translator.Request{
		Text:           text,
		SourceLanguage: p.cfg.SourceLanguage,
		TargetLanguage: p.cfg.TargetLanguage,
	}, p.cfg.Mode)
	if err != nil {
		slog.Error("translation failed", "session_id", sessionID, "channel_id", ev.ChannelID, "mode", p.cfg.Mode, "attempts", res.Attempts, "error", err)
	} else {
		p.tracker.RecordTranslation(res.Duration)
		slog.Info("translated text", "session_id", sessionID, "text", res.Translated, "translation_duration", res.Duration)
	}

	seg := sink.Segment{
		SessionID:           sessionID,
		Index:               p.segments,
		ChannelID:           ev.ChannelID,
		Transcript:          text,
		Translation:         res.Translated,
		Translated:          err == nil,
		SourceLanguage:      p.cfg.SourceLanguage,
		TargetLanguage:      p.cfg.TargetLanguage,
		Mode:                string(p.cfg.Mode),
		SpokenAt:            ev.ReceivedAt,
		TranslationDuration: res.Duration,
	}
	if seg.SpokenAt.IsZero() {
		seg.SpokenAt = start
	}
	p.segments++
	seg.Latency = p.now().Sub(start)
	if p.sink != nil {
		// Sink failures are logged by the sink and never end the session.
		_ = p.sink.WriteSegment(ctx, seg)
	}
}
