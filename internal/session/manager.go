package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/latency"
	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/router"
	"github.com/foxseedlab/tsuyaku/internal/sink"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/foxseedlab/tsuyaku/internal/webhook"
)

const finalizeTimeout = 30 * time.Second

// Manager wraps one pipeline run with the session record, the live chat
// announcements and the end-of-session transcript delivery.
type Manager struct {
	cfg         *config.Config
	repo        repository.Repository
	discord     discord.Client
	webhook     webhook.Sender
	device      audio.Device
	transcriber transcriber.Transcriber
	dispatcher  Dispatcher
	sink        sink.Sink
	now         func() time.Time

	mu       sync.Mutex
	pipeline *Pipeline
	stopped  bool
}

func NewManager(cfg *config.Config, repo repository.Repository, dc discord.Client, wh webhook.Sender, device audio.Device, stt transcriber.Transcriber, dispatcher Dispatcher, out sink.Sink) *Manager {
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		discord:     dc,
		webhook:     wh,
		device:      device,
		transcriber: stt,
		dispatcher:  dispatcher,
		sink:        out,
		now:         time.Now,
	}
}

// Stop requests a graceful end of the running session.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	p := m.pipeline
	m.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

func (m *Manager) Run(ctx context.Context) (RunResult, error) {
	loc, err := time.LoadLocation(m.cfg.TranscriptZone)
	if err != nil {
		return RunResult{State: StateFailed}, fmt.Errorf("load transcript timezone: %w", err)
	}
	sc := SessionConfigFromConfig(m.cfg)

	startedAt := m.now()
	created, err := m.repo.CreateSession(ctx, repository.CreateSessionInput{
		SourceLanguage:  sc.SourceLanguage,
		TargetLanguage:  sc.TargetLanguage,
		TranslationMode: string(sc.Mode),
		PrimaryChannel:  sc.PrimaryChannel,
		Timezone:        m.cfg.TranscriptZone,
		StartedAt:       startedAt,
	})
	if err != nil {
		slog.Error("failed to create session in repository", "error", err)
		return RunResult{State: StateFailed}, err
	}
	slog.Info("created session", "session_id", created.ID, "source_language", sc.SourceLanguage, "target_language", sc.TargetLanguage, "mode", sc.Mode)

	p := NewPipeline(sc, m.device, m.transcriber, m.dispatcher, m.sink, latency.NewTracker(m.cfg.LatencyReportEvery))
	m.mu.Lock()
	m.pipeline = p
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		p.Stop()
	}

	m.announce(strings.Join([]string{
		messageStartChannelTitle,
		startDirectionLine(sc.SourceLanguage, sc.TargetLanguage, string(sc.Mode)),
	}, "\n"))

	res, runErr := p.Run(ctx, created.ID)
	m.finalizeSession(created, loc, startedAt, res, runErr)
	return res, runErr
}

func (m *Manager) announce(content string) {
	if !m.discord.Enabled() {
		return
	}
	if err := m.discord.SendChannelMessage(m.discord.ChannelID(), content); err != nil {
		slog.Error("failed to post channel message", "error", err)
	}
}

func (m *Manager) finalizeSession(s *repository.Session, loc *time.Location, startedAt time.Time, res RunResult, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	endedAt := m.now()
	status := repository.SessionStatusCompleted
	if res.State != StateClosed {
		status = repository.SessionStatusFailed
	}
	reason := stopReasonFor(res, runErr)
	slog.Info("finalizing session", "session_id", s.ID, "status", status, "reason", reason)

	if err := m.repo.CompleteSession(ctx, repository.CompleteSessionInput{
		SessionID:       s.ID,
		EndedAt:         endedAt,
		Status:          status,
		StopReason:      reason,
		DurationSeconds: int64(endedAt.Sub(startedAt).Seconds()),
		SegmentCount:    res.Segments,
	}); err != nil {
		slog.Error("failed to complete session", "error", err, "session_id", s.ID)
	}

	segments, err := m.repo.ListSegmentsBySessionID(ctx, s.ID)
	if err != nil {
		slog.Error("failed to list transcript segments", "error", err, "session_id", s.ID)
		return
	}
	meta := transcriptMeta{
		SessionID:       s.ID,
		SourceLanguage:  s.SourceLanguage,
		TargetLanguage:  s.TargetLanguage,
		TranslationMode: s.TranslationMode,
		Timezone:        m.cfg.TranscriptZone,
		Status:          status,
		StopReason:      reason,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		Result:          res,
	}
	body := buildTranscriptText(meta, loc, segments)
	payload := buildTranscriptWebhookPayload(meta, loc, segments)
	filename := fmt.Sprintf("tsuyaku-%s.txt", s.ID)

	if m.discord.Enabled() {
		lines := []string{
			messageStopChannelTitle,
			stopReasonDetail(reason),
			fmt.Sprintf(messageStopStatsFormat, len(segments), res.Latency.AverageLatency.Milliseconds(), res.Latency.AverageTranslation.Milliseconds()),
		}
		if n := countUntranslated(segments); n > 0 {
			lines = append(lines, fmt.Sprintf(messageStopTranslationFailed, n))
		}
		lines = append(lines, "", messageAttachmentTitle, messagePoweredByLine)
		if err := m.discord.SendChannelMessageWithFile(discord.FileMessage{
			ChannelID: m.discord.ChannelID(),
			Content:   strings.Join(lines, "\n"),
			Filename:  filename,
			FileBody:  body,
		}); err != nil {
			slog.Error("failed to post transcript file", "error", err, "session_id", s.ID)
		}
	}

	if err := m.webhook.SendTranscript(ctx, payload); err != nil {
		slog.Error("failed to send webhook transcript", "error", err, "session_id", s.ID)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal webhook payload", "error", err, "session_id", s.ID)
	}
	if err := m.repo.SaveSessionOutput(ctx, repository.SaveSessionOutputInput{
		SessionID:          s.ID,
		TranscriptFilename: filename,
		TranscriptText:     string(body),
		WebhookPayloadJSON: payloadJSON,
	}); err != nil {
		slog.Error("failed to save session output", "error", err, "session_id", s.ID)
	}
}

func stopReasonFor(res RunResult, err error) string {
	switch {
	case err == nil && res.StopRequested:
		return stopReasonStopped
	case err == nil:
		return stopReasonInputEnded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return stopReasonCanceled
	case errors.Is(err, audio.ErrDevice):
		return stopReasonDeviceError
	case errors.Is(err, transcriber.ErrTransport), errors.Is(err, transcriber.ErrStreamProtocol):
		return stopReasonStreamError
	case errors.Is(err, router.ErrUnknownChannel):
		return stopReasonConfigError
	default:
		return stopReasonUnknownError
	}
}
