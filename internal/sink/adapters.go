package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/repository"
)

// RepositorySink stores segments for the end-of-session transcript.
type RepositorySink struct {
	repo repository.TranscriptRepository
}

func NewRepositorySink(repo repository.TranscriptRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) WriteSegment(ctx context.Context, seg Segment) error {
	return s.repo.InsertSegment(ctx, repository.InsertSegmentInput{
		SessionID:     seg.SessionID,
		SegmentIndex:  seg.Index,
		ChannelID:     seg.ChannelID,
		Transcript:    seg.Transcript,
		Translation:   seg.Translation,
		Translated:    seg.Translated,
		LatencyMs:     seg.Latency.Milliseconds(),
		TranslationMs: seg.TranslationDuration.Milliseconds(),
		SpokenAt:      seg.SpokenAt,
	})
}

// DiscordSink posts each segment to the configured text channel.
type DiscordSink struct {
	client discord.Client
}

func NewDiscordSink(client discord.Client) *DiscordSink {
	return &DiscordSink{client: client}
}

func (s *DiscordSink) WriteSegment(_ context.Context, seg Segment) error {
	if !s.client.Enabled() {
		return nil
	}
	return s.client.SendChannelMessage(s.client.ChannelID(), FormatChatMessage(seg))
}

func FormatChatMessage(seg Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":speech_balloon: %s", strings.TrimSpace(seg.Transcript))
	if seg.Translated {
		fmt.Fprintf(&b, "\n:globe_with_meridians: %s", strings.TrimSpace(seg.Translation))
	} else {
		b.WriteString("\n-# translation unavailable")
	}
	return b.String()
}
