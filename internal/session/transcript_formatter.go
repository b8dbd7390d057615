package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/webhook"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

type transcriptMeta struct {
	SessionID       string
	SourceLanguage  string
	TargetLanguage  string
	TranslationMode string
	Timezone        string
	Status          repository.SessionStatus
	StopReason      string
	StartedAt       time.Time
	EndedAt         time.Time
	Result          RunResult
}

func buildTranscriptText(meta transcriptMeta, loc *time.Location, segments []repository.TranscriptSegment) []byte {
	startText := meta.StartedAt.In(safeLocation(loc)).Format(transcriptTimeLayout)
	endText := meta.EndedAt.In(safeLocation(loc)).Format(transcriptTimeLayout)

	lines := []string{
		fmt.Sprintf("セッションID：%s", meta.SessionID),
		fmt.Sprintf("翻訳方向：%s → %s（%s）", meta.SourceLanguage, meta.TargetLanguage, meta.TranslationMode),
		fmt.Sprintf("通訳期間：%s ~ %s（%s）", startText, endText, meta.Timezone),
		fmt.Sprintf("終了理由：%s", stopReasonDetail(meta.StopReason)),
		fmt.Sprintf("平均遅延：%dms（%d イベント）", meta.Result.Latency.AverageLatency.Milliseconds(), meta.Result.Latency.Events),
		"",
	}
	indent := strings.Repeat(" ", len("00:00:00 "))
	for _, seg := range segments {
		elapsed := seg.SpokenAt.Sub(meta.StartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s", formatElapsedHMS(elapsed), meta.SourceLanguage, seg.Transcript))
		translation := seg.Translation
		if !seg.Translated {
			translation = "（翻訳なし）"
		}
		lines = append(lines, fmt.Sprintf("%s[%s] %s", indent, meta.TargetLanguage, translation))
	}
	return []byte(strings.Join(lines, "\n"))
}

func buildTranscriptWebhookPayload(meta transcriptMeta, loc *time.Location, segments []repository.TranscriptSegment) webhook.TranscriptWebhookPayload {
	transcriptLines := make([]string, 0, len(segments))
	translationLines := make([]string, 0, len(segments))
	for _, seg := range segments {
		transcriptLines = append(transcriptLines, seg.Transcript)
		if seg.Translated {
			translationLines = append(translationLines, seg.Translation)
		}
	}

	durationSeconds := int64(meta.EndedAt.Sub(meta.StartedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	s := meta.Result.Latency

	return webhook.TranscriptWebhookPayload{
		SchemaVersion:   webhook.TranscriptWebhookSchemaVersion,
		SessionID:       meta.SessionID,
		SourceLanguage:  meta.SourceLanguage,
		TargetLanguage:  meta.TargetLanguage,
		TranslationMode: meta.TranslationMode,
		StartAt:         meta.StartedAt.In(safeLocation(loc)).Format(time.RFC3339),
		EndAt:           meta.EndedAt.In(safeLocation(loc)).Format(time.RFC3339),
		Timezone:        meta.Timezone,
		DurationSeconds: durationSeconds,
		Status:          string(meta.Status),
		StopReason:      meta.StopReason,
		SegmentCount:    len(segments),
		Stats: webhook.TranscriptWebhookStats{
			Events:               s.Events,
			AverageLatencyMs:     s.AverageLatency.Milliseconds(),
			Translations:         s.Translations,
			AverageTranslationMs: s.AverageTranslation.Milliseconds(),
			FramesSent:           meta.Result.FramesSent,
			FramesDropped:        meta.Result.FramesDropped,
		},
		TranscriptSegments: buildTranscriptWebhookSegments(segments, meta.EndedAt, safeLocation(loc)),
		Transcript:         strings.Join(transcriptLines, "\n"),
		Translation:        strings.Join(translationLines, "\n"),
	}
}

func buildTranscriptWebhookSegments(segments []repository.TranscriptSegment, sessionEndedAt time.Time, loc *time.Location) []webhook.TranscriptWebhookSegment {
	out := make([]webhook.TranscriptWebhookSegment, 0, len(segments))
	for i, seg := range segments {
		segmentEnd := sessionEndedAt
		if i+1 < len(segments) {
			segmentEnd = segments[i+1].SpokenAt
		}
		if segmentEnd.Before(seg.SpokenAt) {
			segmentEnd = seg.SpokenAt
		}
		out = append(out, webhook.TranscriptWebhookSegment{
			Index:         seg.SegmentIndex,
			ChannelID:     seg.ChannelID,
			StartAt:       seg.SpokenAt.In(loc).Format(time.RFC3339),
			EndAt:         segmentEnd.In(loc).Format(time.RFC3339),
			Transcript:    seg.Transcript,
			Translation:   seg.Translation,
			Translated:    seg.Translated,
			LatencyMs:     seg.LatencyMs,
			TranslationMs: seg.TranslationMs,
		})
	}
	return out
}

func countUntranslated(segments []repository.TranscriptSegment) int {
	n := 0
	for _, seg := range segments {
		if !seg.Translated {
			n++
		}
	}
	return n
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
