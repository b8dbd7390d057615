package webhook

import "context"

const TranscriptWebhookSchemaVersion = "2026-10-01"

type TranscriptWebhookSegment struct {
	Index         int    `json:"index"`
	ChannelID     string `json:"channel_id"`
	StartAt       string `json:"start_at"`
	EndAt         string `json:"end_at"`
	Transcript    string `json:"transcript"`
	Translation   string `json:"translation"`
	Translated    bool   `json:"translated"`
	LatencyMs     int64  `json:"latency_ms"`
	TranslationMs int64  `json:"translation_ms"`
}

type TranscriptWebhookStats struct {
	Events               int64  `json:"events"`
	AverageLatencyMs     int64  `json:"average_latency_ms"`
	Translations         int64  `json:"translations"`
	AverageTranslationMs int64  `json:"average_translation_ms"`
	FramesSent           uint64 `json:"frames_sent"`
	FramesDropped        uint64 `json:"frames_dropped"`
}

type TranscriptWebhookPayload struct {
	SchemaVersion      string                     `json:"schema_version"`
	SessionID          string                     `json:"session_id"`
	SourceLanguage     string                     `json:"source_language"`
	TargetLanguage     string                     `json:"target_language"`
	TranslationMode    string                     `json:"translation_mode"`
	StartAt            string                     `json:"start_at"`
	EndAt              string                     `json:"end_at"`
	Timezone           string                     `json:"timezone"`
	DurationSeconds    int64                      `json:"duration_seconds"`
	Status             string                     `json:"status"`
	StopReason         string                     `json:"stop_reason"`
	SegmentCount       int                        `json:"segment_count"`
	Stats              TranscriptWebhookStats     `json:"stats"`
	TranscriptSegments []TranscriptWebhookSegment `json:"transcript_segments"`
	Transcript         string                     `json:"transcript"`
	Translation        string                     `json:"translation"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptWebhookPayload) error
}
