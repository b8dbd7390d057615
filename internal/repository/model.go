package repository

import "time"

type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

type Session struct {
	ID              string
	SourceLanguage  string
	TargetLanguage  string
	TranslationMode string
	PrimaryChannel  string
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          SessionStatus
	StopReason      string
	Timezone        string
	DurationSeconds int64
	SegmentCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TranscriptSegment is one finalized utterance of the primary channel and
// its translation. Translation is empty when Translated is false.
type TranscriptSegment struct {
	ID            string
	SessionID     string
	SegmentIndex  int
	ChannelID     string
	Transcript    string
	Translation   string
	Translated    bool
	LatencyMs     int64
	TranslationMs int64
	SpokenAt      time.Time
	CreatedAt     time.Time
}
