package repository

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type CreateSessionInput struct {
	SourceLanguage  string
	TargetLanguage  string
	TranslationMode string
	PrimaryChannel  string
	Timezone        string
	StartedAt       time.Time
}

type CompleteSessionInput struct {
	SessionID       string
	EndedAt         time.Time
	Status          SessionStatus
	StopReason      string
	DurationSeconds int64
	SegmentCount    int
}

type SaveSessionOutputInput struct {
	SessionID          string
	TranscriptFilename string
	TranscriptText     string
	WebhookPayloadJSON []byte
}

type InsertSegmentInput struct {
	SessionID     string
	SegmentIndex  int
	ChannelID     string
	Transcript    string
	Translation   string
	Translated    bool
	LatencyMs     int64
	TranslationMs int64
	SpokenAt      time.Time
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	CompleteSession(ctx context.Context, input CompleteSessionInput) error
	SaveSessionOutput(ctx context.Context, input SaveSessionOutputInput) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

type TranscriptRepository interface {
	InsertSegment(ctx context.Context, input InsertSegmentInput) error
	ListSegmentsBySessionID(ctx context.Context, sessionID string) ([]TranscriptSegment, error)
}

type Repository interface {
	SessionRepository
	TranscriptRepository
}
