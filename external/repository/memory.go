package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/google/uuid"
)

// MemoryRepository keeps sessions for the lifetime of the process. It is
// used when no DATABASE_URL is configured.
type MemoryRepository struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]*repository.Session
	segments map[string][]repository.TranscriptSegment
	outputs  map[string]repository.SaveSessionOutputInput
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:      time.Now,
		sessions: map[string]*repository.Session{},
		segments: map[string][]repository.TranscriptSegment{},
		outputs:  map[string]repository.SaveSessionOutputInput{},
	}
}

func (r *MemoryRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	s := &repository.Session{
		ID:              uuid.NewString(),
		SourceLanguage:  input.SourceLanguage,
		TargetLanguage:  input.TargetLanguage,
		TranslationMode: input.TranslationMode,
		PrimaryChannel:  input.PrimaryChannel,
		Timezone:        input.Timezone,
		StartedAt:       input.StartedAt,
		Status:          repository.SessionStatusRunning,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) CompleteSession(_ context.Context, input repository.CompleteSessionInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[input.SessionID]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrSessionNotFound, input.SessionID)
	}
	endedAt := input.EndedAt
	s.EndedAt = &endedAt
	s.Status = input.Status
	s.StopReason = input.StopReason
	s.DurationSeconds = input.DurationSeconds
	s.SegmentCount = input.SegmentCount
	s.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) SaveSessionOutput(_ context.Context, input repository.SaveSessionOutputInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[input.SessionID]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrSessionNotFound, input.SessionID)
	}
	r.outputs[input.SessionID] = input
	return nil
}

func (r *MemoryRepository) GetSession(_ context.Context, sessionID string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrSessionNotFound, sessionID)
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) InsertSegment(_ context.Context, input repository.InsertSegmentInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[input.SessionID]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrSessionNotFound, input.SessionID)
	}
	for _, seg := range r.segments[input.SessionID] {
		if seg.SegmentIndex == input.SegmentIndex {
			return fmt.Errorf("segment %d already stored for session %s", input.SegmentIndex, input.SessionID)
		}
	}
	r.segments[input.SessionID] = append(r.segments[input.SessionID], repository.TranscriptSegment{
		ID:            uuid.NewString(),
		SessionID:     input.SessionID,
		SegmentIndex:  input.SegmentIndex,
		ChannelID:     input.ChannelID,
		Transcript:    input.Transcript,
		Translation:   input.Translation,
		Translated:    input.Translated,
		LatencyMs:     input.LatencyMs,
		TranslationMs: input.TranslationMs,
		SpokenAt:      input.SpokenAt,
		CreatedAt:     r.now(),
	})
	return nil
}

func (r *MemoryRepository) ListSegmentsBySessionID(_ context.Context, sessionID string) ([]repository.TranscriptSegment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := slices.Clone(r.segments[sessionID])
	slices.SortFunc(list, func(a, b repository.TranscriptSegment) int {
		return a.SegmentIndex - b.SegmentIndex
	})
	return list, nil
}

func (r *MemoryRepository) Output(sessionID string) (repository.SaveSessionOutputInput, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.outputs[sessionID]
	return out, ok
}
