package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/repository"
)

func TestMemoryRepository_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s, err := r.CreateSession(ctx, repository.CreateSessionInput{
		SourceLanguage: "en", TargetLanguage: "zh", TranslationMode: "service", PrimaryChannel: "0", Timezone: "UTC", StartedAt: started,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID == "" || s.Status != repository.SessionStatusRunning {
		t.Fatalf("unexpected session: %+v", s)
	}

	for _, idx := range []int{2, 1} {
		if err := r.InsertSegment(ctx, repository.InsertSegmentInput{SessionID: s.ID, SegmentIndex: idx, Transcript: "t", SpokenAt: started}); err != nil {
			t.Fatalf("unexpected insert error: %v", err)
		}
	}
	if err := r.InsertSegment(ctx, repository.InsertSegmentInput{SessionID: s.ID, SegmentIndex: 1}); err == nil {
		t.Fatal("expected duplicate segment index to be rejected")
	}
	segs, err := r.ListSegmentsBySessionID(ctx, s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 2 || segs[0].SegmentIndex != 1 || segs[1].SegmentIndex != 2 {
		t.Fatalf("expected ordered segments, got %+v", segs)
	}

	ended := started.Add(time.Minute)
	if err := r.CompleteSession(ctx, repository.CompleteSessionInput{
		SessionID: s.ID, EndedAt: ended, Status: repository.SessionStatusCompleted, StopReason: "stopped", DurationSeconds: 60, SegmentCount: 2,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != repository.SessionStatusCompleted || got.EndedAt == nil || !got.EndedAt.Equal(ended) || got.SegmentCount != 2 {
		t.Fatalf("unexpected completed session: %+v", got)
	}

	if err := r.SaveSessionOutput(ctx, repository.SaveSessionOutputInput{SessionID: s.ID, TranscriptFilename: "a.txt", TranscriptText: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out, ok := r.Output(s.ID); !ok || out.TranscriptFilename != "a.txt" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestMemoryRepository_UnknownSession(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	if _, err := r.GetSession(ctx, "missing"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := r.InsertSegment(ctx, repository.InsertSegmentInput{SessionID: "missing"}); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := r.CompleteSession(ctx, repository.CompleteSessionInput{SessionID: "missing"}); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
