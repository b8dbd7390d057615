package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/sink"
)

// FileSink appends transcripts and translations to two line-aligned files.
// Untranslated segments leave an empty line in the translation file.
type FileSink struct {
	mu         sync.Mutex
	transcribe *os.File
	translate  *os.File
}

func NewFileSink(transcribePath, translatePath string) (*FileSink, error) {
	tr, err := openAppend(transcribePath)
	if err != nil {
		return nil, err
	}
	tl, err := openAppend(translatePath)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	return &FileSink{transcribe: tr, translate: tl}, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func (s *FileSink) WriteSegment(_ context.Context, seg sink.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.transcribe.WriteString(singleLine(seg.Transcript) + "\n"); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	translation := ""
	if seg.Translated {
		translation = singleLine(seg.Translation)
	}
	if _, err := s.translate.WriteString(translation + "\n"); err != nil {
		return fmt.Errorf("write translation: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.transcribe.Close(), s.translate.Close())
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
