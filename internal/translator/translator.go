package translator

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTranslationService wraps any backend failure. The event is left
	// untranslated and the session continues.
	ErrTranslationService = errors.New("translation service failed")
	ErrEmptyText          = errors.New("translation text is empty")
)

type Mode string

const (
	ModeService    Mode = "service"
	ModeGenerative Mode = "generative"
)

type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

type Result struct {
	Text       string
	Translated string
	Mode       Mode
	Duration   time.Duration
	Attempts   int
}

// Translator is one translation backend. It returns only the translated text.
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}
