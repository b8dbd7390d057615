package translator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Policy bounds a single dispatch. The zero value means one attempt without
// a deadline.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

type Dispatcher struct {
	backends map[Mode]Translator
	policy   Policy
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(backends map[Mode]Translator, policy Policy) *Dispatcher {
	return &Dispatcher{
		backends: backends,
		policy:   policy,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Translate sends req to the backend for mode. Duration covers every attempt.
// On failure the returned Result still carries the elapsed time.
func (d *Dispatcher) Translate(ctx context.Context, req Request, mode Mode) (Result, error) {
	res := Result{Text: req.Text, Mode: mode}
	if strings.TrimSpace(req.Text) == "" {
		return res, ErrEmptyText
	}
	backend, ok := d.backends[mode]
	if !ok || backend == nil {
		return res, fmt.Errorf("%w: no backend for mode %q", ErrTranslationService, mode)
	}

	start := d.now()
	var lastErr error
	for attempt := 0; attempt <= d.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.policy.Backoff); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}
		res.Attempts++
		translated, err := d.call(ctx, backend, req)
		if err == nil {
			res.Translated = translated
			res.Duration = d.now().Sub(start)
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		slog.Warn("translation attempt failed", "mode", mode, "attempt", res.Attempts, "error", err)
	}
	res.Duration = d.now().Sub(start)
	return res, fmt.Errorf("%w: %w", ErrTranslationService, lastErr)
}

// Close releases backends that hold connections, such as SDK clients.
func (d *Dispatcher) Close() error {
	var errs []error
	for mode, backend := range d.backends {
		c, ok := backend.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s translator: %w", mode, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) call(ctx context.Context, backend Translator, req Request) (string, error) {
	if d.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.policy.Timeout)
		defer cancel()
	}
	return backend.Translate(ctx, req.Text, req.SourceLanguage, req.TargetLanguage)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
