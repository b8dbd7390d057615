package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Stream is a non-restartable frame sequence over an opened device.
// NextFrame must be called from a single goroutine; Stop may be called
// from any goroutine.
type Stream struct {
	reader Reader
	format Format
	now    func() time.Time

	seq       uint64
	dropped   atomic.Uint64
	stopped   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func Open(dev Device, format Format) (*Stream, error) {
	if format.FrameBytes() <= 0 {
		return nil, fmt.Errorf("%w: invalid frame format %+v", ErrDevice, format)
	}
	r, err := dev.Open(format)
	if err != nil {
		if errors.Is(err, ErrDevice) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}
	slog.Info("audio stream opened",
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"frame_samples", format.FrameSamples,
		"device_index", format.DeviceIndex)
	return newStream(r, format, time.Now), nil
}

func newStream(r Reader, format Format, now func() time.Time) *Stream {
	return &Stream{reader: r, format: format, now: now}
}

func (s *Stream) Format() Format {
	return s.format
}

// NextFrame returns the next captured frame, or io.EOF once the stream has
// been stopped, closed or the device ran out of input. Overflowed frames are
// dropped and never surface as errors.
func (s *Stream) NextFrame() (Frame, error) {
	for {
		if s.stopped.Load() {
			return Frame{}, io.EOF
		}
		buf := make([]byte, s.format.FrameBytes())
		err := s.reader.ReadFrame(buf)
		switch {
		case err == nil:
			s.seq++
			return Frame{Seq: s.seq, Data: buf, CapturedAt: s.now()}, nil
		case errors.Is(err, ErrOverflow):
			n := s.dropped.Add(1)
			slog.Warn("audio input overflowed; frame dropped", "next_seq", s.seq+1, "dropped_frames", n)
		case errors.Is(err, io.EOF):
			return Frame{}, io.EOF
		case s.stopped.Load():
			return Frame{}, io.EOF
		default:
			return Frame{}, fmt.Errorf("%w: read frame: %w", ErrDevice, err)
		}
	}
}

// Stop ends the sequence; the next NextFrame call returns io.EOF.
func (s *Stream) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	if i, ok := s.reader.(Interrupter); ok {
		i.Interrupt()
	}
}

// Close stops the stream and releases the device. Safe to call repeatedly.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.Stop()
		s.closeErr = s.reader.Close()
		slog.Info("audio stream closed", "frames", s.seq, "dropped_frames", s.dropped.Load())
	})
	return s.closeErr
}

func (s *Stream) Frames() uint64 {
	return s.seq
}

func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}
