package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

func TestPCMDevice_ReadsFramesAndDropsPartialTail(t *testing.T) {
	input := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5}
	dev := &PCMDevice{path: stdinPath, open: func(string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(input)), nil
	}}
	r, err := dev.Open(audio.Format{SampleRate: 16000, Channels: 1, FrameSamples: 2})
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	buf := make([]byte, 4)
	if err := r.ReadFrame(buf); err != nil || !bytes.Equal(buf, []byte{1, 0, 2, 0}) {
		t.Fatalf("unexpected first frame %v, err=%v", buf, err)
	}
	if err := r.ReadFrame(buf); err != nil || !bytes.Equal(buf, []byte{3, 0, 4, 0}) {
		t.Fatalf("unexpected second frame %v, err=%v", buf, err)
	}
	if err := r.ReadFrame(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF for partial tail, got %v", err)
	}
}

func TestPCMDevice_OpenFailureIsDeviceError(t *testing.T) {
	dev := &PCMDevice{path: "missing.pcm", open: func(string) (io.ReadCloser, error) {
		return nil, errors.New("no such file")
	}}
	if _, err := dev.Open(audio.Format{SampleRate: 16000, Channels: 1, FrameSamples: 2}); !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
}

func TestPCMReader_PacesFileInput(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration
	r := &pcmReader{
		src:   io.NopCloser(bytes.NewReader(make([]byte, 8))),
		pace:  20 * time.Millisecond,
		sleep: func(d time.Duration) { slept = append(slept, d) },
		now:   func() time.Time { return start },
	}
	buf := make([]byte, 4)
	for i := 0; i < 2; i++ {
		if err := r.ReadFrame(buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(slept) != 2 || slept[0] != 20*time.Millisecond || slept[1] != 40*time.Millisecond {
		t.Fatalf("unexpected pacing: %v", slept)
	}
}
