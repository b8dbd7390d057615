package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

const stdinPath = "-"

// PCMDevice reads raw 16-bit little-endian PCM from a file or stdin, e.g.
// `arecord -f S16_LE -r 16000 -c 1 | tsuyaku`. Files are paced to real time;
// stdin is assumed to be paced by its producer.
type PCMDevice struct {
	path string
	open func(path string) (io.ReadCloser, error)
}

func NewPCMDevice(path string) audio.Device {
	return &PCMDevice{path: path, open: openPCMInput}
}

func openPCMInput(path string) (io.ReadCloser, error) {
	if path == "" || path == stdinPath {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func (d *PCMDevice) Open(format audio.Format) (audio.Reader, error) {
	rc, err := d.open(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pcm input %q: %w", audio.ErrDevice, d.path, err)
	}
	r := &pcmReader{src: rc, sleep: time.Sleep, now: time.Now}
	if d.path != "" && d.path != stdinPath {
		r.pace = format.FrameDuration()
	}
	return r, nil
}

type pcmReader struct {
	src   io.ReadCloser
	pace  time.Duration
	next  time.Time
	sleep func(time.Duration)
	now   func() time.Time
}

func (r *pcmReader) ReadFrame(buf []byte) error {
	if _, err := io.ReadFull(r.src, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}
	if r.pace > 0 {
		now := r.now()
		if r.next.IsZero() {
			r.next = now
		}
		r.next = r.next.Add(r.pace)
		if wait := r.next.Sub(now); wait > 0 {
			r.sleep(wait)
		}
	}
	return nil
}

func (r *pcmReader) Close() error {
	return r.src.Close()
}
