package audio

import (
	"errors"
	"time"
)

var (
	ErrDevice   = errors.New("audio device unavailable")
	ErrOverflow = errors.New("audio input overflowed")
)

const bytesPerSample = 2

// Format describes 16-bit little-endian PCM capture.
type Format struct {
	SampleRate   int
	Channels     int
	FrameSamples int
	DeviceIndex  int
}

func (f Format) FrameBytes() int {
	return f.FrameSamples * f.Channels * bytesPerSample
}

func (f Format) FrameDuration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.FrameSamples) * time.Second / time.Duration(f.SampleRate)
}

type Frame struct {
	Seq        uint64
	Data       []byte
	CapturedAt time.Time
}

// Reader fills buf with exactly one frame. It returns ErrOverflow when the
// device could not be read in time and io.EOF once input is exhausted.
type Reader interface {
	ReadFrame(buf []byte) error
	Close() error
}

// Interrupter is implemented by readers whose ReadFrame can block
// indefinitely; Interrupt must make a pending ReadFrame return.
type Interrupter interface {
	Interrupt()
}

type Device interface {
	Open(format Format) (Reader, error)
}

type DeviceInfo struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// Lister is implemented by devices that can enumerate capture endpoints.
type Lister interface {
	ListDevices() ([]DeviceInfo, error)
}
