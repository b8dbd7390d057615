//go:build !portaudio

package audio

import (
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

type noopDevice struct{}

func NewPortAudioDevice() audio.Device {
	return &noopDevice{}
}

func (d *noopDevice) Open(_ audio.Format) (audio.Reader, error) {
	return nil, fmt.Errorf("%w: built without portaudio support (rebuild with -tags portaudio)", audio.ErrDevice)
}

func (d *noopDevice) ListDevices() ([]audio.DeviceInfo, error) {
	return nil, fmt.Errorf("%w: built without portaudio support (rebuild with -tags portaudio)", audio.ErrDevice)
}
