//go:build portaudio

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/gordonklaus/portaudio"
)

type PortAudioDevice struct{}

func NewPortAudioDevice() audio.Device {
	return &PortAudioDevice{}
}

func (d *PortAudioDevice) Open(format audio.Format) (audio.Reader, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize portaudio: %w", audio.ErrDevice, err)
	}
	dev, err := resolveInputDevice(format.DeviceIndex)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	if dev.MaxInputChannels < format.Channels {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: device %q supports %d input channels, %d requested", audio.ErrDevice, dev.Name, dev.MaxInputChannels, format.Channels)
	}

	buf := make([]int16, format.FrameSamples*format.Channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: format.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: format.FrameSamples,
	}, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: open %q at %d Hz: %w", audio.ErrDevice, dev.Name, format.SampleRate, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: start %q: %w", audio.ErrDevice, dev.Name, err)
	}
	slog.Info("portaudio input started", "device", dev.Name, "device_index", dev.Index)
	return &portAudioReader{stream: stream, buf: buf}, nil
}

func (d *PortAudioDevice) ListDevices() ([]audio.DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize portaudio: %w", audio.ErrDevice, err)
	}
	defer func() {
		_ = portaudio.Terminate()
	}()
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil {
		defaultIndex = def.Index
	}
	list := make([]audio.DeviceInfo, 0, len(devices))
	for _, dev := range devices {
		info := audio.DeviceInfo{
			Index:             dev.Index,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev.Index == defaultIndex,
		}
		if dev.HostApi != nil {
			info.HostAPI = dev.HostApi.Name
		}
		list = append(list, info)
	}
	return list, nil
}

func resolveInputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %w", audio.ErrDevice, err)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %w", audio.ErrDevice, err)
	}
	for _, dev := range devices {
		if dev.Index == index {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: device index %d not found", audio.ErrDevice, index)
}

type portAudioReader struct {
	stream *portaudio.Stream
	buf    []int16
}

func (r *portAudioReader) ReadFrame(out []byte) error {
	if err := r.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return audio.ErrOverflow
		}
		return err
	}
	for i, v := range r.buf {
		if (i+1)*2 > len(out) {
			break
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return nil
}

func (r *portAudioReader) Close() error {
	stopErr := r.stream.Stop()
	closeErr := r.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}
