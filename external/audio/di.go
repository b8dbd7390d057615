package audio

import (
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Device, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.AudioInput {
		case config.AudioInputRTP:
			return NewRTPDevice(c.AudioRTPAddr), nil
		case config.AudioInputPCM:
			return NewPCMDevice(c.AudioPCMPath), nil
		default:
			return NewPortAudioDevice(), nil
		}
	})
}
