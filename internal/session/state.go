package session

import (
	"strconv"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateDraining
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// SessionConfig is fixed for the lifetime of one pipeline run.
type SessionConfig struct {
	SampleRate         int
	Channels           int
	FrameSamples       int
	DeviceIndex        int
	SourceLanguage     string
	TargetLanguage     string
	TranscribeLanguage string
	PrimaryChannel     string
	Mode               translator.Mode
}

func SessionConfigFromConfig(c *config.Config) SessionConfig {
	return SessionConfig{
		SampleRate:         c.AudioSampleRate,
		Channels:           c.AudioChannels,
		FrameSamples:       c.AudioFrameSamples,
		DeviceIndex:        c.AudioDeviceIndex,
		SourceLanguage:     c.SourceLanguage,
		TargetLanguage:     c.TargetLanguage,
		TranscribeLanguage: c.TranscribeLanguage,
		PrimaryChannel:     c.PrimaryChannel,
		Mode:               translator.Mode(c.TranslateMode),
	}
}
