package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	AudioInputDevice = "device"
	AudioInputRTP    = "rtp"
	AudioInputPCM    = "pcm"

	TranslateModeService    = "service"
	TranslateModeGenerative = "generative"

	GenerativeProviderGemini = "gemini"
	GenerativeProviderOpenAI = "openai"
)

type Config struct {
	Env string

	TranslationDirection string
	SourceLanguage       string
	TargetLanguage       string
	TranscribeLanguage   string
	TranslateVoiceID     string
	PrimaryChannel       string

	AudioInput        string
	AudioDeviceIndex  int
	AudioSampleRate   int
	AudioChannels     int
	AudioFrameSamples int
	AudioRTPAddr      string
	AudioPCMPath      string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	TranslateMode             string
	GenerativeProvider        string
	GenerativeModelID         string
	GeminiAPIKey              string
	OpenAIAPIKey              string
	OpenAIBaseURL             string
	TranslationTimeoutMs      int
	TranslationMaxRetries     int
	TranslationRetryBackoffMs int

	LatencyReportEvery int

	DatabaseURL      string
	TranscribeLog    string
	TranslateLog     string
	DiscordToken     string
	DiscordChannelID string
	RedisURL         string
	RedisChannel     string
	WebhookURL       string
	TranscriptZone   string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.AudioInput {
	case AudioInputDevice, AudioInputRTP, AudioInputPCM:
	default:
		return fmt.Errorf("AUDIO_INPUT must be one of %s, %s, %s, got %q", AudioInputDevice, AudioInputRTP, AudioInputPCM, c.AudioInput)
	}
	if c.AudioInput == AudioInputRTP && c.AudioRTPAddr == "" {
		return fmt.Errorf("AUDIO_RTP_ADDR is required when AUDIO_INPUT=%s", AudioInputRTP)
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive, got %d", c.AudioChannels)
	}
	if c.AudioFrameSamples <= 0 {
		return fmt.Errorf("AUDIO_FRAME_SAMPLES must be positive, got %d", c.AudioFrameSamples)
	}
	if err := c.validatePrimaryChannel(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if c.LatencyReportEvery <= 0 {
		return fmt.Errorf("LATENCY_REPORT_EVERY must be positive, got %d", c.LatencyReportEvery)
	}
	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	if _, err := time.LoadLocation(c.TranscriptZone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

func (c *Config) validatePrimaryChannel() error {
	n, err := strconv.Atoi(strings.TrimSpace(c.PrimaryChannel))
	if err != nil {
		return fmt.Errorf("PRIMARY_CHANNEL must be a channel number, got %q", c.PrimaryChannel)
	}
	// Mono audio carries a single channel "0"; multi-channel audio is
	// numbered from 1.
	if c.AudioChannels <= 1 {
		if n != 0 {
			return fmt.Errorf("PRIMARY_CHANNEL must be 0 for mono audio, got %d", n)
		}
		return nil
	}
	if n < 1 || n > c.AudioChannels {
		return fmt.Errorf("PRIMARY_CHANNEL %d is outside 1..%d for %d-channel audio", n, c.AudioChannels, c.AudioChannels)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	switch c.TranslateMode {
	case TranslateModeService:
	case TranslateModeGenerative:
		switch c.GenerativeProvider {
		case GenerativeProviderGemini:
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required when GENERATIVE_PROVIDER=%s", GenerativeProviderGemini)
			}
		case GenerativeProviderOpenAI:
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required when GENERATIVE_PROVIDER=%s", GenerativeProviderOpenAI)
			}
		default:
			return fmt.Errorf("GENERATIVE_PROVIDER must be %s or %s, got %q", GenerativeProviderGemini, GenerativeProviderOpenAI, c.GenerativeProvider)
		}
	default:
		return fmt.Errorf("TRANSLATE_MODE must be %s or %s, got %q", TranslateModeService, TranslateModeGenerative, c.TranslateMode)
	}
	if c.TranslationTimeoutMs < 0 || c.TranslationMaxRetries < 0 || c.TranslationRetryBackoffMs < 0 {
		return fmt.Errorf("translation timeout, retries and backoff must not be negative")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "SOURCE_LANGUAGE", value: c.SourceLanguage},
		{name: "TARGET_LANGUAGE", value: c.TargetLanguage},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "PRIMARY_CHANNEL", value: c.PrimaryChannel},
		{name: "TRANSCRIPT_TIMEZONE", value: c.TranscriptZone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) TranslationTimeout() time.Duration {
	return time.Duration(c.TranslationTimeoutMs) * time.Millisecond
}

func (c *Config) TranslationRetryBackoff() time.Duration {
	return time.Duration(c.TranslationRetryBackoffMs) * time.Millisecond
}
