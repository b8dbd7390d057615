package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/tsuyaku/internal/config"
)

type envConfig struct {
	Env                        string `env:"ENV" envDefault:"production"`
	TranslationDirection       string `env:"TRANSLATION_DIRECTION" envDefault:"en-zh"`
	SourceLanguage             string `env:"SOURCE_LANGUAGE"`
	TargetLanguage             string `env:"TARGET_LANGUAGE"`
	TranscribeLanguage         string `env:"TRANSCRIBE_LANGUAGE"`
	TranslateVoiceID           string `env:"TRANSLATE_VOICE_ID"`
	PrimaryChannel             string `env:"PRIMARY_CHANNEL" envDefault:"0"`
	AudioInput                 string `env:"AUDIO_INPUT" envDefault:"device"`
	AudioDeviceIndex           int    `env:"AUDIO_DEVICE_INDEX" envDefault:"-1"`
	AudioSampleRate            int    `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioChannels              int    `env:"AUDIO_CHANNELS" envDefault:"1"`
	AudioFrameSamples          int    `env:"AUDIO_FRAME_SAMPLES" envDefault:"1024"`
	AudioRTPAddr               string `env:"AUDIO_RTP_ADDR"`
	AudioPCMPath               string `env:"AUDIO_PCM_PATH" envDefault:"-"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"us-central1"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	TranslateMode              string `env:"TRANSLATE_MODE" envDefault:"service"`
	GenerativeProvider         string `env:"GENERATIVE_PROVIDER" envDefault:"gemini"`
	GenerativeModelID          string `env:"GENERATIVE_MODEL_ID"`
	GeminiAPIKey               string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey               string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL              string `env:"OPENAI_BASE_URL"`
	TranslationTimeoutMs       int    `env:"TRANSLATION_TIMEOUT_MS" envDefault:"0"`
	TranslationMaxRetries      int    `env:"TRANSLATION_MAX_RETRIES" envDefault:"0"`
	TranslationRetryBackoffMs  int    `env:"TRANSLATION_RETRY_BACKOFF_MS" envDefault:"0"`
	LatencyReportEvery         int    `env:"LATENCY_REPORT_EVERY" envDefault:"1000"`
	DatabaseURL                string `env:"DATABASE_URL"`
	TranscribeLog              string `env:"TRANSCRIBE_LOG_PATH" envDefault:"transcribe.txt"`
	TranslateLog               string `env:"TRANSLATE_LOG_PATH" envDefault:"translate.txt"`
	DiscordToken               string `env:"DISCORD_TOKEN"`
	DiscordChannelID           string `env:"DISCORD_CHANNEL_ID"`
	RedisURL                   string `env:"REDIS_URL"`
	RedisChannel               string `env:"REDIS_CHANNEL" envDefault:"tsuyaku:segments"`
	WebhookURL                 string `env:"TRANSCRIPT_WEBHOOK_URL"`
	TranscriptZone             string `env:"TRANSCRIPT_TIMEZONE" envDefault:"UTC"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		TranslationDirection:       raw.TranslationDirection,
		SourceLanguage:             raw.SourceLanguage,
		TargetLanguage:             raw.TargetLanguage,
		TranscribeLanguage:         raw.TranscribeLanguage,
		TranslateVoiceID:           raw.TranslateVoiceID,
		PrimaryChannel:             raw.PrimaryChannel,
		AudioInput:                 raw.AudioInput,
		AudioDeviceIndex:           raw.AudioDeviceIndex,
		AudioSampleRate:            raw.AudioSampleRate,
		AudioChannels:              raw.AudioChannels,
		AudioFrameSamples:          raw.AudioFrameSamples,
		AudioRTPAddr:               raw.AudioRTPAddr,
		AudioPCMPath:               raw.AudioPCMPath,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		TranslateMode:              raw.TranslateMode,
		GenerativeProvider:         raw.GenerativeProvider,
		GenerativeModelID:          raw.GenerativeModelID,
		GeminiAPIKey:               raw.GeminiAPIKey,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		OpenAIBaseURL:              raw.OpenAIBaseURL,
		TranslationTimeoutMs:       raw.TranslationTimeoutMs,
		TranslationMaxRetries:      raw.TranslationMaxRetries,
		TranslationRetryBackoffMs:  raw.TranslationRetryBackoffMs,
		LatencyReportEvery:         raw.LatencyReportEvery,
		DatabaseURL:                raw.DatabaseURL,
		TranscribeLog:              raw.TranscribeLog,
		TranslateLog:               raw.TranslateLog,
		DiscordToken:               raw.DiscordToken,
		DiscordChannelID:           raw.DiscordChannelID,
		RedisURL:                   raw.RedisURL,
		RedisChannel:               raw.RedisChannel,
		WebhookURL:                 raw.WebhookURL,
		TranscriptZone:             raw.TranscriptZone,
	}
	if err := cfg.ApplyDirection(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
