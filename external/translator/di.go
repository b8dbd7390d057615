package translator

import (
	"context"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*translator.Dispatcher, error) {
		c := do.MustInvoke[*config.Config](i)
		ctx := context.Background()

		backends := map[translator.Mode]translator.Translator{}
		service, err := NewCloudTranslator(ctx, CloudTranslateConfig{CredentialsJSON: c.GoogleCloudCredentialsJSON})
		if err != nil {
			return nil, err
		}
		backends[translator.ModeService] = service

		if c.TranslateMode == config.TranslateModeGenerative {
			switch c.GenerativeProvider {
			case config.GenerativeProviderOpenAI:
				backends[translator.ModeGenerative] = NewOpenAITranslator(c.OpenAIAPIKey, c.OpenAIBaseURL, c.GenerativeModelID)
			default:
				gemini, err := NewGeminiTranslator(ctx, c.GeminiAPIKey, c.GenerativeModelID)
				if err != nil {
					return nil, err
				}
				backends[translator.ModeGenerative] = gemini
			}
		}

		return translator.NewDispatcher(backends, translator.Policy{
			Timeout:    c.TranslationTimeout(),
			MaxRetries: c.TranslationMaxRetries,
			Backoff:    c.TranslationRetryBackoff(),
		}), nil
	})
}
