package translator

import (
	"context"
	"fmt"
	"html"

	"cloud.google.com/go/auth/credentials"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

type CloudTranslateConfig struct {
	CredentialsJSON string
}

// CloudTranslator calls the Cloud Translation v2 API.
type CloudTranslator struct {
	service *translate.Service
}

func NewCloudTranslator(ctx context.Context, cfg CloudTranslateConfig) (translator.Translator, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-translation"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	return newCloudTranslator(ctx, option.WithAuthCredentials(creds))
}

func newCloudTranslator(ctx context.Context, opts ...option.ClientOption) (*CloudTranslator, error) {
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translation service: %w", err)
	}
	return &CloudTranslator{service: svc}, nil
}

func (t *CloudTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	resp, err := t.service.Translations.List([]string{text}, targetLanguage).
		Source(sourceLanguage).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("cloud translation: %w", err)
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("cloud translation returned no translations")
	}
	return html.UnescapeString(resp.Translations[0].TranslatedText), nil
}
