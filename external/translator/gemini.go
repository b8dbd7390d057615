package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiTranslator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiTranslator(ctx context.Context, apiKey, modelID string) (translator.Translator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelID == "" {
		modelID = defaultGeminiModel
	}
	model := client.GenerativeModel(modelID)
	model.GenerationConfig.SetMaxOutputTokens(generativeMaxOutputTokens)
	model.GenerationConfig.SetTemperature(generativeTemperature)
	model.GenerationConfig.SetTopP(generativeTopP)
	return &GeminiTranslator{client: client, model: model}, nil
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	resp, err := t.model.GenerateContent(ctx, genai.Text(translationPrompt(text, sourceLanguage, targetLanguage)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return cleanTranslation(geminiResponseText(resp))
}

func (t *GeminiTranslator) Close() error {
	return t.client.Close()
}

func geminiResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
