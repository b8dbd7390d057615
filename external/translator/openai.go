package translator

import (
	"context"
	"fmt"
	"math"

	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

type OpenAITranslator struct {
	client *openai.Client
	model  string
}

func NewOpenAITranslator(apiKey, baseURL, modelID string) translator.Translator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelID == "" {
		modelID = defaultOpenAIModel
	}
	return &OpenAITranslator{client: openai.NewClientWithConfig(cfg), model: modelID}
}

func (t *OpenAITranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: translationPrompt(text, sourceLanguage, targetLanguage)},
		},
		MaxTokens:   generativeMaxOutputTokens,
		Temperature: openAITemperature(generativeTemperature),
		TopP:        generativeTopP,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return cleanTranslation(resp.Choices[0].Message.Content)
}

// openAITemperature maps zero to the smallest positive value: the request
// omits a zero temperature and the API would fall back to its default.
func openAITemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
