package translator

import (
	"fmt"
	"strings"
)

const (
	generativeMaxOutputTokens = 2048
	generativeTemperature     = 0
	generativeTopP            = 1
)

func translationPrompt(text, sourceLanguage, targetLanguage string) string {
	return fmt.Sprintf("Translate the following %s text to %s. Only return the translated text without any explanations or additional context:\n\n%s",
		sourceLanguage, targetLanguage, text)
}

func cleanTranslation(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return s, nil
}
