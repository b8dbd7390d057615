package config

import (
	"fmt"
	"strings"
)

// Direction is a preset language pair. Voice IDs are kept for speech synthesis
// collaborators; the pipeline itself never reads them.
type Direction struct {
	SourceLanguage     string
	TargetLanguage     string
	TranscribeLanguage string
	VoiceID            string
}

var directions = map[string]Direction{
	"en-zh": {SourceLanguage: "en", TargetLanguage: "zh", TranscribeLanguage: "en-US", VoiceID: "Zhiyu"},
	"zh-en": {SourceLanguage: "zh", TargetLanguage: "en", TranscribeLanguage: "cmn-Hans-CN", VoiceID: "Joanna"},
}

func LookupDirection(name string) (Direction, error) {
	d, ok := directions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Direction{}, fmt.Errorf("translation direction %q is not implemented", name)
	}
	return d, nil
}

// ApplyDirection fills language fields left empty from the named preset.
func (c *Config) ApplyDirection() error {
	if c.TranslationDirection == "" {
		return nil
	}
	d, err := LookupDirection(c.TranslationDirection)
	if err != nil {
		return err
	}
	if c.SourceLanguage == "" {
		c.SourceLanguage = d.SourceLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = d.TargetLanguage
	}
	if c.TranscribeLanguage == "" {
		c.TranscribeLanguage = d.TranscribeLanguage
	}
	if c.TranslateVoiceID == "" {
		c.TranslateVoiceID = d.VoiceID
	}
	return nil
}
