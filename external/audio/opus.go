//go:build opus

package audio

import "github.com/hraban/opus"

func newOpusDecoder(sampleRate, channels int) (packetDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return dec, nil
}
