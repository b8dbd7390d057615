//go:build !opus

package audio

import "errors"

func newOpusDecoder(_, _ int) (packetDecoder, error) {
	return nil, errors.New("built without opus support (rebuild with -tags opus)")
}
