package reshare

import (
	"fmt"

	"github.com/luxfi/oprf-dkg/pkg/curve"
)

// decodeSharedPublicKey parses the registry's 64-byte raw (X||Y) OPRF
// public key encoding (spec.md §6's getOprfPublicKey return value).
func decodeSharedPublicKey(b []byte) (*curve.Point, error) {
	if len(b) != 64 {
		return nil, fmt.Errorf("reshare: expected 64-byte public key, got %d", len(b))
	}
	p := curve.Decode(b[:32], b[32:])
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
