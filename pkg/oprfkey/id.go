// Package oprfkey defines the externally chosen identifier naming a single
// OPRF key (spec.md §3: one key, one sharing, many epochs).
package oprfkey

import (
	"encoding/hex"
	"errors"
)

// ID is a 160-bit OPRF key identifier.
type ID [20]byte

// ErrZeroID is returned by Validate for the all-zero identifier, which is
// never a valid externally-chosen key name.
var ErrZeroID = errors.New("oprfkey: zero id is not valid")

// Validate rejects the all-zero id.
func (id ID) Validate() error {
	var zero ID
	if id == zero {
		return ErrZeroID
	}
	return nil
}

// String returns the canonical 0x-prefixed hex encoding.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// FromHex parses a 0x-prefixed or bare hex string into an ID.
func FromHex(s string) (ID, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, errors.New("oprfkey: wrong length")
	}
	copy(id[:], b)
	return id, nil
}

// Epoch is the 32-bit resharing generation counter; 0 is the initial DKG
// epoch and each successful reshare increments it by one (spec.md §3).
type Epoch uint32
