// Package circuit assembles and verifies the Round-2 Groth16 proof's public
// inputs, in the exact order spec.md §4.4 mandates, and wraps
// consensys/gnark's groth16 backend over gnark-crypto/ecc/bn254 for the
// actual proving system (SPEC_FULL §4.4). The public-input layout is kept
// table-driven per (N,t), never conditional branches, per Design Note
// (spec.md §9: "any off-by-one silently rejects all proofs").
package circuit

import (
	"math/big"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// Layout describes, for a fixed (N, t), the slot index of every public
// input named in spec.md §4.4's table.
type Layout struct {
	NumPeers  int
	Threshold int
}

// Len returns the total public input vector length: 5 + 5N + 1 + N = 6+6N.
func (l Layout) Len() int {
	return 5 + 5*l.NumPeers + 1 + l.NumPeers
}

// Assemble builds the public-input vector for a Producer's own
// contribution, in the exact slot order of spec.md §4.4:
//
//	[0]                     ownEphPub.x
//	[1]                     ownEphPub.y
//	[2]                     ownCommShare.x
//	[3]                     ownCommShare.y
//	[4]                     ownCommCoeffs
//	[5+i]                   cipher_i,                     i in [0,N)
//	[5+N+2i..+1]            commitment_i.(x,y),           i in [0,N)
//	[5+3N]                  threshold-1
//	[5+3N+1+2i..+1]         recipientEphPub_i.(x,y),      i in [0,N)
//	[5+5N+1+i]              nonce_i,                      i in [0,N)
func Assemble(layout Layout, ownEphPub, ownCommShare *curve.Point, ownCommCoeffs *field.Scalar, ciphers []types.SecretGenCiphertext, recipientEphPub []*curve.Point) []*big.Int {
	n := layout.NumPeers
	out := make([]*big.Int, layout.Len())

	out[0] = new(big.Int).SetBytes(ownEphPub.X())
	out[1] = new(big.Int).SetBytes(ownEphPub.Y())
	out[2] = new(big.Int).SetBytes(ownCommShare.X())
	out[3] = new(big.Int).SetBytes(ownCommShare.Y())
	out[4] = new(big.Int).SetBytes(ownCommCoeffs.Bytes())

	for i := 0; i < n; i++ {
		out[5+i] = new(big.Int).SetBytes(ciphers[i].Cipher.Bytes())
	}
	base := 5 + n
	for i := 0; i < n; i++ {
		out[base+2*i] = new(big.Int).SetBytes(ciphers[i].Commitment.X())
		out[base+2*i+1] = new(big.Int).SetBytes(ciphers[i].Commitment.Y())
	}

	out[5+3*n] = big.NewInt(int64(layout.Threshold - 1))

	base = 5 + 3*n + 1
	for i := 0; i < n; i++ {
		out[base+2*i] = new(big.Int).SetBytes(recipientEphPub[i].X())
		out[base+2*i+1] = new(big.Int).SetBytes(recipientEphPub[i].Y())
	}

	base = 5 + 5*n + 1
	for i := 0; i < n; i++ {
		out[base+i] = new(big.Int).SetBytes(ciphers[i].Nonce.Bytes())
	}

	return out
}

// RecipientEphPubKeys gathers the recipients' Round-1 ephemeral public keys
// in PeerId order, the shape Assemble's recipientEphPub parameter expects.
func RecipientEphPubKeys(round1 []types.Round1Contribution) []*curve.Point {
	out := make([]*curve.Point, len(round1))
	for i, c := range round1 {
		out[i] = c.EphPubKey
	}
	return out
}
