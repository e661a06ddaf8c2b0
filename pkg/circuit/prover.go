package circuit

import (
	"errors"
	"math/big"
)

// ErrNoProver names the case of a node configured without proving
// artifacts for the requested (N,t) pair. The keygen and reshare handlers
// do not return it: with a nil Prover they submit Round 2 without a proof.
var ErrNoProver = errors.New("circuit: no prover configured for this (N,t)")

// Prover builds the Round-2 Groth16 proof attesting that a Producer's
// ciphertexts and commitments are consistent with a single degree-(t-1)
// polynomial (spec.md §4.4). Assignment carries every private witness
// value the circuit needs (the polynomial coefficients, the per-recipient
// shares, the ephemeral secret) keyed by the same names the public-input
// Layout documents; the concrete R1CS definition and trusted setup are a
// deployment artifact outside this package.
type Prover interface {
	Prove(layout Layout, publicInputs []*big.Int, assignment map[string]*big.Int) (compressedProof []byte, err error)
}
