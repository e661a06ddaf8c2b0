package circuit

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// ErrUnsupportedParams is returned when no verifying key is registered for
// the requested (N,t) pair.
var ErrUnsupportedParams = errors.New("circuit: unsupported (N,t) pair")

// ErrProofInvalid is returned by Verify on proof verification failure; the
// registry surfaces this as a transaction revert (spec.md §4.6).
var ErrProofInvalid = errors.New("circuit: proof verification failed")

// paramKey identifies a (numPeers, threshold) pair.
type paramKey struct {
	NumPeers  int
	Threshold int
}

// registeredVKs is the table Design Note §9 calls for ("parameterize over
// (N, t) with a table, not conditionals"); populated by RegisterVerifyingKey
// at process start from operator-provided trusted-setup artifacts. Kept
// empty here — loading the artifact bytes is a deployment concern outside
// this package's scope.
var registeredVKs = map[paramKey]groth16.VerifyingKey{}

// RegisterVerifyingKey installs the verifying key for a supported (N,t)
// pair; spec.md §6 requires at minimum (2,3) and (3,5) to be supported.
func RegisterVerifyingKey(numPeers, threshold int, vk groth16.VerifyingKey) {
	registeredVKs[paramKey{numPeers, threshold}] = vk
}

// Verify checks a compressed Groth16 proof against the assembled public
// inputs for layout (numPeers, threshold).
func Verify(layout Layout, compressedProof []byte, publicInputs []*big.Int) error {
	vk, ok := registeredVKs[paramKey{layout.NumPeers, layout.Threshold}]
	if !ok {
		return fmt.Errorf("%w: N=%d t=%d", ErrUnsupportedParams, layout.NumPeers, layout.Threshold)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(compressedProof)); err != nil {
		return fmt.Errorf("%w: decode proof: %v", ErrProofInvalid, err)
	}

	assignment := make([]string, len(publicInputs))
	for i, v := range publicInputs {
		assignment[i] = v.String()
	}
	pubWitness, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("%w: witness init: %v", ErrProofInvalid, err)
	}
	if err := pubWitness.FromJSON([]byte(encodeAssignment(assignment))); err != nil {
		return fmt.Errorf("%w: witness decode: %v", ErrProofInvalid, err)
	}

	if err := groth16.Verify(proof, vk, pubWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}

// encodeAssignment renders a flat public-input vector as the minimal JSON
// object gnark's witness.FromJSON accepts for an anonymous input array
// ("inputs": [...]).
func encodeAssignment(values []string) string {
	buf := bytes.NewBufferString(`{"inputs":[`)
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(v)
		buf.WriteByte('"')
	}
	buf.WriteString(`]}`)
	return buf.String()
}
