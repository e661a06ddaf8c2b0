package sharing

import (
	"io"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/sponge"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// EphemeralKeyPair is a fresh per-OprfKeyId, per-round Diffie-Hellman
// keypair (spec.md §4.3: "fresh ephemeral DH keypair").
type EphemeralKeyPair struct {
	Secret *field.Scalar
	Public *curve.Point
}

// NewEphemeralKeyPair draws esk and computes epk = esk*G.
func NewEphemeralKeyPair(rnd io.Reader) (*EphemeralKeyPair, error) {
	esk, err := field.Random(rnd)
	if err != nil {
		return nil, err
	}
	return &EphemeralKeyPair{Secret: esk, Public: curve.ScalarBaseMul(esk)}, nil
}

// SharedSecret derives K = esk * otherEpk (spec.md §4.4 step 2).
func (kp *EphemeralKeyPair) SharedSecret(otherEpk *curve.Point) *curve.Point {
	return otherEpk.ScalarMul(kp.Secret)
}

// EncryptShare implements spec.md §4.4 steps 1-5 for one recipient: derive
// K from the sender's ephemeral secret and the recipient's ephemeral
// public key, encrypt share under a fresh nonce, and commit to the share.
func EncryptShare(senderEsk *field.Scalar, recipientEpk *curve.Point, share *field.Scalar, nonce *field.Scalar) types.SecretGenCiphertext {
	k := recipientEpk.ScalarMul(senderEsk)
	kx := field.NewFromBigInt(k.XBig())
	cipher := sponge.SpongeCipherEncrypt(sponge.DomainTag1, kx, nonce, share)
	return types.SecretGenCiphertext{
		Nonce:      nonce,
		Cipher:     cipher,
		Commitment: curve.ScalarBaseMul(share),
	}
}

// DecryptAndVerify implements spec.md §4.5 step 2: recover s_ij from a
// ciphertext and verify it against the sender's declared commitment,
// reporting ok=false on mismatch (callers map this to a
// BadContribution/CryptoFailure per the error-kind table, spec.md §7).
func DecryptAndVerify(recipientEsk *field.Scalar, senderEpk *curve.Point, ct types.SecretGenCiphertext) (*field.Scalar, bool) {
	k := senderEpk.ScalarMul(recipientEsk)
	kx := field.NewFromBigInt(k.XBig())
	share := sponge.SpongeCipherDecrypt(sponge.DomainTag1, kx, ct.Nonce, ct.Cipher)
	ok := curve.ScalarBaseMul(share).Equal(ct.Commitment)
	return share, ok
}

// NonceTracker enforces "nonces must not be reused within an OprfKeyId
// epoch" (spec.md §4.4 step 3, Design Note §9): a per-(sender,epoch)
// CSPRNG-backed generator that rejects collisions against everything it has
// issued so far this epoch.
type NonceTracker struct {
	rnd  io.Reader
	seen map[string]bool
}

// NewNonceTracker returns a tracker drawing from rnd.
func NewNonceTracker(rnd io.Reader) *NonceTracker {
	return &NonceTracker{rnd: rnd, seen: make(map[string]bool)}
}

// Next draws a fresh nonce, resampling on the (astronomically unlikely)
// event of a collision against everything issued so far by this tracker.
func (t *NonceTracker) Next() (*field.Scalar, error) {
	for {
		n, err := field.Random(t.rnd)
		if err != nil {
			return nil, err
		}
		key := string(n.Bytes())
		if !t.seen[key] {
			t.seen[key] = true
			return n, nil
		}
	}
}
