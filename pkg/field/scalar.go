// Package field implements arithmetic in the BabyJubJub scalar field Fr.
package field

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
)

// orderHex is the order of the prime-order subgroup generated by the
// BabyJubJub base point B8 (ℓ in the spec), in big-endian hex.
const orderHex = "060c89ce5c263405370a08b6d0302b0bab3eedb83920ee0a677297dc392126f1"

// Order is the modulus all Scalar arithmetic reduces against.
var Order *saferith.Modulus

// orderBig mirrors Order as a math/big value, used only for the
// non-constant-time range checks performed while decoding untrusted wire
// bytes (SetBytesCanonical, Random's rejection sampling).
var orderBig *big.Int

func init() {
	raw, err := hex.DecodeString(orderHex)
	if err != nil {
		panic("field: invalid order literal: " + err.Error())
	}
	Order = saferith.ModulusFromNat(new(saferith.Nat).SetBytes(raw))
	orderBig = new(big.Int).SetBytes(raw)
}

// RangeError is returned when a value is not in [0, Order).
type RangeError struct{ Value string }

func (e *RangeError) Error() string { return fmt.Sprintf("field: value %s out of range", e.Value) }

// Scalar is an element of Fr, backed by a saferith.Nat reduced modulo Order.
// Scalar values are secrets in the DKG/reshare paths: callers that hold a
// share or polynomial coefficient must call Zeroize when done with it and
// must never log or serialize a Scalar via its String method.
type Scalar struct {
	value *saferith.Nat
}

// Zero returns the additive identity.
func Zero() *Scalar {
	return &Scalar{value: new(saferith.Nat)}
}

// One returns the multiplicative identity.
func One() *Scalar {
	return &Scalar{value: new(saferith.Nat).SetUint64(1)}
}

// NewFromNat reduces n modulo Order and wraps it as a Scalar.
func NewFromNat(n *saferith.Nat) *Scalar {
	return &Scalar{value: new(saferith.Nat).Mod(n, Order)}
}

// NewFromUint64 builds a Scalar from a small non-negative integer, used to
// encode PeerId+1 evaluation points.
func NewFromUint64(v uint64) *Scalar {
	return NewFromNat(new(saferith.Nat).SetUint64(v))
}

// NewFromBigInt reduces an arbitrary math/big.Int modulo Order. Used to
// import values produced by non-constant-time code (Poseidon2 round
// constant generation, curve coordinate absorption).
func NewFromBigInt(v *big.Int) *Scalar {
	reduced := new(big.Int).Mod(v, orderBig)
	b := reduced.Bytes()
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return &Scalar{value: new(saferith.Nat).SetBytes(padded)}
}

// Random draws a uniform element of Fr using the given randomness source.
// Used for polynomial coefficients, DH ephemeral secrets, and encryption
// nonces; every caller must use a CSPRNG (crypto/rand.Reader in production).
func Random(rnd io.Reader) (*Scalar, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	buf := make([]byte, 32)
	for {
		if _, err := io.ReadFull(rnd, buf); err != nil {
			return nil, err
		}
		n := new(saferith.Nat).SetBytes(buf)
		// Reject-and-resample keeps the distribution uniform over [0,Order).
		if new(big.Int).SetBytes(buf).Cmp(orderBig) < 0 {
			return &Scalar{value: n}, nil
		}
	}
}

// SetBytesCanonical decodes a canonical big-endian encoding and enforces
// range [0, Order), returning *RangeError otherwise.
func SetBytesCanonical(b []byte) (*Scalar, error) {
	if new(big.Int).SetBytes(b).Cmp(orderBig) >= 0 {
		return nil, &RangeError{Value: fmt.Sprintf("%x", b)}
	}
	n := new(saferith.Nat).SetBytes(b)
	return &Scalar{value: n}, nil
}

// Bytes returns the canonical big-endian encoding, 32 bytes wide.
func (s *Scalar) Bytes() []byte {
	return s.value.Bytes()
}

// Nat exposes the underlying saferith.Nat for point-multiplication call
// sites that need the raw representation (pkg/curve).
func (s *Scalar) Nat() *saferith.Nat { return s.value }

// Big returns the scalar as a math/big.Int, for call sites (pkg/curve,
// babyjubjub scalar multiplication) that need the standard library's
// bignum representation rather than saferith's constant-time one.
func (s *Scalar) Big() *big.Int {
	return new(big.Int).SetBytes(s.value.Bytes())
}

// OrderBig returns the subgroup order as a math/big.Int, for the subgroup
// check in pkg/curve (multiplying a candidate point by the full order).
func OrderBig() *big.Int {
	return new(big.Int).Set(orderBig)
}

// Add returns s + other mod Order.
func (s *Scalar) Add(other *Scalar) *Scalar {
	return &Scalar{value: new(saferith.Nat).ModAdd(s.value, other.value, Order)}
}

// Sub returns s - other mod Order.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	neg := new(saferith.Nat).ModNeg(other.value, Order)
	return &Scalar{value: new(saferith.Nat).ModAdd(s.value, neg, Order)}
}

// Mul returns s * other mod Order.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	return &Scalar{value: new(saferith.Nat).ModMul(s.value, other.value, Order)}
}

// Inverse returns s^-1 mod Order. Panics if s is zero; callers (Lagrange)
// must check IsZero first.
func (s *Scalar) Inverse() *Scalar {
	if s.IsZero() {
		panic("field: inverse of zero")
	}
	return &Scalar{value: new(saferith.Nat).ModInverse(s.value, Order)}
}

// Equal reports whether the two scalars represent the same field element.
func (s *Scalar) Equal(other *Scalar) bool {
	return s.value.Eq(other.value) == 1
}

// IsZero reports whether s is the additive identity.
func (s *Scalar) IsZero() bool {
	return s.value.EqZero() == 1
}

// Clone returns an independent copy.
func (s *Scalar) Clone() *Scalar {
	return &Scalar{value: new(saferith.Nat).SetNat(s.value)}
}

// Zeroize overwrites the backing storage. Callers must invoke this as soon
// as a share or coefficient is no longer needed (Design Note, SPEC_FULL §9).
func (s *Scalar) Zeroize() {
	if s == nil || s.value == nil {
		return
	}
	s.value.SetUint64(0)
}

// String never prints the secret value; only the type name, so that an
// accidental fmt.Printf/logging call cannot leak key material.
func (s *Scalar) String() string { return "field.Scalar{...}" }

// GoString mirrors String for %#v formatting.
func (s *Scalar) GoString() string { return s.String() }
