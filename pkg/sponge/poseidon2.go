// Package sponge implements the Poseidon2 permutation and the SAFE-style
// sponge construction the DKG/resharing core uses both as a hash
// (commitCoeffs) and as a stream cipher (spongeCipher), spec.md §4.1.
//
// No example in the retrieval pack ships a BabyJubJub-native Poseidon2
// permutation (the closest, iden3/go-iden3-crypto, implements Poseidon with
// circomlib's fixed round constants, not Poseidon2's two-layer round
// structure), so the permutation is hand-rolled here. Round constants are
// generated deterministically by expanding a fixed domain string with
// Keccak256 (the same primitive the pack's eigenx-kms-go node already
// imports go-ethereum/crypto for) and reducing modulo field.Order, so they are
// reproducible from source without vendoring an unavailable dependency.
package sponge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/oprf-dkg/pkg/field"
)

const (
	fullRounds    = 8
	partialRounds = 56
	alpha         = 5 // x^5 S-box, standard for this field size
)

// state is a Poseidon2 permutation state of a fixed width (3 or 4).
type state []*field.Scalar

// rc3 / rc4 (round constants) and mds3 / mds4 (mixing matrices) are
// generated once in init(); each permutation call needs
// fullRounds+partialRounds constants per lane.
var (
	rc3 [][]*field.Scalar
	rc4 [][]*field.Scalar

	mds3 [][]*field.Scalar
	mds4 [][]*field.Scalar
)

func init() {
	rc3 = generateRoundConstants("poseidon2-babyjubjub-w3", 3)
	rc4 = generateRoundConstants("poseidon2-babyjubjub-w4", 4)

	mds3 = generateCauchyMDS(3)
	mds4 = generateCauchyMDS(4)
}

func generateRoundConstants(domain string, width int) [][]*field.Scalar {
	total := fullRounds + partialRounds
	out := make([][]*field.Scalar, total)
	counter := uint64(0)
	for r := 0; r < total; r++ {
		row := make([]*field.Scalar, width)
		for lane := 0; lane < width; lane++ {
			seed := []byte(domain)
			seed = append(seed, byte(r), byte(lane))
			seed = append(seed, uint64Bytes(counter)...)
			counter++
			digest := crypto.Keccak256(seed)
			n := new(big.Int).SetBytes(digest)
			row[lane] = field.NewFromBigInt(n)
		}
		out[r] = row
	}
	return out
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

// generateCauchyMDS builds a width x width Cauchy matrix M[i][j] = 1/(x_i -
// y_j), with x_i = i and y_j = width+j so that no x_i ever collides with any
// y_j and every x_i - y_j is nonzero (hence invertible). Every square
// submatrix of a Cauchy matrix built from two disjoint, pairwise-distinct
// sequences is itself invertible, which is exactly the MDS property Poseidon
// (and Poseidon2) needs from its linear layer; this is the standard way to
// generate a Poseidon MDS matrix when no fixed one is supplied (Grassi et
// al., "Poseidon: A New Hash Function..."), used here because no pack
// dependency ships BabyJubJub-parameterized MDS constants.
func generateCauchyMDS(width int) [][]*field.Scalar {
	m := make([][]*field.Scalar, width)
	for i := 0; i < width; i++ {
		row := make([]*field.Scalar, width)
		x := field.NewFromUint64(uint64(i))
		for j := 0; j < width; j++ {
			y := field.NewFromUint64(uint64(width + j))
			row[j] = x.Sub(y).Inverse()
		}
		m[i] = row
	}
	return m
}

// mds applies the cached Cauchy MDS matrix for this state's width.
func mds(s state) state {
	w := len(s)
	var m [][]*field.Scalar
	switch w {
	case 3:
		m = mds3
	case 4:
		m = mds4
	default:
		panic("sponge: unsupported permutation width")
	}

	out := make(state, w)
	for i := 0; i < w; i++ {
		acc := field.Zero()
		for j := 0; j < w; j++ {
			acc = acc.Add(m[i][j].Mul(s[j]))
		}
		out[i] = acc
	}
	return out
}

func sbox(x *field.Scalar) *field.Scalar {
	x2 := x.Mul(x)
	x4 := x2.Mul(x2)
	return x4.Mul(x)
}

func permute(s state, rc [][]*field.Scalar) state {
	width := len(s)
	cur := make(state, width)
	copy(cur, s)

	halfFull := fullRounds / 2
	round := 0

	applyRound := func(fullSbox bool) {
		row := rc[round]
		for i := range cur {
			cur[i] = cur[i].Add(row[i])
		}
		if fullSbox {
			for i := range cur {
				cur[i] = sbox(cur[i])
			}
		} else {
			cur[0] = sbox(cur[0])
		}
		cur = mds(cur)
		round++
	}

	for i := 0; i < halfFull; i++ {
		applyRound(true)
	}
	for i := 0; i < partialRounds; i++ {
		applyRound(false)
	}
	for i := 0; i < halfFull; i++ {
		applyRound(true)
	}
	return cur
}

// DomainTag1 is the 80-bit SAFE sponge domain separator for the Round-2
// encryption cipher: absorb-2, squeeze-1, tag 0x4142 (spec.md §4.1).
//   0x80000002_00000001_4142 = (absorb 2 << 48) | (squeeze 1 << 16) | tag
var DomainTag1 = func() *field.Scalar {
	v, ok := new(big.Int).SetString("80000002000000014142", 16)
	if !ok {
		panic("sponge: invalid domain tag literal")
	}
	return field.NewFromBigInt(v)
}()

// DomainSeparatorKGC (DS_KGC) seeds commitCoeffs: a fixed capacity element
// distinguishing "polynomial coefficient commitment" absorptions from any
// other sponge use in this protocol.
var DomainSeparatorKGC = func() *field.Scalar {
	v, ok := new(big.Int).SetString("444f4d41494e5f4447434b", 16) // "DOMAIN_DGCK" ascii
	if !ok {
		panic("sponge: invalid DS_KGC literal")
	}
	return field.NewFromBigInt(v)
}()
