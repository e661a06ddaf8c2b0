package sponge

import "github.com/luxfi/oprf-dkg/pkg/field"

// Poseidon2 absorbs all of inputs into a width-4 sponge (3 rate lanes, 1
// capacity lane seeded with domainSep) and squeezes one field element. Used
// as the general-purpose hash primitive (spec.md §4.1). The encryption
// cipher (sponge3, width 3) and CommitCoeffs do not call it; each runs its
// own absorption over the same permutation.
func Poseidon2(domainSep *field.Scalar, inputs ...*field.Scalar) *field.Scalar {
	s := state{domainSep, field.Zero(), field.Zero(), field.Zero()}
	i := 1
	for _, in := range inputs {
		if i == 4 {
			s = permute(s, rc4)
			i = 1
		}
		s[i] = s[i].Add(in)
		i++
	}
	s = permute(s, rc4)
	return s[1]
}

// SpongeCipherEncrypt implements spec.md §4.1's spongeCipher: absorb
// (domainSep, kx, nonce) with a width-3 Poseidon2 state, squeeze one
// element k, output share + k.
func SpongeCipherEncrypt(domainSep, kx, nonce, share *field.Scalar) *field.Scalar {
	k := sponge3(domainSep, kx, nonce)
	return share.Add(k)
}

// SpongeCipherDecrypt inverts SpongeCipherEncrypt: cipher - k.
func SpongeCipherDecrypt(domainSep, kx, nonce, cipher *field.Scalar) *field.Scalar {
	k := sponge3(domainSep, kx, nonce)
	return cipher.Sub(k)
}

func sponge3(domainSep, a, b *field.Scalar) *field.Scalar {
	s := state{domainSep, a, b}
	s = permute(s, rc3)
	return s[1]
}

// CommitCoeffs implements spec.md §4.1's commitCoeffs: a Poseidon2 sponge
// absorbing groups of three non-constant polynomial coefficients
// (zero-padded), capacity-seeded with DomainSeparatorKGC, returning the
// second state element after the final permutation.
func CommitCoeffs(coeffs []*field.Scalar) *field.Scalar {
	s := state{DomainSeparatorKGC, field.Zero(), field.Zero(), field.Zero()}
	i := 1
	flush := func() {
		s = permute(s, rc4)
		i = 1
	}
	for _, c := range coeffs {
		if i == 4 {
			flush()
		}
		s[i] = s[i].Add(c)
		i++
	}
	if i > 1 {
		flush()
	}
	return s[1]
}
