// Package party defines the committee peer identifier, a small integer in
// [0, numPeers) derived deterministically from on-chain address ordering
// (spec.md §3).
package party

import (
	"sort"

	"github.com/luxfi/oprf-dkg/pkg/field"
)

// ID is a committee member's index in [0, numPeers).
type ID uint16

// Scalar returns id+1 as a field element, the evaluation point every
// polynomial is sampled at (never 0, spec.md §3 Polynomial).
func (id ID) Scalar() *field.Scalar {
	return field.NewFromUint64(uint64(id) + 1)
}

// IDSlice is a sortable list of peer ids, mirroring the teacher's
// party.IDSlice convention.
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sorted returns a sorted copy.
func (s IDSlice) Sorted() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id appears in s.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Committee describes the fixed set of peers for an OPRF key identifier's
// sharing: all N member ids and the reconstruction threshold t.
type Committee struct {
	Peers     IDSlice
	Threshold int
}

// NumPeers is N.
func (c Committee) NumPeers() int { return len(c.Peers) }
