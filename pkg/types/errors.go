package types

import "errors"

// Error kinds, spec.md §7. Each is a sentinel wrapped with fmt.Errorf at the
// call site so errors.Is still matches while context is preserved.
// pkg/dispatch logs a handler error of any kind and goes on with the next
// event; no kind is retried or stops a shard.
var (
	// ErrInvariantViolation: local state diverges from chain.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrBadContribution covers wrong round, deleted key, unknown key,
	// duplicate submission, invalid point, empty/mixed commitments, proof
	// verification failure, stale nullifier.
	ErrBadContribution = errors.New("bad contribution")

	// ErrAlreadySubmitted: double submission on any round.
	ErrAlreadySubmitted = errors.New("already submitted")
	// ErrDeletedID: the key has been soft-deleted.
	ErrDeletedID = errors.New("deleted id")
	// ErrUnknownID: no state exists for this OprfKeyId.
	ErrUnknownID = errors.New("unknown id")
	// ErrWrongRound: contribution submitted for a round other than the
	// current one.
	ErrWrongRound = errors.New("wrong round")
	// ErrInvalidPoint: a submitted point failed on-curve/subgroup checks.
	ErrInvalidPoint = errors.New("invalid point")
	// ErrNotEnoughProducers: fewer than threshold peers volunteered in a
	// reshare's Round 1.
	ErrNotEnoughProducers = errors.New("not enough producers")

	// ErrTransientChain: RPC timeout, nonce collision, reorg.
	ErrTransientChain = errors.New("transient chain error")

	// ErrStorageFailure: DB unavailable or constraint violation.
	ErrStorageFailure = errors.New("storage failure")
	// ErrStaleWrite: upsertShare observed a row with a strictly greater
	// epoch already stored.
	ErrStaleWrite = errors.New("stale write")

	// ErrCryptoFailure: share failed its commitment check at Round 3.
	// Non-recoverable for that OprfKeyId.
	ErrCryptoFailure = errors.New("crypto failure")
)
