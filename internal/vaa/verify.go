package vaa

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/guardian"
)

var (
	// ErrWrongGuardianSet is returned when the message references a
	// different guardian set than the one supplied for verification.
	ErrWrongGuardianSet = errors.New("message signed by a different guardian set")

	// ErrNoQuorum is returned when the signature count is below the set's
	// quorum threshold.
	ErrNoQuorum = errors.New("signature count below quorum")

	// ErrUnsortedSignatures is returned when signature guardian indices are
	// not strictly increasing. Strict ordering also rules out duplicates.
	ErrUnsortedSignatures = errors.New("signature guardian indices not strictly increasing")

	// ErrGuardianIndexOutOfRange is returned when a signature references a
	// guardian position past the end of the set.
	ErrGuardianIndexOutOfRange = errors.New("guardian index out of range")

	// ErrSignatureRecovery is returned when no public key can be recovered
	// from a signature.
	ErrSignatureRecovery = errors.New("signature recovery failed")

	// ErrGuardianMismatch is returned when a recovered key does not belong
	// to the guardian the signature claims to be from.
	ErrGuardianMismatch = errors.New("recovered key does not match guardian")
)

// Verify checks the message against the given guardian set, requiring the
// message to reference that exact set. There is no partial acceptance: any
// failing signature rejects the whole message.
func Verify(v *VAA, set *guardian.Set) error {
	if v.GuardianSetIndex != set.Index {
		return errors.Wrapf(ErrWrongGuardianSet,
			"message references set %d, verifying against set %d", v.GuardianSetIndex, set.Index)
	}

	return VerifyAgainst(v, set)
}

// VerifyAgainst checks quorum and every signature against the given set
// without comparing set indices. Callers use it when they have already
// resolved the set the message references (e.g. out of the registry).
func VerifyAgainst(v *VAA, set *guardian.Set) error {
	if quorum := set.Quorum(); len(v.Signatures) < quorum {
		return errors.Wrapf(ErrNoQuorum, "have %d signatures, need %d", len(v.Signatures), quorum)
	}

	digest := v.Digest()
	last := -1

	for i, sig := range v.Signatures {
		if int(sig.Index) <= last {
			return errors.Wrapf(ErrUnsortedSignatures,
				"signature %d has guardian index %d after %d", i, sig.Index, last)
		}
		last = int(sig.Index)

		if int(sig.Index) >= len(set.Keys) {
			return errors.Wrapf(ErrGuardianIndexOutOfRange,
				"guardian index %d, set has %d keys", sig.Index, len(set.Keys))
		}

		pub, err := crypto.SigToPub(digest[:], sig.Compact())
		if err != nil {
			return errors.Wrapf(ErrSignatureRecovery, "signature %d: %v", i, err)
		}

		if addr := crypto.PubkeyToAddress(*pub); addr != set.Keys[sig.Index] {
			return errors.Wrapf(ErrGuardianMismatch,
				"signature %d recovered %s, guardian %d is %s",
				i, addr.Hex(), sig.Index, set.Keys[sig.Index].Hex())
		}
	}

	return nil
}
