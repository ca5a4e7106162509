package attestation

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/OmniBazaar/Coin-sub013/internal/encoding"
	"github.com/OmniBazaar/Coin-sub013/internal/faults"
)

// Quorum is the aggregator's output: the agreed operation fields and the
// signature set ordered by ascending signer address, ready for submission.
type Quorum struct {
	Operation encoding.Operation
	Component string
	Version   string

	BinaryHash         common.Hash
	MinVersion         string
	ChangelogReference string
	Reason             string

	Nonce uint64

	// Signers and Signatures are parallel, sorted by ascending signer address.
	// The registry enforces strictly increasing signer order to reject
	// duplicate-signature padding.
	Signers    []common.Address
	Signatures [][]byte

	// Consumed names every artifact that fed this quorum, duplicates
	// included, so the submission client can reclaim them all.
	Consumed []string
}

// Aggregate validates mutual consistency of the artifacts, deduplicates by
// signer, enforces the threshold, and orders the signatures. The artifacts
// must already be filtered to the ledger's current nonce (Store.ListForNonce).
func Aggregate(artifacts []Stored, op encoding.Operation, nonce uint64, threshold int) (*Quorum, error) {
	if len(artifacts) == 0 {
		return nil, faults.New(faults.NoAttestations, "no attestations found for %s at nonce %d", op, nonce)
	}

	first := artifacts[0].Attestation
	q := &Quorum{
		Operation:          op,
		Component:          first.Component,
		Version:            first.Version,
		BinaryHash:         first.BinaryHash,
		MinVersion:         first.MinVersion,
		ChangelogReference: first.ChangelogReference,
		Reason:             first.Reason,
		Nonce:              nonce,
	}

	// Divergence is never auto-resolved: picking one side could authorize the
	// wrong release, so any mismatch aborts aggregation naming the culprit.
	seen := make(map[common.Address]Stored, len(artifacts))
	ordered := make([]Stored, 0, len(artifacts))
	for _, art := range artifacts {
		a := art.Attestation
		if err := a.Validate(); err != nil {
			return nil, faults.New(faults.Validation, "artifact %s: %v", art.Name, err)
		}
		if a.Nonce != nonce {
			return nil, faults.New(faults.Validation, "artifact %s carries nonce %d, expected %d", art.Name, a.Nonce, nonce)
		}
		if field, ok := divergentField(first, a); ok {
			return nil, faults.New(faults.Consistency, "artifact %s disagrees with %s on %s", art.Name, artifacts[0].Name, field)
		}

		q.Consumed = append(q.Consumed, art.Name)

		// One signer contributes at most one vote; later duplicates are
		// dropped, not summed. Address comparison is byte-level, which makes
		// the dedup case-insensitive regardless of how the hex was written.
		if _, dup := seen[a.Signer]; dup {
			continue
		}
		seen[a.Signer] = art
		ordered = append(ordered, art)
	}

	if len(ordered) < threshold {
		return nil, faults.New(faults.InsufficientQuorum, "%d unique signer(s) attested, threshold is %d", len(ordered), threshold)
	}

	sort.Slice(ordered, func(i, j int) bool {
		a := ordered[i].Attestation.Signer
		b := ordered[j].Attestation.Signer
		return bytes.Compare(a[:], b[:]) < 0
	})

	q.Signers = lo.Map(ordered, func(art Stored, _ int) common.Address {
		return art.Attestation.Signer
	})
	q.Signatures = lo.Map(ordered, func(art Stored, _ int) []byte {
		return art.Attestation.Signature
	})
	return q, nil
}

// divergentField compares the signed fields of two artifacts and names the
// first one that differs.
func divergentField(ref, a *Attestation) (string, bool) {
	switch {
	case a.Component != ref.Component:
		return "component", true
	case a.Version != ref.Version:
		return "version", true
	case a.Operation == encoding.OpPublish && a.BinaryHash != ref.BinaryHash:
		return "binaryHash", true
	case a.Operation == encoding.OpPublish && a.MinVersion != ref.MinVersion:
		return "minVersion", true
	case a.Operation == encoding.OpRevoke && a.Reason != ref.Reason:
		return "reason", true
	}
	return "", false
}
