// Package attestation holds the artifact produced by each ODDAO signer, the
// shared mailbox the artifacts accumulate in, and the aggregation logic that
// turns them into an ordered signature set ready for submission.
package attestation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OmniBazaar/Coin-sub013/internal/encoding"
	"github.com/OmniBazaar/Coin-sub013/internal/faults"
)

// Attestation is one signer's endorsement of a publish or revoke operation.
// An artifact is written once by its signer and never mutated; it stays valid
// until the ledger's nonce advances past the embedded one.
type Attestation struct {
	Operation encoding.Operation `json:"operation"`
	Signer    common.Address     `json:"signer"`
	Component string             `json:"component"`
	Version   string             `json:"version"`

	// Publish-only fields.
	BinaryHash         common.Hash `json:"binaryHash"`
	MinVersion         string      `json:"minVersion,omitempty"`
	ChangelogReference string      `json:"changelogReference,omitempty"`

	// Revoke-only field.
	Reason string `json:"reason,omitempty"`

	Nonce           uint64         `json:"nonce"`
	ChainID         uint64         `json:"chainId"`
	RegistryAddress common.Address `json:"registryAddress"`
	Signature       hexutil.Bytes  `json:"signature"`
	SignedAt        time.Time      `json:"signedAt"`
}

// Validate checks structural integrity. It does not verify the signature;
// the registry contract is the authority on signature validity.
func (a *Attestation) Validate() error {
	switch a.Operation {
	case encoding.OpPublish, encoding.OpRevoke:
	default:
		return faults.New(faults.Validation, "unknown operation %q", a.Operation)
	}
	if a.Component == "" {
		return faults.New(faults.Validation, "component is empty")
	}
	if a.Version == "" {
		return faults.New(faults.Validation, "version is empty")
	}
	if a.Operation == encoding.OpRevoke && a.Reason == "" {
		return faults.New(faults.Validation, "revoke reason is empty")
	}
	if len(a.Signature) != crypto.SignatureLength {
		return faults.New(faults.Validation, "signature must be %d bytes, got %d", crypto.SignatureLength, len(a.Signature))
	}
	return nil
}

// Filename derives the artifact name. The signer suffix keeps independent
// signers from overwriting each other's files in the shared directory.
func (a *Attestation) Filename() string {
	op := "publish"
	if a.Operation == encoding.OpRevoke {
		op = "revoke"
	}
	signerID := strings.ToLower(a.Signer.Hex()[2:10])
	return fmt.Sprintf("%s-%s-%s-%s.json", op, sanitize(a.Component), sanitize(a.Version), signerID)
}

// sanitize keeps artifact names filesystem-safe across platforms.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
