// Package registry defines the ledger boundary of the attestation protocol:
// the read and write surface of the on-chain release registry, plus an
// EVM-backed client. Flows depend on the Ledger interface so quorum and
// consistency logic is testable without a network.
package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ReleaseRecord mirrors the registry's stored release state. A record with a
// zero PublishedAt does not exist; Revoked only ever transitions false to
// true.
type ReleaseRecord struct {
	Component    string
	Version      string
	PublishedAt  uint64
	BinaryHash   common.Hash
	Publisher    common.Address
	Revoked      bool
	RevokeReason string
}

// Exists reports whether the registry holds a published record.
func (r *ReleaseRecord) Exists() bool {
	return r != nil && r.PublishedAt != 0
}

// Receipt summarizes a confirmed submission.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// PublishSubmission carries the agreed fields and the ordered signature set
// for a publish operation.
type PublishSubmission struct {
	Component    string
	Version      string
	BinaryHash   common.Hash
	MinVersion   string
	ChangelogRef string
	Nonce        uint64
	Signatures   [][]byte
}

// RevokeSubmission is the revoke counterpart of PublishSubmission.
type RevokeSubmission struct {
	Component  string
	Version    string
	Reason     string
	Nonce      uint64
	Signatures [][]byte
}

// Ledger is the authoritative system of record. It re-validates nonce, signer
// membership, and threshold on every write; the off-chain checks in this
// repository only exist to fail fast.
type Ledger interface {
	// CurrentNonce returns the operation nonce the next submission must carry.
	CurrentNonce(ctx context.Context) (uint64, error)
	// Signers returns the current ODDAO member set.
	Signers(ctx context.Context) ([]common.Address, error)
	// Threshold returns the minimum number of distinct signers.
	Threshold(ctx context.Context) (int, error)
	// GetRelease reads a release record. The returned record has a zero
	// PublishedAt when no such release was ever published.
	GetRelease(ctx context.Context, component, version string) (*ReleaseRecord, error)

	// PublishRelease submits a publish operation and waits for confirmation.
	PublishRelease(ctx context.Context, sub *PublishSubmission) (*Receipt, error)
	// RevokeRelease submits a revoke operation and waits for confirmation.
	RevokeRelease(ctx context.Context, sub *RevokeSubmission) (*Receipt, error)

	// Submitter is the account used for write submissions.
	Submitter() common.Address
	// ChainID identifies the chain the registry lives on.
	ChainID() uint64
	// RegistryAddress is the registry contract address.
	RegistryAddress() common.Address
}
