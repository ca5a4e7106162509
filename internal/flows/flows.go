// Package flows implements the three protocol flows: attesting a publish,
// attesting a revoke, and submitting an aggregated operation to the release
// registry. Each flow is a short, sequential run over an injected Ledger and
// Store so the quorum and consistency logic is testable without a chain or a
// filesystem.
package flows

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/OmniBazaar/Coin-sub013/internal/attestation"
	"github.com/OmniBazaar/Coin-sub013/internal/encoding"
	"github.com/OmniBazaar/Coin-sub013/internal/faults"
	"github.com/OmniBazaar/Coin-sub013/internal/registry"
	"github.com/OmniBazaar/Coin-sub013/internal/signer"
)

// Service wires the flows to their collaborators.
type Service struct {
	ledger registry.Ledger
	store  attestation.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(ledger registry.Ledger, store attestation.Store, logger *zap.Logger) *Service {
	return &Service{
		ledger: ledger,
		store:  store,
		logger: logger.Named("flows"),
		now:    time.Now,
	}
}

// PublishRequest carries the operator-supplied fields for a publish
// attestation. BinaryHash must already be decoded to exactly 32 bytes.
type PublishRequest struct {
	Component          string
	Version            string
	BinaryHash         []byte
	MinVersion         string
	ChangelogReference string
}

// RevokeRequest carries the operator-supplied fields for a revoke attestation.
type RevokeRequest struct {
	Component string
	Version   string
	Reason    string
}

// AttestResult reports what the signer tool produced. Threshold is surfaced
// so the operator knows how many co-signers the operation still needs.
type AttestResult struct {
	Artifact  string
	Signer    common.Address
	Nonce     uint64
	Threshold int
}

// SubmitResult reports a confirmed submission and the verified on-chain state.
type SubmitResult struct {
	Receipt *registry.Receipt
	Record  *registry.ReleaseRecord
	Signers []common.Address
}

// AttestPublish runs the signer tool for a publish operation: authorization
// check, digest construction, EIP-191 signing, artifact persistence.
func (s *Service) AttestPublish(ctx context.Context, sgn *signer.ReleaseSigner, req *PublishRequest) (*AttestResult, error) {
	if err := validateRelease(req.Component, req.Version); err != nil {
		return nil, err
	}
	if len(req.BinaryHash) != encoding.HashSize {
		return nil, faults.New(faults.Validation, "binary hash must be %d bytes, got %d", encoding.HashSize, len(req.BinaryHash))
	}

	octx, err := s.operationContext(ctx, sgn.Address())
	if err != nil {
		return nil, err
	}

	digest, err := encoding.PublishDigest(req.Component, req.Version, req.BinaryHash, req.MinVersion,
		octx.nonce, s.ledger.ChainID(), s.ledger.RegistryAddress())
	if err != nil {
		return nil, err
	}

	sig, err := sgn.SignDigest(digest)
	if err != nil {
		return nil, err
	}

	art := &attestation.Attestation{
		Operation:          encoding.OpPublish,
		Signer:             sgn.Address(),
		Component:          req.Component,
		Version:            req.Version,
		BinaryHash:         common.BytesToHash(req.BinaryHash),
		MinVersion:         req.MinVersion,
		ChangelogReference: req.ChangelogReference,
		Nonce:              octx.nonce,
		ChainID:            s.ledger.ChainID(),
		RegistryAddress:    s.ledger.RegistryAddress(),
		Signature:          sig,
		SignedAt:           s.now().UTC(),
	}

	name, err := s.store.Put(art)
	if err != nil {
		return nil, err
	}

	s.logger.Info("publish attestation written",
		zap.String("artifact", name),
		zap.String("component", req.Component),
		zap.String("version", req.Version),
		zap.Uint64("nonce", octx.nonce),
		zap.Int("threshold", octx.threshold))

	return &AttestResult{Artifact: name, Signer: sgn.Address(), Nonce: octx.nonce, Threshold: octx.threshold}, nil
}

// AttestRevoke runs the signer tool for a revoke operation. On top of the
// publish checks it requires the release to exist and to not be revoked yet;
// the check happens before any signing so a misdirected revoke fails with a
// clear message instead of producing a doomed artifact.
func (s *Service) AttestRevoke(ctx context.Context, sgn *signer.ReleaseSigner, req *RevokeRequest) (*AttestResult, error) {
	if err := validateRelease(req.Component, req.Version); err != nil {
		return nil, err
	}
	if req.Reason == "" {
		return nil, faults.New(faults.Validation, "revoke reason is required")
	}

	octx, err := s.operationContext(ctx, sgn.Address())
	if err != nil {
		return nil, err
	}

	if err := s.checkRevocable(ctx, req.Component, req.Version); err != nil {
		return nil, err
	}

	digest := encoding.RevokeDigest(req.Component, req.Version, req.Reason,
		octx.nonce, s.ledger.ChainID(), s.ledger.RegistryAddress())

	sig, err := sgn.SignDigest(digest)
	if err != nil {
		return nil, err
	}

	art := &attestation.Attestation{
		Operation:       encoding.OpRevoke,
		Signer:          sgn.Address(),
		Component:       req.Component,
		Version:         req.Version,
		Reason:          req.Reason,
		Nonce:           octx.nonce,
		ChainID:         s.ledger.ChainID(),
		RegistryAddress: s.ledger.RegistryAddress(),
		Signature:       sig,
		SignedAt:        s.now().UTC(),
	}

	name, err := s.store.Put(art)
	if err != nil {
		return nil, err
	}

	s.logger.Info("revoke attestation written",
		zap.String("artifact", name),
		zap.String("component", req.Component),
		zap.String("version", req.Version),
		zap.String("reason", req.Reason),
		zap.Uint64("nonce", octx.nonce),
		zap.Int("threshold", octx.threshold))

	return &AttestResult{Artifact: name, Signer: sgn.Address(), Nonce: octx.nonce, Threshold: octx.threshold}, nil
}

// SubmitPublish aggregates the stored publish attestations for the current
// nonce and submits them. After confirmation the record is re-read and
// checked against what was signed; only then are the consumed artifacts
// reclaimed.
func (s *Service) SubmitPublish(ctx context.Context) (*SubmitResult, error) {
	quorum, err := s.aggregate(ctx, encoding.OpPublish)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.PublishRelease(ctx, &registry.PublishSubmission{
		Component:    quorum.Component,
		Version:      quorum.Version,
		BinaryHash:   quorum.BinaryHash,
		MinVersion:   quorum.MinVersion,
		ChangelogRef: quorum.ChangelogReference,
		Nonce:        quorum.Nonce,
		Signatures:   quorum.Signatures,
	})
	if err != nil {
		return nil, err
	}

	record, err := s.ledger.GetRelease(ctx, quorum.Component, quorum.Version)
	if err != nil {
		return nil, err
	}
	switch {
	case !record.Exists():
		return nil, faults.New(faults.PostconditionFailed, "release %s@%s has no publication timestamp after a confirmed publish", quorum.Component, quorum.Version)
	case record.Publisher != s.ledger.Submitter():
		return nil, faults.New(faults.PostconditionFailed, "release %s@%s records publisher %s, submitted from %s", quorum.Component, quorum.Version, record.Publisher.Hex(), s.ledger.Submitter().Hex())
	case record.BinaryHash != quorum.BinaryHash:
		return nil, faults.New(faults.PostconditionFailed, "release %s@%s stores hash %s, signed hash was %s", quorum.Component, quorum.Version, record.BinaryHash.Hex(), quorum.BinaryHash.Hex())
	}

	s.reclaim(quorum.Consumed)

	s.logger.Info("release published",
		zap.String("component", quorum.Component),
		zap.String("version", quorum.Version),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Int("signers", len(quorum.Signers)))

	return &SubmitResult{Receipt: receipt, Record: record, Signers: quorum.Signers}, nil
}

// SubmitRevoke is the revoke counterpart of SubmitPublish, with the release
// state re-checked locally before the network call.
func (s *Service) SubmitRevoke(ctx context.Context) (*SubmitResult, error) {
	quorum, err := s.aggregate(ctx, encoding.OpRevoke)
	if err != nil {
		return nil, err
	}

	// Fail fast on a revoke that the ledger would reject anyway.
	if err := s.checkRevocable(ctx, quorum.Component, quorum.Version); err != nil {
		return nil, err
	}

	receipt, err := s.ledger.RevokeRelease(ctx, &registry.RevokeSubmission{
		Component:  quorum.Component,
		Version:    quorum.Version,
		Reason:     quorum.Reason,
		Nonce:      quorum.Nonce,
		Signatures: quorum.Signatures,
	})
	if err != nil {
		return nil, err
	}

	record, err := s.ledger.GetRelease(ctx, quorum.Component, quorum.Version)
	if err != nil {
		return nil, err
	}
	switch {
	case !record.Revoked:
		return nil, faults.New(faults.PostconditionFailed, "release %s@%s is not revoked after a confirmed revoke", quorum.Component, quorum.Version)
	case record.RevokeReason != quorum.Reason:
		return nil, faults.New(faults.PostconditionFailed, "release %s@%s stores revoke reason %q, signed reason was %q", quorum.Component, quorum.Version, record.RevokeReason, quorum.Reason)
	}

	s.reclaim(quorum.Consumed)

	s.logger.Info("release revoked",
		zap.String("component", quorum.Component),
		zap.String("version", quorum.Version),
		zap.String("reason", quorum.Reason),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Int("signers", len(quorum.Signers)))

	return &SubmitResult{Receipt: receipt, Record: record, Signers: quorum.Signers}, nil
}

type operationContext struct {
	nonce     uint64
	threshold int
}

// operationContext fetches the live signer set, nonce, and threshold, and
// enforces membership. Membership is checked before any signing happens so a
// non-member never produces an artifact that aggregation would discard.
func (s *Service) operationContext(ctx context.Context, addr common.Address) (*operationContext, error) {
	members, err := s.ledger.Signers(ctx)
	if err != nil {
		return nil, err
	}

	authorized := false
	for _, m := range members {
		if m == addr {
			authorized = true
			break
		}
	}
	if !authorized {
		return nil, faults.New(faults.Authorization, "%s is not an ODDAO signer", addr.Hex())
	}

	nonce, err := s.ledger.CurrentNonce(ctx)
	if err != nil {
		return nil, err
	}
	threshold, err := s.ledger.Threshold(ctx)
	if err != nil {
		return nil, err
	}
	return &operationContext{nonce: nonce, threshold: threshold}, nil
}

// aggregate reads the live operation context, filters the store to the
// current nonce, and runs quorum aggregation. Artifacts bound to a different
// chain or registry than the configured ledger are a hard consistency fail:
// their signatures could never verify on this registry.
func (s *Service) aggregate(ctx context.Context, op encoding.Operation) (*attestation.Quorum, error) {
	nonce, err := s.ledger.CurrentNonce(ctx)
	if err != nil {
		return nil, err
	}
	threshold, err := s.ledger.Threshold(ctx)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.store.ListForNonce(op, nonce)
	if err != nil {
		return nil, err
	}
	for _, art := range artifacts {
		a := art.Attestation
		if a.ChainID != s.ledger.ChainID() {
			return nil, faults.New(faults.Consistency, "artifact %s targets chain %d, ledger is chain %d", art.Name, a.ChainID, s.ledger.ChainID())
		}
		if a.RegistryAddress != s.ledger.RegistryAddress() {
			return nil, faults.New(faults.Consistency, "artifact %s targets registry %s, ledger registry is %s", art.Name, a.RegistryAddress.Hex(), s.ledger.RegistryAddress().Hex())
		}
	}

	return attestation.Aggregate(artifacts, op, nonce, threshold)
}

// checkRevocable verifies the Published state locally. The ledger re-checks
// this on submission; the local check only exists to fail fast.
func (s *Service) checkRevocable(ctx context.Context, component, version string) error {
	record, err := s.ledger.GetRelease(ctx, component, version)
	if err != nil {
		return err
	}
	if !record.Exists() {
		return faults.New(faults.Precondition, "release %s@%s was never published", component, version)
	}
	if record.Revoked {
		return faults.New(faults.Precondition, "release %s@%s is already revoked (%s)", component, version, record.RevokeReason)
	}
	return nil
}

// reclaim deletes consumed artifacts. A failed deletion is logged and not
// fatal: the embedded nonce is stale after the submission, so a leftover file
// can never be replayed.
func (s *Service) reclaim(names []string) {
	for _, name := range names {
		if err := s.store.Remove(name); err != nil {
			s.logger.Warn("failed to remove consumed artifact", zap.String("artifact", name), zap.Error(err))
		}
	}
}

func validateRelease(component, version string) error {
	if component == "" {
		return faults.New(faults.Validation, "component is required")
	}
	if version == "" {
		return faults.New(faults.Validation, "version is required")
	}
	return nil
}
