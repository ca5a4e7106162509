// Package signer wraps secp256k1 signing for release attestations. Signatures
// follow the EVM signed-message convention: the digest is prefixed per EIP-191
// before signing so an attestation can never be replayed as a raw transaction.
package signer

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/OmniBazaar/Coin-sub013/internal/faults"
)

// ReleaseSigner signs attestation digests with an ODDAO member key and
// produces 65-byte [R || S || V] signatures with V in {27, 28}, the form the
// registry's ecrecover expects.
type ReleaseSigner struct {
	key *ecdsa.PrivateKey
}

// FromHex builds a signer from a hex-encoded secp256k1 private key. A leading
// 0x prefix is tolerated.
func FromHex(keyHex string) (*ReleaseSigner, error) {
	keyHex = strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	if keyHex == "" {
		return nil, faults.New(faults.Validation, "private key is empty")
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, faults.Wrap(faults.Validation, errors.Wrap(err, "parse private key"))
	}
	return &ReleaseSigner{key: key}, nil
}

// SignDigest applies the EIP-191 signed-message prefix to the 32-byte digest
// and signs the result.
func (s *ReleaseSigner) SignDigest(digest common.Hash) ([]byte, error) {
	prefixed := accounts.TextHash(digest.Bytes())

	signature, err := crypto.Sign(prefixed, s.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign digest")
	}

	// crypto.Sign returns V as {0,1}; the registry expects the EVM form {27,28}.
	v := signature[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	signature[crypto.RecoveryIDOffset] = (v & 1) + 27
	return signature, nil
}

// Address returns the Ethereum address derived from the signing key.
func (s *ReleaseSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// PrivateKey exposes the underlying key for transaction signing at submission
// time.
func (s *ReleaseSigner) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

// RecoverSigner returns the address that produced signature over digest under
// the same EIP-191 convention used by SignDigest.
func RecoverSigner(digest common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, errors.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	// Undo the EVM V offset before handing the signature to SigToPub.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), sig)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recover public key")
	}
	return crypto.PubkeyToAddress(*pub), nil
}
