// Package encoding builds the canonical digest an ODDAO signer attests to.
// The byte layout must match what the registry contract recomputes during
// signature recovery; any divergence in field order, width, or prefixing
// produces digests that can never reach quorum.
package encoding

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OmniBazaar/Coin-sub013/internal/faults"
)

// Operation discriminates the two digest layouts so identical release fields
// can never be replayed across operations.
type Operation string

const (
	OpPublish Operation = "PUBLISH_RELEASE"
	OpRevoke  Operation = "REVOKE"
)

// HashSize is the required length of a release binary hash.
const HashSize = 32

// Canonical layout, shared sections in order:
//
//	4 + t     operation tag (length-prefixed, big-endian uint32 prefix)
//	4 + n     component
//	4 + m     version
//	          per-operation fields (see PublishDigest / RevokeDigest)
//	8 bytes   operation nonce (big-endian)
//	8 bytes   chain ID (big-endian)
//	20 bytes  registry contract address
//
// The result is the keccak256 of the concatenation.

// PublishDigest computes the digest for a publish operation. The
// per-operation section is the raw 32-byte binary hash followed by the
// length-prefixed minimum-compatible version.
func PublishDigest(component, version string, binaryHash []byte, minVersion string, nonce, chainID uint64, registry common.Address) (common.Hash, error) {
	if len(binaryHash) != HashSize {
		return common.Hash{}, faults.New(faults.Validation, "binary hash must be %d bytes, got %d", HashSize, len(binaryHash))
	}

	var buf bytes.Buffer
	writeLengthPrefixed(&buf, []byte(OpPublish))
	writeLengthPrefixed(&buf, []byte(component))
	writeLengthPrefixed(&buf, []byte(version))
	buf.Write(binaryHash)
	writeLengthPrefixed(&buf, []byte(minVersion))
	writeTrailer(&buf, nonce, chainID, registry)

	return crypto.Keccak256Hash(buf.Bytes()), nil
}

// RevokeDigest computes the digest for a revoke operation. The per-operation
// section is the length-prefixed revocation reason.
func RevokeDigest(component, version, reason string, nonce, chainID uint64, registry common.Address) common.Hash {
	var buf bytes.Buffer
	writeLengthPrefixed(&buf, []byte(OpRevoke))
	writeLengthPrefixed(&buf, []byte(component))
	writeLengthPrefixed(&buf, []byte(version))
	writeLengthPrefixed(&buf, []byte(reason))
	writeTrailer(&buf, nonce, chainID, registry)

	return crypto.Keccak256Hash(buf.Bytes())
}

func writeTrailer(buf *bytes.Buffer, nonce, chainID uint64, registry common.Address) {
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], nonce)
	buf.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], chainID)
	buf.Write(scratch[:])
	buf.Write(registry.Bytes())
}

// writeLengthPrefixed emits a big-endian uint32 length followed by the bytes.
func writeLengthPrefixed(buf *bytes.Buffer, b []byte) {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(b)))
	buf.Write(prefix[:])
	buf.Write(b)
}
