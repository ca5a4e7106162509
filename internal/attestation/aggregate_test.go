package attestation

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmniBazaar/Coin-sub013/internal/encoding"
	"github.com/OmniBazaar/Coin-sub013/internal/faults"
)

func stored(name string, a *Attestation) Stored {
	return Stored{Name: name, Attestation: a}
}

func TestAggregate(t *testing.T) {
	t.Run("EmptySetFails", func(t *testing.T) {
		_, err := Aggregate(nil, encoding.OpPublish, 7, 2)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.NoAttestations))
	})

	t.Run("QuorumReached", func(t *testing.T) {
		a1 := testAttestation(addr(2), encoding.OpPublish, 7)
		a2 := testAttestation(addr(1), encoding.OpPublish, 7)

		q, err := Aggregate([]Stored{stored("f1", a1), stored("f2", a2)}, encoding.OpPublish, 7, 2)
		require.NoError(t, err)

		assert.Equal(t, "validator", q.Component)
		assert.Equal(t, "1.2.0", q.Version)
		assert.Equal(t, uint64(7), q.Nonce)
		require.Len(t, q.Signatures, 2)
		assert.ElementsMatch(t, []string{"f1", "f2"}, q.Consumed)
	})

	t.Run("SignersOrderedAscending", func(t *testing.T) {
		arts := []Stored{
			stored("c", testAttestation(addr(3), encoding.OpPublish, 7)),
			stored("a", testAttestation(addr(1), encoding.OpPublish, 7)),
			stored("b", testAttestation(addr(2), encoding.OpPublish, 7)),
		}

		q, err := Aggregate(arts, encoding.OpPublish, 7, 3)
		require.NoError(t, err)

		require.Len(t, q.Signers, 3)
		for i := 1; i < len(q.Signers); i++ {
			prev, cur := q.Signers[i-1], q.Signers[i]
			assert.True(t, bytes.Compare(prev[:], cur[:]) < 0,
				"signers must be in strictly increasing address order")
		}
	})

	t.Run("DuplicateSignerCountsOnce", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpPublish, 7)
		a2 := testAttestation(addr(1), encoding.OpPublish, 7) // same signer, second file

		_, err := Aggregate([]Stored{stored("f1", a1), stored("f2", a2)}, encoding.OpPublish, 7, 2)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.InsufficientQuorum),
			"two files from one signer are a single vote")
	})

	t.Run("DuplicateKeepsFirstOccurrence", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpPublish, 7)
		a1.Signature[0] = 0xAA
		a2 := testAttestation(addr(1), encoding.OpPublish, 7)
		a2.Signature[0] = 0xBB

		q, err := Aggregate([]Stored{stored("f1", a1), stored("f2", a2)}, encoding.OpPublish, 7, 1)
		require.NoError(t, err)

		require.Len(t, q.Signatures, 1)
		assert.Equal(t, byte(0xAA), q.Signatures[0][0])
		assert.ElementsMatch(t, []string{"f1", "f2"}, q.Consumed, "the dropped duplicate is still consumed")
	})

	t.Run("BelowThresholdFails", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpPublish, 7)

		_, err := Aggregate([]Stored{stored("f1", a1)}, encoding.OpPublish, 7, 2)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.InsufficientQuorum))
	})

	t.Run("DivergentHashFails", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpPublish, 7)
		a2 := testAttestation(addr(2), encoding.OpPublish, 7)
		a2.BinaryHash = common.HexToHash("0x02")

		_, err := Aggregate([]Stored{stored("f1", a1), stored("f2", a2)}, encoding.OpPublish, 7, 2)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.Consistency), "divergence is a hard fail, never majority-resolved")
		assert.Contains(t, err.Error(), "f2", "the conflicting artifact must be named")
		assert.Contains(t, err.Error(), "binaryHash")
	})

	t.Run("DivergentVersionFails", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpPublish, 7)
		a2 := testAttestation(addr(2), encoding.OpPublish, 7)
		a2.Version = "1.2.1"

		_, err := Aggregate([]Stored{stored("f1", a1), stored("f2", a2)}, encoding.OpPublish, 7, 2)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.Consistency))
	})

	t.Run("DivergentRevokeReasonFails", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpRevoke, 7)
		a2 := testAttestation(addr(2), encoding.OpRevoke, 7)
		a2.Reason = "different reason"

		_, err := Aggregate([]Stored{stored("f1", a1), stored("f2", a2)}, encoding.OpRevoke, 7, 2)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.Consistency))
		assert.Contains(t, err.Error(), "reason")
	})

	t.Run("RevokeQuorumCarriesReason", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpRevoke, 7)

		q, err := Aggregate([]Stored{stored("f1", a1)}, encoding.OpRevoke, 7, 1)
		require.NoError(t, err)
		assert.Equal(t, "CVE-test", q.Reason)
	})

	t.Run("MalformedArtifactFailsValidation", func(t *testing.T) {
		a1 := testAttestation(addr(1), encoding.OpPublish, 7)
		a1.Signature = a1.Signature[:10]

		_, err := Aggregate([]Stored{stored("f1", a1)}, encoding.OpPublish, 7, 1)
		require.Error(t, err)
		assert.True(t, faults.Is(err, faults.Validation))
	})
}
