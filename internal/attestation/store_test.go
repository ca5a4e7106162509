package attestation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/OmniBazaar/Coin-sub013/internal/encoding"
)

func testAttestation(signer common.Address, op encoding.Operation, nonce uint64) *Attestation {
	a := &Attestation{
		Operation:       op,
		Signer:          signer,
		Component:       "validator",
		Version:         "1.2.0",
		Nonce:           nonce,
		ChainID:         1,
		RegistryAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Signature:       make([]byte, crypto.SignatureLength),
		SignedAt:        time.Now().UTC(),
	}
	if op == encoding.OpPublish {
		a.BinaryHash = common.HexToHash("0x01")
	} else {
		a.Reason = "CVE-test"
	}
	return a
}

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestDirStore(t *testing.T) {
	newStore := func(t *testing.T) (*DirStore, string) {
		dir := t.TempDir()
		return NewDirStore(dir, zaptest.NewLogger(t)), dir
	}

	t.Run("PutThenList", func(t *testing.T) {
		store, _ := newStore(t)

		name, err := store.Put(testAttestation(addr(1), encoding.OpPublish, 7))
		require.NoError(t, err)
		assert.Equal(t, "publish-validator-1.2.0-00000000.json", name)

		listed, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, name, listed[0].Name)
		assert.Equal(t, addr(1), listed[0].Attestation.Signer)
		assert.Equal(t, uint64(7), listed[0].Attestation.Nonce)
	})

	t.Run("DistinctSignersDistinctFiles", func(t *testing.T) {
		store, dir := newStore(t)

		n1, err := store.Put(testAttestation(addr(1), encoding.OpPublish, 7))
		require.NoError(t, err)
		n2, err := store.Put(testAttestation(addr(2), encoding.OpPublish, 7))
		require.NoError(t, err)
		assert.NotEqual(t, n1, n2)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("StaleNoncesExcluded", func(t *testing.T) {
		store, _ := newStore(t)

		_, err := store.Put(testAttestation(addr(1), encoding.OpPublish, 6)) // past
		require.NoError(t, err)
		_, err = store.Put(testAttestation(addr(2), encoding.OpPublish, 7)) // current
		require.NoError(t, err)
		_, err = store.Put(testAttestation(addr(3), encoding.OpPublish, 8)) // future
		require.NoError(t, err)

		listed, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		require.Len(t, listed, 1, "past and future nonces must both be ignored")
		assert.Equal(t, addr(2), listed[0].Attestation.Signer)
	})

	t.Run("OperationsDoNotMix", func(t *testing.T) {
		store, _ := newStore(t)

		_, err := store.Put(testAttestation(addr(1), encoding.OpPublish, 7))
		require.NoError(t, err)
		_, err = store.Put(testAttestation(addr(1), encoding.OpRevoke, 7))
		require.NoError(t, err)

		publishes, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		revokes, err := store.ListForNonce(encoding.OpRevoke, 7)
		require.NoError(t, err)

		assert.Len(t, publishes, 1)
		assert.Len(t, revokes, 1)
		assert.Equal(t, encoding.OpRevoke, revokes[0].Attestation.Operation)
	})

	t.Run("UnparseableFileSkipped", func(t *testing.T) {
		store, dir := newStore(t)

		_, err := store.Put(testAttestation(addr(1), encoding.OpPublish, 7))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0o644))

		listed, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("MissingDirectoryIsEmpty", func(t *testing.T) {
		store := NewDirStore(filepath.Join(t.TempDir(), "never-created"), zaptest.NewLogger(t))

		listed, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("Remove", func(t *testing.T) {
		store, _ := newStore(t)

		name, err := store.Put(testAttestation(addr(1), encoding.OpPublish, 7))
		require.NoError(t, err)
		require.NoError(t, store.Remove(name))

		listed, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("RoundTripPreservesFields", func(t *testing.T) {
		store, _ := newStore(t)

		orig := testAttestation(addr(9), encoding.OpPublish, 7)
		orig.MinVersion = "1.0.0"
		orig.ChangelogReference = "ipfs://changelog"
		_, err := store.Put(orig)
		require.NoError(t, err)

		listed, err := store.ListForNonce(encoding.OpPublish, 7)
		require.NoError(t, err)
		require.Len(t, listed, 1)

		got := listed[0].Attestation
		assert.Equal(t, orig.BinaryHash, got.BinaryHash)
		assert.Equal(t, orig.MinVersion, got.MinVersion)
		assert.Equal(t, orig.ChangelogReference, got.ChangelogReference)
		assert.Equal(t, orig.RegistryAddress, got.RegistryAddress)
		assert.Equal(t, orig.Signature, got.Signature)
	})
}

func TestFilenameSanitizesHostileNames(t *testing.T) {
	a := testAttestation(addr(1), encoding.OpPublish, 7)
	a.Component = "../evil"
	a.Version = "1.2.0/x"

	name := a.Filename()
	assert.NotContains(t, name, "/")
	assert.Equal(t, name, filepath.Base(name))
}
