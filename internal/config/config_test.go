package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("ReadsEnvironment", func(t *testing.T) {
		t.Setenv("ODDAO_RPC_URL", "http://localhost:8545")
		t.Setenv("ODDAO_REGISTRY", "0x1111111111111111111111111111111111111111")
		t.Setenv("ODDAO_CHAIN_ID", "31337")
		t.Setenv("ODDAO_ATTESTATION_DIR", "/tmp/mailbox")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
		assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.RegistryAddress)
		assert.Equal(t, uint64(31337), cfg.ChainID)
		assert.Equal(t, "/tmp/mailbox", cfg.AttestationDir)
	})

	t.Run("DefaultMailboxDir", func(t *testing.T) {
		// t.Setenv registers the restore; unsetting makes the var truly absent
		// so the envDefault applies.
		t.Setenv("ODDAO_ATTESTATION_DIR", "")
		os.Unsetenv("ODDAO_ATTESTATION_DIR")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "attestations", cfg.AttestationDir)
	})
}
