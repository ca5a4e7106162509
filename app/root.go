// Package app assembles the oddao CLI: the signer tool (attest), the
// submission tool (submit), and the version command.
package app

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OmniBazaar/Coin-sub013/cmd/version"
	"github.com/OmniBazaar/Coin-sub013/internal/attestation"
	"github.com/OmniBazaar/Coin-sub013/internal/config"
	"github.com/OmniBazaar/Coin-sub013/internal/faults"
	"github.com/OmniBazaar/Coin-sub013/internal/flows"
	"github.com/OmniBazaar/Coin-sub013/internal/registry"
	"github.com/OmniBazaar/Coin-sub013/internal/signer"
)

// RootCmd builds the oddao root command.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "oddao",
		Short:         "ODDAO release attestation tooling",
		Long:          "Tools for ODDAO members to jointly publish and revoke release records on the on-chain release registry.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("rpc", "", "JSON-RPC endpoint of the registry chain (default $ODDAO_RPC_URL)")
	cmd.PersistentFlags().String("registry", "", "release registry contract address (default $ODDAO_REGISTRY)")
	cmd.PersistentFlags().Uint64("chain-id", 0, "chain ID the registry is deployed on (default $ODDAO_CHAIN_ID)")
	cmd.PersistentFlags().String("dir", "", "attestation mailbox directory (default $ODDAO_ATTESTATION_DIR)")

	cmd.AddCommand(attestCmd())
	cmd.AddCommand(submitCmd())
	cmd.AddCommand(version.NewVersionCmd())

	return cmd
}

// ReportFailure logs the classified failure category alongside the error so
// operators can tell coordination mistakes from ledger rejections at a glance.
func ReportFailure(err error) {
	if cat, ok := faults.CategoryOf(err); ok {
		zap.L().Error("command failed", zap.String("category", string(cat)), zap.Error(err))
		return
	}
	zap.L().Error("command failed", zap.Error(err))
}

// resolveConfig loads the environment configuration and applies flag
// overrides.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("rpc"); v != "" {
		cfg.RPCURL = v
	}
	if v, _ := cmd.Flags().GetString("registry"); v != "" {
		cfg.RegistryAddress = v
	}
	if v, _ := cmd.Flags().GetUint64("chain-id"); v != 0 {
		cfg.ChainID = v
	}
	if v, _ := cmd.Flags().GetString("dir"); v != "" {
		cfg.AttestationDir = v
	}
	return cfg, nil
}

// loadSigner builds the release signer from the --key flag, falling back to
// the environment.
func loadSigner(cmd *cobra.Command, cfg *config.Config) (*signer.ReleaseSigner, error) {
	keyHex, _ := cmd.Flags().GetString("key")
	if keyHex == "" {
		keyHex = cfg.PrivateKey
	}
	if keyHex == "" {
		return nil, faults.New(faults.Validation, "no signing key: pass --key or set ODDAO_PRIVATE_KEY")
	}
	return signer.FromHex(keyHex)
}

// dialLedger connects to the configured registry. key may be nil for flows
// that only read.
func dialLedger(cmd *cobra.Command, cfg *config.Config, key *ecdsa.PrivateKey) (*registry.EVMLedger, error) {
	if !common.IsHexAddress(cfg.RegistryAddress) {
		return nil, faults.New(faults.Validation, "registry address %q is not a valid address", cfg.RegistryAddress)
	}
	return registry.Dial(cmd.Context(), cfg.RPCURL, common.HexToAddress(cfg.RegistryAddress), cfg.ChainID, key, zap.L())
}

// newService wires a flow service over the configured ledger and mailbox.
func newService(ledger registry.Ledger, cfg *config.Config) *flows.Service {
	store := attestation.NewDirStore(cfg.AttestationDir, zap.L())
	return flows.NewService(ledger, store, zap.L())
}

// decodeHash parses a 32-byte hex hash, tolerating a 0x prefix.
func decodeHash(hashHex string) ([]byte, error) {
	hashHex = strings.TrimPrefix(strings.TrimSpace(hashHex), "0x")
	b, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, faults.New(faults.Validation, "binary hash is not valid hex: %v", err)
	}
	return b, nil
}
