// Package config loads tool configuration from the environment. Values can be
// overridden per-invocation by CLI flags; the environment is the baseline so
// signers can keep endpoint and registry settings out of shell history.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config carries the settings shared by every flow. PrivateKey is only
// consulted when the command needs to sign or submit.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of the chain hosting the registry.
	RPCURL string `env:"ODDAO_RPC_URL"`
	// RegistryAddress is the hex address of the release registry contract.
	RegistryAddress string `env:"ODDAO_REGISTRY"`
	// ChainID must match the chain the registry is deployed on; it is bound
	// into every signed digest.
	ChainID uint64 `env:"ODDAO_CHAIN_ID"`
	// AttestationDir is the shared mailbox directory for attestation files.
	AttestationDir string `env:"ODDAO_ATTESTATION_DIR" envDefault:"attestations"`
	// PrivateKey is the hex-encoded secp256k1 key used for signing and
	// submission when no --key flag is given.
	PrivateKey string `env:"ODDAO_PRIVATE_KEY"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}
