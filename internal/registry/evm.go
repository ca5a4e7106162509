package registry

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/OmniBazaar/Coin-sub013/internal/faults"
)

// registryABI is the release registry surface this tooling consumes. It is
// maintained by hand because the contract itself lives in a separate
// repository; the signature set here must track its deployed interface.
const registryABI = `[
  {"type":"function","name":"currentNonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
  {"type":"function","name":"signers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"threshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"getRelease","stateMutability":"view","inputs":[{"name":"component","type":"string"},{"name":"version","type":"string"}],"outputs":[{"name":"publishedAt","type":"uint64"},{"name":"binaryHash","type":"bytes32"},{"name":"publisher","type":"address"},{"name":"revoked","type":"bool"},{"name":"revokeReason","type":"string"}]},
  {"type":"function","name":"publishRelease","stateMutability":"nonpayable","inputs":[{"name":"component","type":"string"},{"name":"version","type":"string"},{"name":"binaryHash","type":"bytes32"},{"name":"minVersion","type":"string"},{"name":"changelogRef","type":"string"},{"name":"nonce","type":"uint64"},{"name":"signatures","type":"bytes[]"}],"outputs":[]},
  {"type":"function","name":"revokeRelease","stateMutability":"nonpayable","inputs":[{"name":"component","type":"string"},{"name":"version","type":"string"},{"name":"reason","type":"string"},{"name":"nonce","type":"uint64"},{"name":"signatures","type":"bytes[]"}],"outputs":[]}
]`

const (
	receiptPollInterval = 2 * time.Second
	receiptWaitLimit    = 3 * time.Minute
)

// EVMLedger implements Ledger against a deployed release registry contract.
type EVMLedger struct {
	client   *ethclient.Client
	bound    *bind.BoundContract
	registry common.Address
	chainID  uint64
	key      *ecdsa.PrivateKey
	logger   *zap.Logger
}

var _ Ledger = (*EVMLedger)(nil)

// Dial connects to the JSON-RPC endpoint and binds the registry contract.
// key may be nil for read-only use (the attest flow never transacts); it is
// required before PublishRelease or RevokeRelease.
func Dial(ctx context.Context, rpcURL string, registryAddr common.Address, chainID uint64, key *ecdsa.PrivateKey, logger *zap.Logger) (*EVMLedger, error) {
	if rpcURL == "" {
		return nil, faults.New(faults.Validation, "RPC endpoint is not configured")
	}
	if registryAddr == (common.Address{}) {
		return nil, faults.New(faults.Validation, "registry address is not configured")
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", rpcURL)
	}

	remoteID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch chain id")
	}
	if remoteID.Uint64() != chainID {
		return nil, faults.New(faults.Validation, "configured chain id %d does not match endpoint chain id %s", chainID, remoteID)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse registry ABI")
	}

	return &EVMLedger{
		client:   client,
		bound:    bind.NewBoundContract(registryAddr, parsed, client, client, client),
		registry: registryAddr,
		chainID:  chainID,
		key:      key,
		logger:   logger.Named("registry"),
	}, nil
}

// Close releases the underlying RPC connection.
func (l *EVMLedger) Close() {
	l.client.Close()
}

func (l *EVMLedger) CurrentNonce(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := l.bound.Call(&bind.CallOpts{Context: ctx}, &out, "currentNonce"); err != nil {
		return 0, errors.Wrap(err, "call currentNonce")
	}
	return out[0].(uint64), nil
}

func (l *EVMLedger) Signers(ctx context.Context) ([]common.Address, error) {
	var out []interface{}
	if err := l.bound.Call(&bind.CallOpts{Context: ctx}, &out, "signers"); err != nil {
		return nil, errors.Wrap(err, "call signers")
	}
	return out[0].([]common.Address), nil
}

func (l *EVMLedger) Threshold(ctx context.Context) (int, error) {
	var out []interface{}
	if err := l.bound.Call(&bind.CallOpts{Context: ctx}, &out, "threshold"); err != nil {
		return 0, errors.Wrap(err, "call threshold")
	}
	return int(out[0].(uint8)), nil
}

func (l *EVMLedger) GetRelease(ctx context.Context, component, version string) (*ReleaseRecord, error) {
	var out []interface{}
	if err := l.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getRelease", component, version); err != nil {
		return nil, errors.Wrapf(err, "call getRelease(%s, %s)", component, version)
	}

	return &ReleaseRecord{
		Component:    component,
		Version:      version,
		PublishedAt:  out[0].(uint64),
		BinaryHash:   common.Hash(out[1].([32]byte)),
		Publisher:    out[2].(common.Address),
		Revoked:      out[3].(bool),
		RevokeReason: out[4].(string),
	}, nil
}

func (l *EVMLedger) PublishRelease(ctx context.Context, sub *PublishSubmission) (*Receipt, error) {
	return l.transact(ctx, "publishRelease",
		sub.Component, sub.Version, [32]byte(sub.BinaryHash), sub.MinVersion, sub.ChangelogRef, sub.Nonce, sub.Signatures)
}

func (l *EVMLedger) RevokeRelease(ctx context.Context, sub *RevokeSubmission) (*Receipt, error) {
	return l.transact(ctx, "revokeRelease",
		sub.Component, sub.Version, sub.Reason, sub.Nonce, sub.Signatures)
}

func (l *EVMLedger) Submitter() common.Address {
	if l.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(l.key.PublicKey)
}

func (l *EVMLedger) ChainID() uint64 {
	return l.chainID
}

func (l *EVMLedger) RegistryAddress() common.Address {
	return l.registry
}

func (l *EVMLedger) transact(ctx context.Context, method string, args ...interface{}) (*Receipt, error) {
	if l.key == nil {
		return nil, faults.New(faults.Validation, "no private key configured for submission")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.key, new(big.Int).SetUint64(l.chainID))
	if err != nil {
		return nil, errors.Wrap(err, "build transactor")
	}
	opts.Context = ctx

	// Reverts surface here through gas estimation; the node's reason is
	// passed through verbatim so the operator sees what the contract said.
	tx, err := l.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, faults.Wrap(faults.LedgerRejection, errors.Wrapf(err, "submit %s", method))
	}

	l.logger.Info("transaction submitted, waiting for confirmation",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()))

	receipt, err := l.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, faults.New(faults.LedgerRejection, "transaction %s reverted in block %d", tx.Hash().Hex(), receipt.BlockNumber)
	}

	return &Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// waitReceipt polls for the transaction receipt with bounded exponential
// backoff. Not-found is the normal pending state and keeps the retry loop
// alive; every other error is terminal.
func (l *EVMLedger) waitReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = receiptPollInterval
	policy.MaxElapsedTime = receiptWaitLimit

	var receipt *ethtypes.Receipt
	err := backoff.Retry(func() error {
		var perr error
		receipt, perr = l.client.TransactionReceipt(ctx, txHash)
		if perr == nil {
			return nil
		}
		if errors.Is(perr, ethereum.NotFound) {
			return perr
		}
		return backoff.Permanent(perr)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, faults.Wrap(faults.LedgerRejection, errors.Wrapf(err, "await receipt for %s", txHash.Hex()))
	}
	return receipt, nil
}
