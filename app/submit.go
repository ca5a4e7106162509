package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OmniBazaar/Coin-sub013/internal/flows"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Aggregate stored attestations and submit to the registry",
		Long: "Scans the attestation mailbox for the registry's current nonce, checks quorum, " +
			"and submits the operation with the ordered signature set. Takes no release " +
			"arguments: the agreed fields come from the attestations themselves.",
	}
	cmd.AddCommand(submitPublishCmd())
	cmd.AddCommand(submitRevokeCmd())
	return cmd
}

func submitPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Submit the pending publish operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, func(ctx context.Context, svc *flows.Service) (*flows.SubmitResult, error) {
				return svc.SubmitPublish(ctx)
			})
		},
	}
	cmd.Flags().String("key", "", "hex private key of the submitting account (default $ODDAO_PRIVATE_KEY)")
	return cmd
}

func submitRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Submit the pending revoke operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, func(ctx context.Context, svc *flows.Service) (*flows.SubmitResult, error) {
				return svc.SubmitRevoke(ctx)
			})
		},
	}
	cmd.Flags().String("key", "", "hex private key of the submitting account (default $ODDAO_PRIVATE_KEY)")
	return cmd
}

func runSubmit(cmd *cobra.Command, submit func(context.Context, *flows.Service) (*flows.SubmitResult, error)) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	sgn, err := loadSigner(cmd, cfg)
	if err != nil {
		return err
	}

	ledger, err := dialLedger(cmd, cfg, sgn.PrivateKey())
	if err != nil {
		return err
	}
	defer ledger.Close()

	res, err := submit(cmd.Context(), newService(ledger, cfg))
	if err != nil {
		return err
	}

	record := res.Record
	fmt.Printf("Confirmed in block %d (tx %s, gas %d)\n", res.Receipt.BlockNumber, res.Receipt.TxHash.Hex(), res.Receipt.GasUsed)
	fmt.Printf("Release %s@%s: publishedAt=%d revoked=%t\n", record.Component, record.Version, record.PublishedAt, record.Revoked)
	if record.Revoked {
		fmt.Printf("Revoke reason: %s\n", record.RevokeReason)
	}
	fmt.Printf("Signers (%d):\n", len(res.Signers))
	for _, s := range res.Signers {
		fmt.Printf("  %s\n", s.Hex())
	}
	return nil
}
