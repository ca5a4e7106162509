package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OmniBazaar/Coin-sub013/internal/flows"
)

func attestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attest",
		Short: "Sign a release operation as an ODDAO member",
	}
	cmd.AddCommand(attestPublishCmd())
	cmd.AddCommand(attestRevokeCmd())
	return cmd
}

func attestPublishCmd() *cobra.Command {
	var (
		component  string
		releaseVer string
		hashHex    string
		minVersion string
		changelog  string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Attest to publishing a release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			sgn, err := loadSigner(cmd, cfg)
			if err != nil {
				return err
			}

			binaryHash, err := decodeHash(hashHex)
			if err != nil {
				return err
			}

			ledger, err := dialLedger(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer ledger.Close()

			res, err := newService(ledger, cfg).AttestPublish(cmd.Context(), sgn, &flows.PublishRequest{
				Component:          component,
				Version:            releaseVer,
				BinaryHash:         binaryHash,
				MinVersion:         minVersion,
				ChangelogReference: changelog,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Attestation written: %s\n", res.Artifact)
			fmt.Printf("Signer: %s  nonce: %d\n", res.Signer.Hex(), res.Nonce)
			fmt.Printf("The operation needs %d distinct signer(s) before submission.\n", res.Threshold)
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "component name (required)")
	cmd.Flags().StringVar(&releaseVer, "version", "", "release version (required)")
	cmd.Flags().StringVar(&hashHex, "hash", "", "32-byte binary hash, hex (required)")
	cmd.Flags().StringVar(&minVersion, "min-version", "", "minimum compatible version")
	cmd.Flags().StringVar(&changelog, "changelog", "", "changelog reference")
	cmd.Flags().String("key", "", "hex private key (default $ODDAO_PRIVATE_KEY)")
	_ = cmd.MarkFlagRequired("component")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("hash")

	return cmd
}

func attestRevokeCmd() *cobra.Command {
	var (
		component  string
		releaseVer string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Attest to revoking a published release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			sgn, err := loadSigner(cmd, cfg)
			if err != nil {
				return err
			}

			ledger, err := dialLedger(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer ledger.Close()

			res, err := newService(ledger, cfg).AttestRevoke(cmd.Context(), sgn, &flows.RevokeRequest{
				Component: component,
				Version:   releaseVer,
				Reason:    reason,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Revoke attestation written: %s\n", res.Artifact)
			fmt.Printf("Signer: %s  nonce: %d\n", res.Signer.Hex(), res.Nonce)
			fmt.Printf("The operation needs %d distinct signer(s) before submission.\n", res.Threshold)
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "component name (required)")
	cmd.Flags().StringVar(&releaseVer, "version", "", "release version (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "revocation reason (required)")
	cmd.Flags().String("key", "", "hex private key (default $ODDAO_PRIVATE_KEY)")
	_ = cmd.MarkFlagRequired("component")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}
