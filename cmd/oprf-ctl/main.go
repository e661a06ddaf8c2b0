// Command oprf-ctl is the operator CLI for the registry: starting a fresh
// DKG or a resharing, deleting a key, and inspecting a key's current
// public key/epoch. Cobra command-tree shape follows the teacher's
// threshold-cli (one subcommand per operation, global persistent flags for
// chain connection details).
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/registry/ethregistry"
	"github.com/luxfi/oprf-dkg/pkg/wallet"
)

var (
	rpcURL       string
	registryAddr string
	chainID      uint64
	signingKey   string
)

func main() {
	root := &cobra.Command{
		Use:   "oprf-ctl",
		Short: "Operator CLI for the OPRF DKG/resharing registry",
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rpcURL, "rpc-url", "", "Ethereum JSON-RPC endpoint (required)")
	pf.StringVar(&registryAddr, "registry-address", "", "registry contract address (required)")
	pf.Uint64Var(&chainID, "chain-id", 1, "EVM chain id")
	pf.StringVar(&signingKey, "signing-key", "", "hex-encoded secp256k1 private key submitting this transaction (required for mutating commands)")

	root.AddCommand(initKeygenCmd(), initReshareCmd(), deleteKeyCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "oprf-ctl: %v\n", err)
		os.Exit(1)
	}
}

func initKeygenCmd() *cobra.Command {
	var peers []string
	var threshold int
	cmd := &cobra.Command{
		Use:   "init-keygen <oprf-key-id-hex>",
		Short: "Start a fresh DKG for a new OprfKeyId",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := oprfkey.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("parse oprf key id: %w", err)
			}
			committee, err := committeeFromPeers(peers, threshold)
			if err != nil {
				return err
			}
			client, err := dialMutating(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.InitKeyGen(cmd.Context(), id, committee); err != nil {
				return fmt.Errorf("init keygen: %w", err)
			}
			fmt.Printf("initKeyGen submitted for %s (N=%d, t=%d)\n", id, committee.NumPeers(), committee.Threshold)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&peers, "peers", nil, "committee peer addresses, ordered by party.ID (required)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "reconstruction threshold (required)")
	cmd.MarkFlagRequired("peers")
	cmd.MarkFlagRequired("threshold")
	return cmd
}

func initReshareCmd() *cobra.Command {
	var peers []string
	var threshold int
	cmd := &cobra.Command{
		Use:   "init-reshare <oprf-key-id-hex>",
		Short: "Start a resharing to a new committee for an existing OprfKeyId",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := oprfkey.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("parse oprf key id: %w", err)
			}
			committee, err := committeeFromPeers(peers, threshold)
			if err != nil {
				return err
			}
			client, err := dialMutating(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.InitReshare(cmd.Context(), id, committee); err != nil {
				return fmt.Errorf("init reshare: %w", err)
			}
			fmt.Printf("initReshare submitted for %s (new N=%d, new t=%d)\n", id, committee.NumPeers(), committee.Threshold)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&peers, "peers", nil, "new committee peer addresses, ordered by party.ID (required)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "new reconstruction threshold (required)")
	cmd.MarkFlagRequired("peers")
	cmd.MarkFlagRequired("threshold")
	return cmd
}

func deleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <oprf-key-id-hex>",
		Short: "Soft-delete an OprfKeyId on-chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := oprfkey.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("parse oprf key id: %w", err)
			}
			client, err := dialMutating(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.DeleteOprfPublicKey(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete key: %w", err)
			}
			fmt.Printf("deleteOprfPublicKey submitted for %s\n", id)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <oprf-key-id-hex>",
		Short: "Print an OprfKeyId's current public key and epoch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := oprfkey.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("parse oprf key id: %w", err)
			}
			client, err := dialReadOnly(cmd.Context())
			if err != nil {
				return err
			}
			pub, epoch, err := client.GetOprfPublicKeyAndEpoch(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			fmt.Printf("oprfKeyId: %s\nepoch:     %d\npublicKey: 0x%s\n", id, epoch, hex.EncodeToString(pub))
			return nil
		},
	}
}

func committeeFromPeers(peers []string, threshold int) (party.Committee, error) {
	if threshold <= 0 || threshold > len(peers) {
		return party.Committee{}, fmt.Errorf("threshold %d invalid for %d peers", threshold, len(peers))
	}
	ids := make(party.IDSlice, len(peers))
	for i := range peers {
		ids[i] = party.ID(i)
	}
	return party.Committee{Peers: ids, Threshold: threshold}, nil
}

// dialMutating connects with a signer, for commands that submit a
// transaction.
func dialMutating(ctx context.Context) (registry.ChainClient, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("--signing-key is required for this command")
	}
	return dial(ctx, true)
}

// dialReadOnly connects without a signer, for view-only commands.
func dialReadOnly(ctx context.Context) (registry.ChainClient, error) {
	return dial(ctx, false)
}

func dial(ctx context.Context, withSigner bool) (registry.ChainClient, error) {
	if rpcURL == "" || registryAddr == "" {
		return nil, fmt.Errorf("--rpc-url and --registry-address are required")
	}
	var signer *wallet.Manager
	if withSigner {
		priv, err := gethcrypto.HexToECDSA(strings.TrimPrefix(signingKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signing key: %w", err)
		}
		ethc, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial rpc: %w", err)
		}
		signer = wallet.New(wallet.NewECDSABackend(priv), ethc)
	}
	addr := common.HexToAddress(registryAddr)
	client, err := ethregistry.Dial(ctx, rpcURL, addr, signer, chainID)
	if err != nil {
		return nil, err
	}
	return client, nil
}
