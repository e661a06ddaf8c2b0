// Command oprf-noded runs one committee peer's dispatcher: it subscribes
// to the registry's confirmed events and drives both the keygen and
// resharing handlers for every OprfKeyId this peer participates in. CLI
// shape follows the teacher's threshold-cli (cobra root + a single
// long-running subcommand), config follows viper (flags, env, file).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/luxfi/oprf-dkg/pkg/alarm"
	"github.com/luxfi/oprf-dkg/pkg/dispatch"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/registry/ethregistry"
	"github.com/luxfi/oprf-dkg/pkg/registry/fakechain"
	"github.com/luxfi/oprf-dkg/pkg/reshare"
	"github.com/luxfi/oprf-dkg/pkg/store"
	"github.com/luxfi/oprf-dkg/pkg/store/memstore"
	"github.com/luxfi/oprf-dkg/pkg/store/pgstore"
	"github.com/luxfi/oprf-dkg/pkg/wallet"
	"github.com/luxfi/oprf-dkg/pkg/workerpool"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luxfi/oprf-dkg/pkg/keygen"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "oprf-noded",
		Short: "OPRF DKG/resharing committee peer daemon",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./oprf-noded.yaml)")
	root.AddCommand(runCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "oprf-noded: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dispatcher until interrupted",
		RunE:  runDaemon,
	}
	flags := cmd.Flags()
	flags.Int("self", -1, "this node's party.ID (index into --peers)")
	flags.StringSlice("peers", nil, "all committee peer addresses, ordered by party.ID")
	flags.Int("threshold", 0, "reconstruction threshold for the default committee")
	flags.String("chain", "eth", "chain client: eth or fake (fake is for local smoke-testing only)")
	flags.String("rpc-url", "", "Ethereum JSON-RPC endpoint (chain=eth)")
	flags.String("registry-address", "", "registry contract address (chain=eth)")
	flags.Uint64("chain-id", 1, "EVM chain id (chain=eth)")
	flags.String("signing-key", "", "hex-encoded secp256k1 private key for outbound transactions (chain=eth)")
	flags.Uint64("confirmations", 3, "blocks an event must age before dispatch")
	flags.Duration("poll-interval", 0, "confirmation-buffer poll interval")
	flags.String("store", "postgres", "share store backend: postgres or memory")
	flags.String("postgres-dsn", "", "Postgres connection string (store=postgres)")
	flags.String("postgres-schema", pgstore.DefaultSchema, "Postgres schema (store=postgres)")

	viper.BindPFlags(flags)
	return cmd
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("oprf-noded")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("OPRF_NODED")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	self := party.ID(viper.GetInt("self"))
	peerAddrs := viper.GetStringSlice("peers")
	if len(peerAddrs) == 0 {
		return fmt.Errorf("at least one --peers entry is required")
	}
	committee := party.Committee{
		Peers:     make(party.IDSlice, len(peerAddrs)),
		Threshold: viper.GetInt("threshold"),
	}
	for i := range peerAddrs {
		committee.Peers[i] = party.ID(i)
	}
	resolve := func(ctx context.Context, id oprfkey.ID) (party.Committee, error) {
		return committee, nil // one fixed committee for every OprfKeyId; no per-key registry lookup is made
	}

	st, err := buildStore(cmd.Context())
	if err != nil {
		return err
	}

	chain, err := buildChainClient(cmd.Context(), log, peerAddrs)
	if err != nil {
		return err
	}

	mirror := registry.NewMirror()
	alarms := alarm.NewBus()
	pool := workerpool.New(int64(len(peerAddrs)))

	keygenHandler := keygen.NewHandler(self, chain, mirror, st, nil /* no Prover: Round-2 proofs are left empty */, pool, nil, log, alarms)
	roles := storeRoleSource{store: st}
	reshareHandler := reshare.NewHandler(self, chain, mirror, st, roles, nil, pool, nil, log, alarms)
	router := combinedHandler{keygen: keygenHandler, reshare: reshareHandler}

	go alarm.Watch(cmd.Context(), alarms.Subscribe(64), func(a alarm.Alarm) {
		log.Warn("alarm",
			zap.String("severity", a.Severity.String()),
			zap.String("oprf_key_id", a.OprfKeyID.String()),
			zap.Error(a.Kind),
			zap.String("message", a.Message),
		)
	})

	d := dispatch.New(chain, mirror, router, resolve, viper.GetUint64("confirmations"), viper.GetDuration("poll-interval"), log)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("oprf-noded starting",
		zap.Int("self", int(self)),
		zap.Int("num_peers", len(peerAddrs)),
		zap.Int("threshold", committee.Threshold),
	)
	return d.Run(ctx)
}

// combinedHandler routes a confirmed event to the keygen or resharing
// handler by its EventKind, since a single OprfKeyId's lifetime fans out
// to both depending on whether it's in its first sharing or a reshare.
type combinedHandler struct {
	keygen  dispatch.Handler
	reshare dispatch.Handler
}

func (h combinedHandler) Handle(ctx context.Context, ev registry.Event, committee party.Committee) error {
	switch ev.Kind {
	case registry.EventSecretGenRound1, registry.EventSecretGenRound3:
		return h.keygen.Handle(ctx, ev, committee)
	case registry.EventReshareRound1, registry.EventReshareRound3, registry.EventNotEnoughProducers:
		return h.reshare.Handle(ctx, ev, committee)
	case registry.EventSecretGenRound2:
		// Shared by both flows; harmless no-ops for whichever side this
		// OprfKeyId isn't currently in.
		if err := h.keygen.Handle(ctx, ev, committee); err != nil {
			return err
		}
		return h.reshare.Handle(ctx, ev, committee)
	case registry.EventSecretGenFinalize, registry.EventKeyDeletion:
		if err := h.keygen.Handle(ctx, ev, committee); err != nil {
			return err
		}
		return h.reshare.Handle(ctx, ev, committee)
	default:
		return nil
	}
}

// storeRoleSource answers reshare.RoleSource from the live share store: a
// node is a Producer for a resharing exactly when it still holds a
// non-tombstoned share for the id (spec.md §4.2).
type storeRoleSource struct {
	store store.Store
}

func (r storeRoleSource) OldShare(ctx context.Context, id oprfkey.ID) (*field.Scalar, bool, error) {
	s, err := r.store.LoadShare(ctx, id)
	if err == store.ErrNotFound || err == store.ErrTombstone {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s.Share, true, nil
}

func buildStore(ctx context.Context) (store.Store, error) {
	switch viper.GetString("store") {
	case "memory":
		return memstore.New(), nil
	case "postgres":
		dsn := viper.GetString("postgres-dsn")
		if dsn == "" {
			return nil, fmt.Errorf("--postgres-dsn is required for store=postgres")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pgstore.New(pool, viper.GetString("postgres-schema")), nil
	default:
		return nil, fmt.Errorf("unknown --store %q", viper.GetString("store"))
	}
}

func buildChainClient(ctx context.Context, log *zap.Logger, peerAddrs []string) (registry.ChainClient, error) {
	switch viper.GetString("chain") {
	case "fake":
		log.Warn("running against the in-memory fake chain client; never use this in production")
		return fakechain.New(), nil
	case "eth":
		keyHex := viper.GetString("signing-key")
		if keyHex == "" {
			return nil, fmt.Errorf("--signing-key is required for chain=eth")
		}
		priv, err := gethcrypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signing key: %w", err)
		}
		rpcURL := viper.GetString("rpc-url")
		ethc, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial rpc: %w", err)
		}
		signer := wallet.New(wallet.NewECDSABackend(priv), ethc)
		addr := common.HexToAddress(viper.GetString("registry-address"))
		return ethregistry.Dial(ctx, rpcURL, addr, signer, viper.GetUint64("chain-id"))
	default:
		return nil, fmt.Errorf("unknown --chain %q", viper.GetString("chain"))
	}
}

