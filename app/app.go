// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/sprintertech/intent-engine/api"
	"github.com/sprintertech/intent-engine/api/handlers"
	"github.com/sprintertech/intent-engine/balances"
	"github.com/sprintertech/intent-engine/cache"
	"github.com/sprintertech/intent-engine/chains/cosmos"
	"github.com/sprintertech/intent-engine/chains/evm"
	"github.com/sprintertech/intent-engine/chains/evm/calls/contracts"
	"github.com/sprintertech/intent-engine/chains/evm/permit"
	"github.com/sprintertech/intent-engine/chains/evm/signature"
	"github.com/sprintertech/intent-engine/config"
	"github.com/sprintertech/intent-engine/coordinator"
	"github.com/sprintertech/intent-engine/health"
	"github.com/sprintertech/intent-engine/intent"
	"github.com/sprintertech/intent-engine/metrics"
	"github.com/sprintertech/intent-engine/price"
	"github.com/sprintertech/intent-engine/protocol/relay"
	"github.com/sprintertech/intent-engine/protocol/rff"
	"github.com/sprintertech/intent-engine/transfers"
	evmClient "github.com/sygmaprotocol/sygma-core/chains/evm/client"

	"github.com/sygmaprotocol/sygma-core/observability"
)

var Version string

func Run() error {
	var err error

	configFlag := viper.GetString(config.ConfigFlagName)
	configURL := viper.GetString("config-url")

	var configuration *config.Config
	if configURL != "" {
		configuration, err = config.GetSharedConfigFromNetwork(configURL)
		panicOnError(err)
	}

	if strings.ToLower(configFlag) == "env" {
		configuration, err = config.GetConfigFromENV(configuration)
		panicOnError(err)
	} else {
		configuration, err = config.GetConfigFromFile(configFlag, configuration)
		panicOnError(err)
	}

	if l := viper.GetString(config.LogLevelFlagName); l != "" {
		configuration.EngineConfig.LogLevel = l
	}
	if a := viper.GetString(config.ApiAddrFlagName); a != "" {
		configuration.EngineConfig.ApiAddr = a
	}
	if f := viper.GetDuration(config.FreshnessFlagName); f != 0 {
		configuration.EngineConfig.RateFreshness = f
	}

	observability.ConfigureLogger(configuration.EngineConfig.LogLevel, os.Stdout)

	log.Info().Msg("Successfully loaded configuration")

	solverCfg, err := config.GetSolverConfigFromNetwork(configuration.EngineConfig.SolverConfigURL)
	panicOnError(err)

	rawKey := configuration.EngineConfig.Key
	if k := viper.GetString(config.KeyFlagName); k != "" {
		rawKey = k
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(rawKey, "0x"))
	panicOnError(err)

	go health.StartHealthEndpoint(configuration.EngineConfig.HealthPort)

	mp, err := observability.InitMetricProvider(context.Background(), configuration.EngineConfig.OpenTelemetryCollectorURL)
	panicOnError(err)
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error().Msgf("Error shutting down meter provider: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineMetrics, err := metrics.NewEngineMetrics(
		mp.Meter("engine-metric-provider"),
		configuration.EngineConfig.Env,
		configuration.EngineConfig.Id)
	panicOnError(err)

	supportedChains := make(map[uint64]struct{})
	clients := make(map[uint64]*evmClient.EVMClient)
	chainAssets := make(map[uint64]config.ChainAssets)

	for _, chainConfig := range configuration.ChainConfigs {
		switch chainConfig["type"] {
		case "evm":
			{
				c, err := evm.NewEVMConfig(chainConfig, solverCfg)
				panicOnError(err)

				client, err := evmClient.NewEVMClient(c.GeneralChainConfig.Endpoint, nil)
				panicOnError(err)

				chainID := *c.GeneralChainConfig.Id
				log.Info().Uint64("chain", chainID).Msgf("Registering EVM chain")

				clients[chainID] = client
				supportedChains[chainID] = struct{}{}
				chainAssets[chainID] = config.ChainAssets{
					Universe: config.Universe(c.GeneralChainConfig.Universe),
					Vault:    c.Vault,
					Tokens:   c.Tokens,
				}
			}
		default:
			panic(fmt.Errorf("type '%s' not recognized", chainConfig["type"]))
		}
	}

	store := &config.TokenStore{Chains: chainAssets}
	universes := make([]config.Universe, 0)
	seen := make(map[config.Universe]struct{})
	for _, assets := range chainAssets {
		if _, ok := seen[assets.Universe]; ok {
			continue
		}
		seen[assets.Universe] = struct{}{}
		universes = append(universes, assets.Universe)
	}

	coordinatorAPI := coordinator.NewAPI(configuration.EngineConfig.CoordinatorURL)
	rates := cache.NewRateCache(
		price.NewOracleAPI(coordinatorAPI),
		configuration.EngineConfig.RateFreshness)
	defer rates.Stop()

	balanceAPI := balances.NewAPI(configuration.EngineConfig.CoordinatorURL, store)
	intentBuilder := intent.NewBuilder(store, balanceAPI, coordinatorAPI, rates, universes)

	signer := signature.NewLocalSigner(key)
	permitSigner := permit.NewSigner(signer, func(chainID uint64, token common.Address) (permit.TokenReader, error) {
		client, ok := clients[chainID]
		if !ok {
			return nil, fmt.Errorf("no client for chain %d", chainID)
		}
		return contracts.NewERC20Contract(client, token), nil
	})
	approver := relay.NewApprover(
		permitSigner,
		relay.NewClient(configuration.EngineConfig.RelayURL),
		store)

	broadcaster := cosmos.NewBroadcaster(
		configuration.EngineConfig.CosmosRPCURL,
		cosmos.NewLocalTxSigner(key))

	manager := rff.NewManager(
		intentBuilder,
		approver,
		rff.NewBuilder(signer, store, configuration.EngineConfig.IntentLifetime),
		rff.NewSubmitter(broadcaster),
		rff.NewCollector(configuration.EngineConfig.RelayURL),
		rff.NewWaiter(
			rff.NewWSSubscriber(configuration.EngineConfig.RelayURL),
			rff.NewAPI(configuration.EngineConfig.CoordinatorURL),
			rff.FULFILLMENT_POLL_INTERVAL),
		rff.NewRefunder(broadcaster))

	tracker := transfers.NewTracker(
		ctx,
		manager,
		engineMetrics,
		configuration.EngineConfig.IntentLifetime)

	transferHandler := handlers.NewTransferHandler(tracker, supportedChains)
	statusHandler := handlers.NewStatusHandler(tracker)
	go api.Serve(ctx, configuration.EngineConfig.ApiAddr, transferHandler, statusHandler)

	sysErr := make(chan os.Signal, 1)
	signal.Notify(sysErr,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT)

	log.Info().Msgf("Started intent engine for %s. Version: v%s", signer.Address().Hex(), Version)

	sig := <-sysErr
	log.Info().Msgf("terminating got ` [%v] signal", sig)
	return nil
}

func panicOnError(err error) {
	if err != nil {
		panic(err)
	}
}
