package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spintrade/orion-broker/internal/config"
	"github.com/spintrade/orion-broker/internal/core/application/balance"
	"github.com/spintrade/orion-broker/internal/core/application/settlement"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	filesource "github.com/spintrade/orion-broker/internal/infrastructure/balance-source/file"
	hubrest "github.com/spintrade/orion-broker/internal/infrastructure/hub/rest"
	eip712signer "github.com/spintrade/orion-broker/internal/infrastructure/signer/eip712"
	dbbadger "github.com/spintrade/orion-broker/internal/infrastructure/storage/db/badger"
	"github.com/spintrade/orion-broker/internal/infrastructure/storage/db/inmemory"
	httpinterface "github.com/spintrade/orion-broker/internal/interfaces/http"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	if err := run(); err != nil {
		log.WithError(err).Fatal("broker stopped with error")
	}
	log.Info("shutdown")
}

// run wires the daemon and blocks until SIGINT/SIGTERM. Errors are returned
// rather than logged fatally so that the journal is always closed.
func run() error {
	assets, err := domain.ParseAssetTable(config.GetAssets())
	if err != nil {
		return fmt.Errorf("invalid asset table: %w", err)
	}
	registry, err := domain.NewAssetRegistry(assets)
	if err != nil {
		return fmt.Errorf("invalid asset table: %w", err)
	}

	signer, err := eip712signer.NewSigner(config.GetString(config.PrivateKeyKey))
	if err != nil {
		return fmt.Errorf("failed to load broker key: %w", err)
	}

	repoManager, err := newRepoManager()
	if err != nil {
		return fmt.Errorf("failed to open settlement journal: %w", err)
	}
	defer repoManager.Close()

	hub, err := hubrest.NewClient(hubrest.Config{
		HubURL:         config.GetString(config.HubURLKey),
		BlockchainURL:  config.GetHubBlockchainURL(),
		CallbackURL:    config.GetString(config.CallbackURLKey),
		Secret:         config.GetString(config.HubSecretKey),
		RequestTimeout: config.GetDuration(config.HubRequestTimeoutKey),
	})
	if err != nil {
		return fmt.Errorf("invalid hub config: %w", err)
	}

	settlementSvc, err := settlement.NewService(
		registry, signer, config.GetString(config.MatcherAddressKey),
		hub, repoManager,
	)
	if err != nil {
		return fmt.Errorf("failed to init settlement service: %w", err)
	}

	callbackSvc, err := httpinterface.NewServer(
		httpinterface.Config{
			Address: fmt.Sprintf(":%d", config.GetInt(config.ListeningPortKey)),
			Secret:  config.GetString(config.HubSecretKey),
		},
		registry, unavailableOrderManager{}, settlementSvc,
	)
	if err != nil {
		return fmt.Errorf("failed to init callback server: %w", err)
	}

	balanceSvc, err := newBalanceService(hub)
	if err != nil {
		return err
	}

	identity := settlementSvc.Identity()
	log.WithFields(log.Fields{
		"broker":  identity.Address,
		"matcher": identity.MatcherAddress,
		"assets":  registry.Symbols(),
	}).Info("starting broker")

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(callbackSvc.Start)
	g.Go(func() error {
		<-gctx.Done()
		callbackSvc.Stop()
		return nil
	})

	//nolint
	hub.Connect(gctx)
	hub.Register(gctx, settlementSvc.Registration())

	logPendingSettlements(gctx, settlementSvc)

	if balanceSvc != nil {
		g.Go(func() error {
			return balanceSvc.Start(gctx, config.GetDuration(config.BalanceIntervalKey))
		})
	}

	err = g.Wait()

	//nolint
	hub.Disconnect(context.Background())

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newBalanceService returns nil if no balances file is configured.
func newBalanceService(hub ports.Hub) (*balance.Service, error) {
	path := config.GetString(config.BalancesFileKey)
	if path == "" {
		return nil, nil
	}

	source, err := filesource.NewBalanceSource(path)
	if err != nil {
		return nil, fmt.Errorf("invalid balance source: %w", err)
	}
	svc, err := balance.NewService(
		source, hub, config.GetFloat(config.BalanceRateLimitKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init balance service: %w", err)
	}
	return svc, nil
}

func newRepoManager() (ports.RepoManager, error) {
	if config.GetString(config.DBTypeKey) == config.DBInMemory {
		return inmemory.NewRepoManager(), nil
	}

	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	return dbbadger.NewRepoManager(config.GetDbDir(), logger)
}

// logPendingSettlements warns about settlements left pending by a previous
// run, ie. relayed but never acknowledged.
func logPendingSettlements(ctx context.Context, svc *settlement.Service) {
	pending, err := svc.ListPendingSettlements(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list pending settlements")
		return
	}
	for _, s := range pending {
		log.WithFields(log.Fields{
			"id": s.ID, "order": s.OrderID, "attempts": s.Attempts,
		}).Warn("settlement waiting for hub ack")
	}
}
