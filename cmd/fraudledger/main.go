package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eigerco/fraudledger/internal/api"
	"github.com/eigerco/fraudledger/internal/config"
	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
	"github.com/eigerco/fraudledger/internal/events"
	"github.com/eigerco/fraudledger/internal/events/kafka"
	"github.com/eigerco/fraudledger/internal/ledger"
	"github.com/eigerco/fraudledger/internal/membership"
	"github.com/eigerco/fraudledger/internal/metrics"
	"github.com/eigerco/fraudledger/internal/store"
	"github.com/eigerco/fraudledger/pkg/db/pebble"
	"github.com/eigerco/fraudledger/pkg/log"
	"github.com/eigerco/fraudledger/pkg/network/cert"
	"github.com/eigerco/fraudledger/pkg/network/rpc"
	"github.com/eigerco/fraudledger/pkg/network/transport"
)

// publishRetryInterval is how often events held back by a failing sink are
// offered again.
const publishRetryInterval = 10 * time.Second

// main starts a ledger node.
// go run ./cmd/fraudledger -env node.env
func main() {
	envFile := flag.String("env", "", "path to a .env file")
	genKey := flag.Bool("genkey", false, "print a new key seed and its address, then exit")
	flag.Parse()

	if *genKey {
		if err := printNewKey(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logOpts, err := cfg.LogOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logCloser := log.Init(logOpts)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Root.Error().Err(err).Msg("node stopped")
		os.Exit(1)
	}
}

func printNewKey() error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}
	fmt.Printf("FRAUDLEDGER_KEY_SEED=%s\n", hex.EncodeToString(priv.Seed()))
	fmt.Printf("# address %s\n", crypto.AddressFromPublicKey(pub))
	return nil
}

func nodeKey(cfg config.Config) (ed25519.PrivateKey, error) {
	seed, err := cfg.Seed()
	if err != nil {
		return nil, err
	}
	if seed != nil {
		return ed25519.NewKeyFromSeed(seed), nil
	}
	log.Root.Warn().Msg("no key seed configured, using an ephemeral identity")
	_, priv, err := ed25519.GenerateKey(nil)
	return priv, err
}

func run(ctx context.Context, cfg config.Config) error {
	key, err := nodeKey(cfg)
	if err != nil {
		return err
	}
	signer := events.NewSigner(key)
	log.Root.Info().Stringer("address", signer.Address()).Str("network", cfg.Network).Msg("starting node")

	kv, err := pebble.NewKVStore(pebble.Options{Path: cfg.DataDir})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	l := store.NewLedger(kv)
	defer l.Close()

	registry := membership.NewRegistry(l, log.Ledger)
	if cfg.GenesisFile != "" {
		g, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			return err
		}
		applied, err := g.Apply(l)
		if err != nil {
			return err
		}
		log.Ledger.Info().Bool("applied", applied).Int("members", len(g.Members)).Msg("genesis")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	sinks := events.Fanout{events.NewLogSink(log.Ledger)}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := kafka.Dial(cfg.KafkaBrokers, cfg.KafkaTopic, signer, log.Ledger)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	engine, err := ledger.New(l, registry,
		ledger.WithSink(sinks),
		ledger.WithMetrics(rec),
		ledger.WithLogger(log.Ledger),
	)
	if err != nil {
		return err
	}
	if err := engine.Recover(ctx); err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	go engine.RunPublisher(ctx, publishRetryInterval)

	tlsCert, err := cert.NewGenerator(cert.Config{PrivateKey: key}).GenerateCertificate()
	if err != nil {
		return err
	}
	tr, err := transport.NewTransport(transport.Config{
		TLSCert:       tlsCert,
		ListenAddr:    cfg.ListenAddr,
		Protocol:      transport.NewProtocolID(cfg.Network),
		CertValidator: cert.NewValidator(),
		Handler:       rpc.NewService(engine,
			rpc.WithRegistry(registry),
			rpc.WithLogger(log.Network),
			rpc.WithMetrics(rec),
		),
		Logger:        log.Network,
	})
	if err != nil {
		return err
	}
	if err := tr.Start(); err != nil {
		return err
	}
	defer func() {
		if err := tr.Stop(); err != nil {
			log.Network.Error().Err(err).Msg("transport stop")
		}
	}()

	if cfg.HTTPAddr == "" {
		<-ctx.Done()
		return nil
	}
	gin.SetMode(gin.ReleaseMode)
	srv := api.New(engine, api.WithLogger(log.API), api.WithMetricsHandler(metrics.Handler(reg)))
	if err := srv.Serve(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
