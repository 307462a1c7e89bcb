package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stakevault/config"
	"stakevault/crypto"
	"stakevault/native/rewards"
	"stakevault/observability/logging"
	"stakevault/rpc"
	"stakevault/state"
	"stakevault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAKEVAULT_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup(cfg.ServiceName, env)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	ownerKey, err := loadOwnerKey(cfg.OwnerKeyPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load owner key: %v", err))
	}
	ownerAddr := ownerKey.PubKey().Address()

	moduleAddr, err := resolveModuleAddress(cfg, ownerKey)
	if err != nil {
		panic(fmt.Sprintf("Failed to resolve module address: %v", err))
	}

	keeper := state.NewKeeper(db, moduleAddr)

	engine := rewards.NewEngine(ownerAddr, cfg.AdminDelay)
	engine.SetState(keeper)
	engine.SetTransferor(keeper)
	engine.SetRegistrar(&loggingRegistrar{log: logger, endpoint: cfg.RegistrarAddress})

	logger.Info("stakevault daemon starting",
		slog.String("owner", ownerAddr.String()),
		slog.String("module", moduleAddr.String()),
		slog.String("dataDir", cfg.DataDir),
		slog.String("env", env),
	)

	server := rpc.NewServer(engine, keeper, logger)
	server.SetMetricsExposed(cfg.MetricsEnabled)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("JSON-RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadOwnerKey reads the owner key from disk, generating and persisting a
// fresh one on first start.
func loadOwnerKey(path string) (*crypto.PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		return crypto.LoadFromFile(path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToFile(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

// resolveModuleAddress uses the configured module address when present and
// otherwise derives a deterministic one from the owner key so that restarts
// keep addressing the same ledger account.
func resolveModuleAddress(cfg *config.Config, ownerKey *crypto.PrivateKey) (crypto.Address, error) {
	if strings.TrimSpace(cfg.ModuleAddress) != "" {
		return crypto.DecodeAddress(cfg.ModuleAddress)
	}
	return ownerKey.PubKey().Address(), nil
}

// loggingRegistrar records delegate actions locally. The external registrar
// endpoint named in the config is informational until an upstream transport
// is wired in.
type loggingRegistrar struct {
	log      *slog.Logger
	endpoint string
}

func (r *loggingRegistrar) Cast(name string) error {
	r.log.Info("vote cast with registrar",
		slog.String("delegate", name),
		slog.String("registrar", r.endpoint),
	)
	return nil
}

func (r *loggingRegistrar) Revoke() error {
	r.log.Info("vote revoked with registrar", slog.String("registrar", r.endpoint))
	return nil
}
