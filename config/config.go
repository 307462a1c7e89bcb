package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stakevault/crypto"
)

// Config carries the daemon's runtime settings.
type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	OwnerKeyPath     string `toml:"OwnerKeyPath"`
	ModuleAddress    string `toml:"ModuleAddress"`
	AdminDelay       uint64 `toml:"AdminDelay"`
	ServiceName      string `toml:"ServiceName"`
	Environment      string `toml:"Environment"`
	MetricsEnabled   bool   `toml:"MetricsEnabled"`
	RegistrarAddress string `toml:"RegistrarAddress"`
}

const (
	defaultRPCAddress = "127.0.0.1:8661"
	defaultDataDir    = "./data"
	// defaultAdminDelay is 30 days in pool time units before dust sweeps.
	defaultAdminDelay = 2_592_000
)

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg, path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, path string) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
	if strings.TrimSpace(cfg.OwnerKeyPath) == "" {
		cfg.OwnerKeyPath = defaultOwnerKeyPath(path)
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "stakevault"
	}
	if cfg.AdminDelay == 0 {
		cfg.AdminDelay = defaultAdminDelay
	}
}

// Validate rejects configurations the daemon cannot safely start with.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if cfg.ModuleAddress != "" {
		if _, err := crypto.DecodeAddress(cfg.ModuleAddress); err != nil {
			return fmt.Errorf("config: invalid ModuleAddress: %w", err)
		}
	}
	return nil
}

func defaultOwnerKeyPath(configPath string) string {
	dir := filepath.Dir(configPath)
	return filepath.Join(dir, "owner.key")
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{MetricsEnabled: true}
	applyDefaults(cfg, path)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
