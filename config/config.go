package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress          string `toml:"ListenAddress"`
	DataDir                string `toml:"DataDir"`
	Asset                  string `toml:"Asset"`
	EpochLengthSeconds     uint64 `toml:"EpochLengthSeconds"`
	PenaltyBps             uint64 `toml:"PenaltyBps"`
	OperatorAddress        string `toml:"OperatorAddress"`
	ActiveProtocol         string `toml:"ActiveProtocol"`
	HarvestIntervalSeconds uint64 `toml:"HarvestIntervalSeconds"`

	Protocols []ProtocolConfig `toml:"Protocols"`
	Optimizer OptimizerConfig  `toml:"Optimizer"`
	Log       LogConfig        `toml:"Log"`
}

type ProtocolConfig struct {
	ID      string `toml:"ID"`
	Name    string `toml:"Name"`
	RateBps uint64 `toml:"RateBps"`
}

type OptimizerConfig struct {
	Enabled           bool   `toml:"Enabled"`
	IntervalSeconds   uint64 `toml:"IntervalSeconds"`
	MinImprovementBps uint64 `toml:"MinImprovementBps"`
}

type LogConfig struct {
	Environment string `toml:"Environment"`
	File        string `toml:"File"`
	MaxSizeMB   int    `toml:"MaxSizeMB"`
	MaxBackups  int    `toml:"MaxBackups"`
	MaxAgeDays  int    `toml:"MaxAgeDays"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Operator decodes the configured operator address. A 0x prefix is accepted.
func (c *Config) Operator() ([20]byte, error) {
	var addr [20]byte
	raw := strings.TrimPrefix(strings.TrimSpace(c.OperatorAddress), "0x")
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return addr, fmt.Errorf("operator address: %w", err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("operator address: want %d bytes, got %d", len(addr), len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Asset) == "" {
		return fmt.Errorf("config: Asset must be set")
	}
	if c.EpochLengthSeconds == 0 {
		return fmt.Errorf("config: EpochLengthSeconds must be positive")
	}
	if c.PenaltyBps > 10_000 {
		return fmt.Errorf("config: PenaltyBps exceeds denominator")
	}
	if _, err := c.Operator(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.Protocols) == 0 {
		return fmt.Errorf("config: at least one protocol must be configured")
	}
	seen := make(map[string]struct{}, len(c.Protocols))
	for _, p := range c.Protocols {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("config: protocol with empty ID")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("config: duplicate protocol %q", id)
		}
		seen[id] = struct{}{}
	}
	if _, ok := seen[c.ActiveProtocol]; !ok {
		return fmt.Errorf("config: ActiveProtocol %q is not a configured protocol", c.ActiveProtocol)
	}
	if c.Optimizer.Enabled && c.Optimizer.IntervalSeconds == 0 {
		return fmt.Errorf("config: Optimizer.IntervalSeconds must be positive when enabled")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./vault-data"
	}
	if cfg.EpochLengthSeconds == 0 {
		cfg.EpochLengthSeconds = 3600
	}
	if cfg.HarvestIntervalSeconds == 0 {
		cfg.HarvestIntervalSeconds = 60
	}
	if strings.TrimSpace(cfg.ActiveProtocol) == "" && len(cfg.Protocols) > 0 {
		cfg.ActiveProtocol = cfg.Protocols[0].ID
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:          ":8080",
		DataDir:                "./vault-data",
		Asset:                  "YVT",
		EpochLengthSeconds:     3600,
		PenaltyBps:             500,
		OperatorAddress:        strings.Repeat("00", 19) + "01",
		ActiveProtocol:         "sim",
		HarvestIntervalSeconds: 60,
		Protocols: []ProtocolConfig{
			{ID: "sim", Name: "Simulated Yield", RateBps: 500},
		},
		Optimizer: OptimizerConfig{
			Enabled:           true,
			IntervalSeconds:   300,
			MinImprovementBps: 50,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
