package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `ListenAddress = "0.0.0.0:9000"
DataDir = "./data"
Asset = "YVT"
EpochLengthSeconds = 600
PenaltyBps = 250
OperatorAddress = "0x0000000000000000000000000000000000000042"
ActiveProtocol = "beta"
HarvestIntervalSeconds = 30

[[Protocols]]
ID = "alpha"
Name = "Alpha Finance"
RateBps = 400

[[Protocols]]
ID = "beta"
Name = "Beta Markets"
RateBps = 700

[Optimizer]
Enabled = true
IntervalSeconds = 120
MinImprovementBps = 100

[Log]
Environment = "test"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesVaultSettings(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Asset != "YVT" {
		t.Fatalf("asset = %q", cfg.Asset)
	}
	if cfg.EpochLengthSeconds != 600 || cfg.PenaltyBps != 250 {
		t.Fatalf("epoch/penalty = %d/%d", cfg.EpochLengthSeconds, cfg.PenaltyBps)
	}
	if len(cfg.Protocols) != 2 || cfg.Protocols[1].RateBps != 700 {
		t.Fatalf("protocols = %+v", cfg.Protocols)
	}
	if cfg.ActiveProtocol != "beta" {
		t.Fatalf("active protocol = %q", cfg.ActiveProtocol)
	}
	op, err := cfg.Operator()
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	if op[19] != 0x42 {
		t.Fatalf("operator = %x", op)
	}
	if !cfg.Optimizer.Enabled || cfg.Optimizer.MinImprovementBps != 100 {
		t.Fatalf("optimizer = %+v", cfg.Optimizer)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Asset != cfg.Asset || reloaded.ActiveProtocol != cfg.ActiveProtocol {
		t.Fatalf("reload mismatch: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{"penalty over denominator", func(s string) string {
			return strings.Replace(s, "PenaltyBps = 250", "PenaltyBps = 10001", 1)
		}, "PenaltyBps"},
		{"bad operator", func(s string) string {
			return strings.Replace(s, `OperatorAddress = "0x0000000000000000000000000000000000000042"`, `OperatorAddress = "nope"`, 1)
		}, "operator address"},
		{"unknown active protocol", func(s string) string {
			return strings.Replace(s, `ActiveProtocol = "beta"`, `ActiveProtocol = "gamma"`, 1)
		}, "ActiveProtocol"},
		{"duplicate protocol", func(s string) string {
			return strings.Replace(s, `ID = "beta"`, `ID = "alpha"`, 1)
		}, "duplicate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.mutate(testConfig)))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	minimal := `Asset = "YVT"
PenaltyBps = 500
OperatorAddress = "0000000000000000000000000000000000000001"

[[Protocols]]
ID = "sim"
Name = "Simulated Yield"
RateBps = 500
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8080" || cfg.EpochLengthSeconds != 3600 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.ActiveProtocol != "sim" {
		t.Fatalf("active protocol default = %q", cfg.ActiveProtocol)
	}
}
