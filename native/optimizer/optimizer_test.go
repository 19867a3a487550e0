package optimizer

import (
	"errors"
	"math/big"
	"testing"

	"yieldvault/native/connector"
	"yieldvault/native/connector/sim"
	"yieldvault/native/registry"
	"yieldvault/native/vault"
)

const testAsset = "YVT"

func optAddr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

type optEnv struct {
	operator [20]byte
	registry *registry.Registry
	vault    *vault.Vault
	alpha    *sim.Connector
	beta     *sim.Connector
}

func newOptEnv(t *testing.T, alphaRate, betaRate uint64) *optEnv {
	t.Helper()
	operator := optAddr(1)
	reg := registry.New(operator)
	alpha := sim.New("alpha", testAsset, alphaRate)
	beta := sim.New("beta", testAsset, betaRate)
	if err := reg.RegisterProtocol(operator, "alpha", "Alpha"); err != nil {
		t.Fatalf("register alpha: %v", err)
	}
	if err := reg.RegisterProtocol(operator, "beta", "Beta"); err != nil {
		t.Fatalf("register beta: %v", err)
	}
	if err := reg.RegisterConnector(operator, "alpha", testAsset, alpha); err != nil {
		t.Fatalf("bind alpha: %v", err)
	}
	if err := reg.RegisterConnector(operator, "beta", testAsset, beta); err != nil {
		t.Fatalf("bind beta: %v", err)
	}
	if err := reg.SetActiveProtocol(operator, "alpha"); err != nil {
		t.Fatalf("set active: %v", err)
	}

	params := vault.DefaultParams()
	params.Asset = testAsset
	params.Operator = operator
	v, err := vault.New(params, reg)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	v.SetState(vault.NewMemoryState())
	if err := v.AddProtocol(operator, "alpha"); err != nil {
		t.Fatalf("add alpha: %v", err)
	}
	if err := v.AddProtocol(operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}
	return &optEnv{operator: operator, registry: reg, vault: v, alpha: alpha, beta: beta}
}

func TestEvaluateSwitchesToBetterRate(t *testing.T) {
	env := newOptEnv(t, 500, 900)
	if _, err := env.vault.Deposit(optAddr(2), big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	opt := New(env.registry, env.vault, testAsset, env.operator)
	switched, err := opt.Evaluate()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !switched {
		t.Fatal("expected a switch to the higher-rate protocol")
	}
	active, err := env.registry.ActiveProtocol()
	if err != nil {
		t.Fatalf("active protocol: %v", err)
	}
	if active != "beta" {
		t.Fatalf("active protocol = %q, want beta", active)
	}
	betaBal, err := env.beta.Balance(testAsset)
	if err != nil {
		t.Fatalf("beta balance: %v", err)
	}
	if betaBal.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("beta balance = %s, want 1000", betaBal)
	}
	alphaBal, err := env.alpha.Balance(testAsset)
	if err != nil {
		t.Fatalf("alpha balance: %v", err)
	}
	if alphaBal.Sign() != 0 {
		t.Fatalf("alpha balance = %s, want 0", alphaBal)
	}
}

func TestEvaluateKeepsBestActive(t *testing.T) {
	env := newOptEnv(t, 900, 500)
	opt := New(env.registry, env.vault, testAsset, env.operator)
	switched, err := opt.Evaluate()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if switched {
		t.Fatal("switched away from the best-rate protocol")
	}
}

func TestEvaluateRespectsImprovementMargin(t *testing.T) {
	env := newOptEnv(t, 500, 900)
	opt := New(env.registry, env.vault, testAsset, env.operator)
	opt.MinImprovementBps = 500
	switched, err := opt.Evaluate()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if switched {
		t.Fatal("switched despite improvement below margin")
	}
	active, err := env.registry.ActiveProtocol()
	if err != nil {
		t.Fatalf("active protocol: %v", err)
	}
	if active != "alpha" {
		t.Fatalf("active protocol = %q, want alpha", active)
	}
}

type brokenRegistry struct {
	*registry.Registry
	broken string
}

func (b *brokenRegistry) Resolve(id, asset string) (connector.Connector, error) {
	if id == b.broken {
		return nil, errors.New("connector offline")
	}
	return b.Registry.Resolve(id, asset)
}

func TestEvaluateIgnoresUnresolvableCandidate(t *testing.T) {
	env := newOptEnv(t, 500, 900)
	opt := New(&brokenRegistry{Registry: env.registry, broken: "beta"}, env.vault, testAsset, env.operator)
	switched, err := opt.Evaluate()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if switched {
		t.Fatal("switched to a connector that cannot be resolved")
	}
}
