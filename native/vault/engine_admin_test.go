package vault

import (
	"errors"
	"math/big"
	"testing"
)

func TestAddProtocolRequiresOperator(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta

	if err := env.vault.AddProtocol(addr(9), "beta"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.vault.AddProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}
	if err := env.vault.AddProtocol(env.operator, "beta"); !errors.Is(err, ErrProtocolActive) {
		t.Fatalf("expected ErrProtocolActive, got %v", err)
	}
}

func TestAddProtocolRequiresConnector(t *testing.T) {
	env := newTestEnv(t)
	if err := env.vault.AddProtocol(env.operator, "ghost"); err == nil {
		t.Fatal("expected error for protocol without connector")
	}
}

func TestRemoveProtocolDrainsFunds(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta
	if err := env.vault.AddProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}
	beta.principal = big.NewInt(800)

	if err := env.vault.RemoveProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("remove beta: %v", err)
	}
	if beta.principal.Sign() != 0 {
		t.Fatalf("expected beta drained, got %s", beta.principal)
	}
	// Drained funds landed in the registry-active protocol.
	if env.alpha.principal.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("expected alpha to absorb 800, got %s", env.alpha.principal)
	}

	active, err := env.vault.ActiveProtocols()
	if err != nil {
		t.Fatalf("active protocols: %v", err)
	}
	if len(active) != 1 || active[0] != "alpha" {
		t.Fatalf("expected routing set [alpha], got %v", active)
	}
}

func TestRemoveRoutingActiveProtocolRejected(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta
	if err := env.vault.AddProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}

	if err := env.vault.RemoveProtocol(env.operator, "alpha"); !errors.Is(err, ErrRemoveActiveProtocol) {
		t.Fatalf("expected ErrRemoveActiveProtocol, got %v", err)
	}
}

func TestRemoveLastFundedProtocolRejected(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.vault.Deposit(addr(2), big.NewInt(500)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.vault.RemoveProtocol(env.operator, "alpha"); !errors.Is(err, ErrLastProtocolFunded) {
		t.Fatalf("expected ErrLastProtocolFunded, got %v", err)
	}
}

func TestRemoveUnknownProtocol(t *testing.T) {
	env := newTestEnv(t)
	if err := env.vault.RemoveProtocol(env.operator, "ghost"); !errors.Is(err, ErrProtocolNotActive) {
		t.Fatalf("expected ErrProtocolNotActive, got %v", err)
	}
}

func TestRebalanceMovesWholePool(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta
	if err := env.vault.AddProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}
	if _, err := env.vault.Deposit(addr(2), big.NewInt(1_500)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	env.registry.active = "beta"
	if err := env.vault.Rebalance(env.operator, "alpha", "beta"); err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	if env.alpha.principal.Sign() != 0 {
		t.Fatalf("expected alpha emptied, got %s", env.alpha.principal)
	}
	if beta.principal.Cmp(big.NewInt(1_500)) != 0 {
		t.Fatalf("expected beta holding 1500, got %s", beta.principal)
	}
	checkConservation(t, env.vault)
}

func TestRebalanceRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta

	if err := env.vault.Rebalance(env.operator, "alpha", "beta"); !errors.Is(err, ErrProtocolNotActive) {
		t.Fatalf("expected ErrProtocolNotActive, got %v", err)
	}
	if err := env.vault.Rebalance(addr(9), "alpha", "beta"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// from == to is a no-op, not an error.
	if err := env.vault.Rebalance(env.operator, "alpha", "alpha"); err != nil {
		t.Fatalf("identity rebalance: %v", err)
	}
}

func TestRemoveProtocolDrainFailureRestoresSource(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta
	if err := env.vault.AddProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}
	beta.principal = big.NewInt(800)
	env.alpha.failAccept = true

	if err := env.vault.RemoveProtocol(env.operator, "beta"); !errors.Is(err, errMockAccept) {
		t.Fatalf("expected wrapped accept error, got %v", err)
	}
	// The released funds went back to the source connector, not into limbo.
	if beta.principal.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("expected beta restored to 800, got %s", beta.principal)
	}
	if env.alpha.principal.Sign() != 0 {
		t.Fatalf("expected alpha untouched, got %s", env.alpha.principal)
	}
	active, err := env.vault.ActiveProtocols()
	if err != nil {
		t.Fatalf("active protocols: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected routing set unchanged, got %v", active)
	}
}

func TestRebalanceTargetFailureRestoresSource(t *testing.T) {
	env := newTestEnv(t)
	beta := newMockConnector("beta", 700)
	env.registry.conns["beta"] = beta
	if err := env.vault.AddProtocol(env.operator, "beta"); err != nil {
		t.Fatalf("add beta: %v", err)
	}
	if _, err := env.vault.Deposit(addr(2), big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	beta.failAccept = true

	if err := env.vault.Rebalance(env.operator, "alpha", "beta"); !errors.Is(err, errMockAccept) {
		t.Fatalf("expected wrapped accept error, got %v", err)
	}
	if env.alpha.principal.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected alpha restored to 1000, got %s", env.alpha.principal)
	}
	if beta.principal.Sign() != 0 {
		t.Fatalf("expected beta untouched, got %s", beta.principal)
	}
	checkConservation(t, env.vault)
}
