package vault

import (
	"errors"
	"math/big"
	"testing"

	"yieldvault/native/connector"
)

const (
	testAsset       = "YVT"
	testEpochLength = uint64(1000)
)

var (
	errMockAccept  = errors.New("mock: accept failed")
	errMockRelease = errors.New("mock: release failed")
	errMockHarvest = errors.New("mock: harvest failed")
	errMockConvert = errors.New("mock: convert failed")
)

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

type mockConnector struct {
	name      string
	rate      uint64
	principal *big.Int
	pending   *big.Int
	delivered map[[20]byte]*big.Int

	failAccept  bool
	failRelease bool
	failHarvest bool
	failConvert bool

	onAccept func()
}

func newMockConnector(name string, rate uint64) *mockConnector {
	return &mockConnector{
		name:      name,
		rate:      rate,
		principal: big.NewInt(0),
		pending:   big.NewInt(0),
		delivered: make(map[[20]byte]*big.Int),
	}
}

func (c *mockConnector) ProtocolName() string            { return c.name }
func (c *mockConnector) SupportsAsset(asset string) bool { return asset == testAsset }

func (c *mockConnector) Accept(asset string, amount *big.Int) (*big.Int, error) {
	if c.onAccept != nil {
		c.onAccept()
	}
	if c.failAccept {
		return nil, errMockAccept
	}
	c.principal = new(big.Int).Add(c.principal, amount)
	return new(big.Int).Set(amount), nil
}

func (c *mockConnector) Release(asset string, amount *big.Int) (*big.Int, error) {
	if c.failRelease {
		return nil, errMockRelease
	}
	released := new(big.Int).Set(amount)
	if released.Cmp(c.principal) > 0 {
		released = new(big.Int).Set(c.principal)
	}
	c.principal = new(big.Int).Sub(c.principal, released)
	return released, nil
}

func (c *mockConnector) ReleaseTo(asset string, amount *big.Int, recipient [20]byte) (*big.Int, error) {
	released, err := c.Release(asset, amount)
	if err != nil {
		return nil, err
	}
	prev := c.delivered[recipient]
	if prev == nil {
		prev = big.NewInt(0)
	}
	c.delivered[recipient] = new(big.Int).Add(prev, released)
	return released, nil
}

func (c *mockConnector) Harvest(asset string) (*big.Int, error) {
	if c.failHarvest {
		return nil, errMockHarvest
	}
	delta := c.pending
	c.pending = big.NewInt(0)
	c.principal = new(big.Int).Add(c.principal, delta)
	return new(big.Int).Set(delta), nil
}

func (c *mockConnector) ConvertFeeToReward(asset string, amount *big.Int) error {
	if c.failConvert {
		return errMockConvert
	}
	c.principal = new(big.Int).Sub(c.principal, amount)
	c.pending = new(big.Int).Add(c.pending, amount)
	return nil
}

func (c *mockConnector) Balance(asset string) (*big.Int, error) {
	return new(big.Int).Add(c.principal, c.pending), nil
}

func (c *mockConnector) TotalPrincipal(asset string) (*big.Int, error) {
	return new(big.Int).Set(c.principal), nil
}

func (c *mockConnector) NominalRateBps(asset string) (uint64, error) { return c.rate, nil }

func (c *mockConnector) EstimatedYield(asset string) (*big.Int, error) {
	return new(big.Int).Set(c.pending), nil
}

// accrue simulates external yield arriving at the connector.
func (c *mockConnector) accrue(amount int64) {
	c.pending = new(big.Int).Add(c.pending, big.NewInt(amount))
}

type mockRegistry struct {
	active string
	conns  map[string]connector.Connector
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{conns: make(map[string]connector.Connector)}
}

func (r *mockRegistry) ActiveProtocol() (string, error) {
	if r.active == "" {
		return "", errors.New("mock: no active protocol")
	}
	return r.active, nil
}

func (r *mockRegistry) Resolve(id, asset string) (connector.Connector, error) {
	conn, ok := r.conns[id]
	if !ok {
		return nil, errors.New("mock: connector not registered")
	}
	return conn, nil
}

type testEnv struct {
	vault    *Vault
	registry *mockRegistry
	alpha    *mockConnector
	operator [20]byte
	now      uint64
}

func (env *testEnv) advance(seconds uint64) { env.now += seconds }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		registry: newMockRegistry(),
		alpha:    newMockConnector("alpha", 500),
		operator: addr(1),
		now:      1_000_000,
	}
	env.registry.conns["alpha"] = env.alpha
	env.registry.active = "alpha"

	v, err := New(Params{
		Asset:       testAsset,
		EpochLength: testEpochLength,
		PenaltyBps:  DefaultPenaltyBps,
		Operator:    env.operator,
	}, env.registry)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	v.SetState(NewMemoryState())
	v.SetTimeSource(func() uint64 { return env.now })
	env.vault = v

	if err := v.AddProtocol(env.operator, "alpha"); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	return env
}

// checkConservation asserts the sum of participant balances equals the global
// principal counter.
func checkConservation(t *testing.T, v *Vault) {
	t.Helper()
	addrs, err := v.Participants()
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	sum := big.NewInt(0)
	for _, a := range addrs {
		balance, err := v.BalanceOf(a)
		if err != nil {
			t.Fatalf("balance of %x: %v", a, err)
		}
		sum.Add(sum, balance)
	}
	total, err := v.TotalUserBalance()
	if err != nil {
		t.Fatalf("total user balance: %v", err)
	}
	if sum.Cmp(total) != 0 {
		t.Fatalf("conservation violated: participants sum %s, counter %s", sum, total)
	}
}
