// Package sim provides a deterministic in-process connector that accrues
// yield at a fixed nominal rate. It backs the daemon's routing targets and
// the optimizer tests; it is not an integration with any real protocol.
package sim

import (
	"math/big"
	"sync"
	"time"

	"yieldvault/native/connector"
)

// DefaultAccrualPeriod is the window over which the nominal rate applies.
const DefaultAccrualPeriod uint64 = 365 * 24 * 60 * 60

// Connector simulates an external yield source: principal placed with it
// accrues pending yield continuously at a fixed rate, and Harvest re-compounds
// the pending amount into principal.
type Connector struct {
	mu            sync.Mutex
	name          string
	asset         string
	rateBps       uint64
	accrualPeriod uint64
	nowFn         func() uint64

	principal   *big.Int
	pending     *big.Int
	lastAccrual uint64

	delivered map[[20]byte]*big.Int
}

// New constructs a simulated connector for a single asset accruing at rateBps
// per DefaultAccrualPeriod.
func New(name, asset string, rateBps uint64) *Connector {
	c := &Connector{
		name:          name,
		asset:         asset,
		rateBps:       rateBps,
		accrualPeriod: DefaultAccrualPeriod,
		nowFn:         func() uint64 { return uint64(time.Now().Unix()) },
		principal:     big.NewInt(0),
		pending:       big.NewInt(0),
		delivered:     make(map[[20]byte]*big.Int),
	}
	c.lastAccrual = c.nowFn()
	return c
}

// SetTimeSource overrides the wall clock, primarily for tests.
func (c *Connector) SetTimeSource(nowFn func() uint64) {
	if c == nil || nowFn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFn = nowFn
	c.lastAccrual = nowFn()
}

// SetAccrualPeriod overrides the window the nominal rate applies over.
func (c *Connector) SetAccrualPeriod(seconds uint64) {
	if c == nil || seconds == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accrualPeriod = seconds
}

// ProtocolName implements connector.Connector.
func (c *Connector) ProtocolName() string { return c.name }

// SupportsAsset implements connector.Connector.
func (c *Connector) SupportsAsset(asset string) bool { return asset == c.asset }

// Accept implements connector.Connector.
func (c *Connector) Accept(asset string, amount *big.Int) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, connector.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accrue()
	c.principal = new(big.Int).Add(c.principal, amount)
	return new(big.Int).Set(amount), nil
}

// Release implements connector.Connector.
func (c *Connector) Release(asset string, amount *big.Int) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, connector.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release(amount), nil
}

// ReleaseTo implements connector.Connector.
func (c *Connector) ReleaseTo(asset string, amount *big.Int, recipient [20]byte) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, connector.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	released := c.release(amount)
	prev := c.delivered[recipient]
	if prev == nil {
		prev = big.NewInt(0)
	}
	c.delivered[recipient] = new(big.Int).Add(prev, released)
	return released, nil
}

// Harvest implements connector.Connector.
func (c *Connector) Harvest(asset string) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accrue()
	delta := c.pending
	c.pending = big.NewInt(0)
	c.principal = new(big.Int).Add(c.principal, delta)
	return new(big.Int).Set(delta), nil
}

// ConvertFeeToReward implements connector.Connector.
func (c *Connector) ConvertFeeToReward(asset string, amount *big.Int) error {
	if asset != c.asset {
		return connector.ErrAssetNotSupported
	}
	if amount == nil || amount.Sign() <= 0 {
		return connector.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accrue()
	shift := new(big.Int).Set(amount)
	if shift.Cmp(c.principal) > 0 {
		shift = new(big.Int).Set(c.principal)
	}
	c.principal = new(big.Int).Sub(c.principal, shift)
	c.pending = new(big.Int).Add(c.pending, shift)
	return nil
}

// Balance implements connector.Connector.
func (c *Connector) Balance(asset string) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accrue()
	return new(big.Int).Add(c.principal, c.pending), nil
}

// TotalPrincipal implements connector.Connector.
func (c *Connector) TotalPrincipal(asset string) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.principal), nil
}

// NominalRateBps implements connector.Connector.
func (c *Connector) NominalRateBps(asset string) (uint64, error) {
	if asset != c.asset {
		return 0, connector.ErrAssetNotSupported
	}
	return c.rateBps, nil
}

// EstimatedYield implements connector.Connector. It projects accrual without
// mutating the connector.
func (c *Connector) EstimatedYield(asset string) (*big.Int, error) {
	if asset != c.asset {
		return nil, connector.ErrAssetNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Add(c.pending, c.accruedSince(c.lastAccrual)), nil
}

// DeliveredTo reports the cumulative amount sent to recipient via ReleaseTo.
func (c *Connector) DeliveredTo(recipient [20]byte) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v := c.delivered[recipient]; v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// release caps the request at principal and deducts it. Caller holds the lock.
func (c *Connector) release(amount *big.Int) *big.Int {
	c.accrue()
	released := new(big.Int).Set(amount)
	if released.Cmp(c.principal) > 0 {
		released = new(big.Int).Set(c.principal)
	}
	c.principal = new(big.Int).Sub(c.principal, released)
	return released
}

// accrue folds elapsed-time yield into pending. Caller holds the lock.
func (c *Connector) accrue() {
	accrued := c.accruedSince(c.lastAccrual)
	if accrued.Sign() > 0 {
		c.pending = new(big.Int).Add(c.pending, accrued)
	}
	c.lastAccrual = c.nowFn()
}

func (c *Connector) accruedSince(since uint64) *big.Int {
	now := c.nowFn()
	if now <= since || c.principal.Sign() == 0 || c.rateBps == 0 {
		return big.NewInt(0)
	}
	elapsed := new(big.Int).SetUint64(now - since)
	accrued := new(big.Int).Mul(c.principal, new(big.Int).SetUint64(c.rateBps))
	accrued.Mul(accrued, elapsed)
	denom := new(big.Int).Mul(big.NewInt(connector.BpsDenominator), new(big.Int).SetUint64(c.accrualPeriod))
	return accrued.Quo(accrued, denom)
}
