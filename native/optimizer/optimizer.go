// Package optimizer periodically compares nominal yield rates across the
// vault's routing set and moves the pooled balance to the best protocol. It
// is a thin consumer of the registry and vault surfaces, not part of the
// accounting core.
package optimizer

import (
	"context"
	"log/slog"
	"time"

	"yieldvault/native/connector"
	"yieldvault/observability/metrics"
)

type rateRegistry interface {
	ActiveProtocol() (string, error)
	SetActiveProtocol(caller [20]byte, id string) error
	Resolve(id, asset string) (connector.Connector, error)
}

type rebalancer interface {
	ActiveProtocols() ([]string, error)
	Rebalance(caller [20]byte, from, to string) error
}

// Optimizer switches the active protocol whenever another member of the
// routing set advertises a better nominal rate by at least the configured
// margin.
type Optimizer struct {
	registry rateRegistry
	vault    rebalancer
	asset    string
	operator [20]byte
	logger   *slog.Logger

	// MinImprovementBps is the rate advantage a challenger needs before a
	// switch is worth the fund movement. Zero switches on any improvement.
	MinImprovementBps uint64
}

// New constructs an optimizer acting with the operator identity.
func New(registry rateRegistry, vault rebalancer, asset string, operator [20]byte) *Optimizer {
	return &Optimizer{
		registry: registry,
		vault:    vault,
		asset:    asset,
		operator: operator,
		logger:   slog.Default(),
	}
}

// SetLogger overrides the optimizer's logger.
func (o *Optimizer) SetLogger(logger *slog.Logger) {
	if o == nil || logger == nil {
		return
	}
	o.logger = logger
}

// Evaluate performs one comparison round. It reports whether a switch was
// executed.
func (o *Optimizer) Evaluate() (bool, error) {
	active, err := o.registry.ActiveProtocol()
	if err != nil {
		return false, err
	}
	ids, err := o.vault.ActiveProtocols()
	if err != nil {
		return false, err
	}

	activeRate := o.rateOf(active)
	best, bestRate := active, activeRate
	for _, id := range ids {
		if id == active {
			continue
		}
		rate := o.rateOf(id)
		if rate > bestRate {
			best, bestRate = id, rate
		}
	}
	if best == active || bestRate < activeRate+o.MinImprovementBps {
		return false, nil
	}

	if err := o.registry.SetActiveProtocol(o.operator, best); err != nil {
		return false, err
	}
	if err := o.vault.Rebalance(o.operator, active, best); err != nil {
		return false, err
	}
	metrics.Vault().RecordOptimizerSwitch()
	o.logger.Info("switched active protocol",
		slog.String("from", active),
		slog.String("to", best),
		slog.Uint64("from_rate_bps", activeRate),
		slog.Uint64("to_rate_bps", bestRate))
	return true, nil
}

// Run evaluates on every tick until the context is cancelled.
func (o *Optimizer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.Evaluate(); err != nil {
				o.logger.Warn("optimizer round failed", slog.Any("error", err))
			}
		}
	}
}

// rateOf reports a protocol's nominal rate, treating unresolved or failing
// connectors as zero so a broken candidate never wins a switch.
func (o *Optimizer) rateOf(id string) uint64 {
	conn, err := o.registry.Resolve(id, o.asset)
	if err != nil {
		return 0
	}
	rate, err := conn.NominalRateBps(o.asset)
	if err != nil {
		return 0
	}
	return rate
}
