// Package vault implements the yield-routing ledger: per-participant balance
// and time-weighted bookkeeping, the epoch harvest lifecycle, and routing of
// pooled funds through registry-resolved connectors.
package vault

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"yieldvault/core/events"
	"yieldvault/native/common"
	"yieldvault/native/connector"
	"yieldvault/observability/metrics"
)

const moduleName = "vault"

// protocolRegistry is the slice of the registry surface the ledger consumes.
type protocolRegistry interface {
	ActiveProtocol() (string, error)
	Resolve(id, asset string) (connector.Connector, error)
}

// Vault orchestrates deposits, withdrawals and harvests against the
// registry's connectors. Every state-changing operation runs as one atomic
// unit: connectors are called before any record is persisted, so a connector
// failure on the fund-movement paths aborts with no partial commit.
type Vault struct {
	state    State
	registry protocolRegistry
	params   Params
	guard    common.ReentrancyGuard
	pauses   common.PauseView
	emitter  events.Emitter
	logger   *slog.Logger
	nowFn    func() uint64
}

// New constructs a vault over the provided registry. The state backend is
// wired separately via SetState.
func New(params Params, registry protocolRegistry) (*Vault, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	return &Vault{
		params:   params,
		registry: registry,
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		nowFn:    func() uint64 { return uint64(time.Now().Unix()) },
	}, nil
}

// SetState wires the vault to its persistence layer.
func (v *Vault) SetState(state State) { v.state = state }

// SetPauses wires the administrative pause switch.
func (v *Vault) SetPauses(p common.PauseView) {
	if v == nil {
		return
	}
	v.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetLogger overrides the vault's logger.
func (v *Vault) SetLogger(logger *slog.Logger) {
	if v == nil || logger == nil {
		return
	}
	v.logger = logger
}

// SetTimeSource overrides the wall clock, primarily for tests.
func (v *Vault) SetTimeSource(nowFn func() uint64) {
	if v == nil || nowFn == nil {
		return
	}
	v.nowFn = nowFn
}

// Params returns the vault's configuration.
func (v *Vault) Params() Params { return v.params }

// Deposit accepts amount from the participant, records a time-weighted
// deposit entry and routes the full amount into the registry's active
// protocol. It returns the time-weighted amount credited for this epoch.
func (v *Vault) Deposit(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	if err := v.guard.Enter(); err != nil {
		return nil, err
	}
	defer v.guard.Exit()
	if err := common.Guard(v.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	meta, err := v.state.GetMeta()
	if err != nil {
		return nil, err
	}
	if len(meta.ActiveProtocols) == 0 {
		return nil, ErrNoActiveProtocol
	}
	active, conn, err := v.activeConnector(meta)
	if err != nil {
		return nil, err
	}

	now := v.nowFn()
	if meta.TotalUserBalance == nil {
		meta.TotalUserBalance = big.NewInt(0)
	}
	if meta.TotalUserBalance.Sign() == 0 {
		// First deposit into an empty vault anchors the epoch window so the
		// depositor earns a full-weight entry.
		meta.LastEpochTime = now
	}
	var elapsed uint64
	if now > meta.LastEpochTime {
		elapsed = now - meta.LastEpochTime
	}
	weighted := timeWeighted(amount, v.params.EpochLength, elapsed)

	participant, err := v.state.GetParticipant(caller)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		participant = &Participant{
			Address:      caller,
			Balance:      big.NewInt(0),
			TimeWeighted: big.NewInt(0),
		}
	}

	// Route the funds before any record is persisted so a connector failure
	// aborts the whole deposit.
	accepted, err := conn.Accept(v.params.Asset, amount)
	if err != nil {
		return nil, fmt.Errorf("vault: route deposit to %s: %w", active, err)
	}
	if accepted == nil || accepted.Cmp(amount) != 0 {
		return nil, ErrConnectorShortfall
	}

	epoch := v.epochNumber(now)
	participant.Deposits = append(participant.Deposits, DepositEntry{
		Amount:       copyBigInt(amount),
		Time:         now,
		Epoch:        epoch,
		TimeWeighted: copyBigInt(weighted),
	})
	participant.Balance = new(big.Int).Add(participant.Balance, amount)
	participant.TimeWeighted = new(big.Int).Add(participant.TimeWeighted, weighted)
	meta.TotalUserBalance = new(big.Int).Add(meta.TotalUserBalance, amount)

	if err := v.state.PutParticipant(participant); err != nil {
		return nil, err
	}
	if err := v.state.PutMeta(meta); err != nil {
		return nil, err
	}

	metrics.Vault().RecordDeposit()
	metrics.Vault().SetTotalBalance(bigFloat(meta.TotalUserBalance))
	v.emitter.Emit(events.VaultDeposited{
		Participant:  caller,
		Amount:       copyBigInt(amount),
		TimeWeighted: copyBigInt(weighted),
		Epoch:        epoch,
		Protocol:     active,
	})
	v.logger.Debug("vault deposit",
		slog.String("amount", amount.String()),
		slog.String("weighted", weighted.String()),
		slog.String("protocol", active))
	return copyBigInt(weighted), nil
}

// Withdraw pays out up to the participant's principal. The slice of the
// request covered by deposits made inside the current unharvested window is
// charged the early-exit penalty; the penalty is converted into yield across
// the active connectors instead of leaving the system. The participant's
// principal drops by the full requested amount and the paid amount is
// returned.
func (v *Vault) Withdraw(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	if err := v.guard.Enter(); err != nil {
		return nil, err
	}
	defer v.guard.Exit()
	if err := common.Guard(v.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	meta, err := v.state.GetMeta()
	if err != nil {
		return nil, err
	}
	participant, err := v.state.GetParticipant(caller)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrUnknownParticipant
	}
	if participant.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	if len(meta.ActiveProtocols) == 0 {
		return nil, ErrNoActiveProtocol
	}

	portion := currentWindowPortion(participant, meta.LastEpochTime)
	if portion.Cmp(amount) > 0 {
		portion = new(big.Int).Set(amount)
	}
	penalty := bpsShare(portion, v.params.PenaltyBps)
	final := new(big.Int).Sub(amount, penalty)

	if final.Sign() > 0 {
		active, conn, err := v.activeConnector(meta)
		if err != nil {
			return nil, err
		}
		released, err := conn.ReleaseTo(v.params.Asset, final, caller)
		if err != nil {
			return nil, fmt.Errorf("vault: release from %s: %w", active, err)
		}
		if released == nil || released.Cmp(final) != 0 {
			return nil, ErrConnectorShortfall
		}
	}

	// Fold the penalty back into the yield pool, split evenly across the
	// active connectors. This runs only after the participant has been paid:
	// an aborted release must leave connector principal untouched so the
	// balance stays claimable. The funds already left, so a conversion
	// failure here cannot abort the commit; the failed share stays parked as
	// connector principal instead of pending yield.
	if penalty.Sign() > 0 {
		shares := splitEvenly(penalty, len(meta.ActiveProtocols))
		for i, id := range meta.ActiveProtocols {
			if shares[i].Sign() == 0 {
				continue
			}
			conn, err := v.registry.Resolve(id, v.params.Asset)
			if err == nil {
				err = conn.ConvertFeeToReward(v.params.Asset, shares[i])
			}
			if err != nil {
				v.logger.Warn("penalty conversion failed, share remains as principal",
					slog.String("protocol", id),
					slog.String("share", shares[i].String()),
					slog.Any("error", err))
			}
		}
	}

	oldBalance := copyBigInt(participant.Balance)
	participant.TimeWeighted = scaleWeight(participant.TimeWeighted, oldBalance, amount)
	participant.Balance = new(big.Int).Sub(participant.Balance, amount)
	consumeWindowEntries(participant, meta.LastEpochTime, portion)
	meta.TotalUserBalance = new(big.Int).Sub(meta.TotalUserBalance, amount)

	if participant.Balance.Sign() == 0 && participant.TimeWeighted.Sign() == 0 {
		if err := v.state.DeleteParticipant(caller); err != nil {
			return nil, err
		}
	} else {
		if err := v.state.PutParticipant(participant); err != nil {
			return nil, err
		}
	}
	if err := v.state.PutMeta(meta); err != nil {
		return nil, err
	}

	metrics.Vault().RecordWithdrawal(bigFloat(penalty))
	metrics.Vault().SetTotalBalance(bigFloat(meta.TotalUserBalance))
	v.emitter.Emit(events.VaultWithdrawn{
		Participant: caller,
		Requested:   copyBigInt(amount),
		Penalty:     copyBigInt(penalty),
		Paid:        copyBigInt(final),
	})
	v.logger.Debug("vault withdrawal",
		slog.String("requested", amount.String()),
		slog.String("penalty", penalty.String()))
	return final, nil
}

// CheckAndHarvest realises yield from every active connector once the epoch
// window has elapsed, distributes the total proportionally to time-weighted
// balances and resets the weights for the next epoch. Calling it early is a
// no-op returning zero. A failing connector harvest contributes zero and
// never aborts the transition.
func (v *Vault) CheckAndHarvest() (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	if err := v.guard.Enter(); err != nil {
		return nil, err
	}
	defer v.guard.Exit()
	if err := common.Guard(v.pauses, moduleName); err != nil {
		return nil, err
	}

	meta, err := v.state.GetMeta()
	if err != nil {
		return nil, err
	}
	now := v.nowFn()
	if now < meta.LastEpochTime+v.params.EpochLength {
		return big.NewInt(0), nil
	}

	totalHarvested := big.NewInt(0)
	var failed []string
	for _, id := range meta.ActiveProtocols {
		conn, err := v.registry.Resolve(id, v.params.Asset)
		if err != nil {
			failed = append(failed, id)
			metrics.Vault().RecordHarvestFailure(id)
			v.logger.Warn("harvest skipped: connector unresolved",
				slog.String("protocol", id), slog.Any("error", err))
			continue
		}
		delta, err := conn.Harvest(v.params.Asset)
		if err != nil {
			failed = append(failed, id)
			metrics.Vault().RecordHarvestFailure(id)
			v.logger.Warn("harvest skipped: connector failed",
				slog.String("protocol", id), slog.Any("error", err))
			continue
		}
		if delta != nil && delta.Sign() > 0 {
			totalHarvested = totalHarvested.Add(totalHarvested, delta)
		}
	}

	addrs, err := v.state.ParticipantAddresses()
	if err != nil {
		return nil, err
	}
	participants := make([]*Participant, 0, len(addrs))
	totalWeight := big.NewInt(0)
	for _, addr := range addrs {
		p, err := v.state.GetParticipant(addr)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		participants = append(participants, p)
		totalWeight = totalWeight.Add(totalWeight, p.TimeWeighted)
	}

	distributed := big.NewInt(0)
	if totalHarvested.Sign() > 0 && totalWeight.Sign() > 0 {
		for _, p := range participants {
			reward := proportionalShare(totalHarvested, p.TimeWeighted, totalWeight)
			if reward.Sign() > 0 {
				p.Balance = new(big.Int).Add(p.Balance, reward)
				distributed = distributed.Add(distributed, reward)
			}
		}
		meta.TotalUserBalance = new(big.Int).Add(meta.TotalUserBalance, distributed)
	}

	// Weights reset to the post-reward principal: every holder enters the new
	// epoch on equal time-weighted footing per unit of balance.
	for _, p := range participants {
		p.TimeWeighted = copyBigInt(p.Balance)
		if err := v.state.PutParticipant(p); err != nil {
			return nil, err
		}
	}

	dust := new(big.Int).Sub(totalHarvested, distributed)
	meta.LastEpochTime = now
	meta.EpochsProcessed++
	report := &EpochReport{
		Epoch:           meta.EpochsProcessed,
		HarvestedAt:     now,
		Harvested:       copyBigInt(totalHarvested),
		Distributed:     copyBigInt(distributed),
		Dust:            copyBigInt(dust),
		Participants:    len(participants),
		FailedProtocols: failed,
	}
	if err := v.state.PutEpochReport(report); err != nil {
		return nil, err
	}
	if err := v.state.PutMeta(meta); err != nil {
		return nil, err
	}

	metrics.Vault().RecordHarvest(meta.EpochsProcessed, bigFloat(totalHarvested), bigFloat(dust))
	metrics.Vault().SetTotalBalance(bigFloat(meta.TotalUserBalance))
	v.emitter.Emit(events.VaultEpochHarvested{
		Epoch:           meta.EpochsProcessed,
		Harvested:       copyBigInt(totalHarvested),
		Distributed:     copyBigInt(distributed),
		Dust:            copyBigInt(dust),
		Participants:    len(participants),
		FailedProtocols: append([]string(nil), failed...),
	})
	v.logger.Info("epoch harvested",
		slog.Uint64("epoch", meta.EpochsProcessed),
		slog.String("harvested", totalHarvested.String()),
		slog.Int("failed_protocols", len(failed)))
	return totalHarvested, nil
}

// AddProtocol appends a protocol to the routing set. The registry must
// already hold a connector for (id, asset).
func (v *Vault) AddProtocol(caller [20]byte, id string) error {
	if v == nil || v.state == nil {
		return ErrNilState
	}
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if err := v.authorize(caller); err != nil {
		return err
	}

	meta, err := v.state.GetMeta()
	if err != nil {
		return err
	}
	if containsProtocol(meta.ActiveProtocols, id) {
		return ErrProtocolActive
	}
	if _, err := v.registry.Resolve(id, v.params.Asset); err != nil {
		return fmt.Errorf("vault: add protocol %s: %w", id, err)
	}
	meta.ActiveProtocols = append(meta.ActiveProtocols, id)
	if err := v.state.PutMeta(meta); err != nil {
		return err
	}
	metrics.Vault().SetActiveProtocols(len(meta.ActiveProtocols))
	v.emitter.Emit(events.VaultProtocolAdded{Protocol: id})
	return nil
}

// RemoveProtocol drains the protocol's connector back through the ledger into
// the remaining routing set and removes it. The registry-active protocol
// cannot be removed while others remain, and the last protocol cannot be
// removed while its connector still holds principal.
func (v *Vault) RemoveProtocol(caller [20]byte, id string) error {
	if v == nil || v.state == nil {
		return ErrNilState
	}
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if err := v.authorize(caller); err != nil {
		return err
	}

	meta, err := v.state.GetMeta()
	if err != nil {
		return err
	}
	if !containsProtocol(meta.ActiveProtocols, id) {
		return ErrProtocolNotActive
	}
	remaining := make([]string, 0, len(meta.ActiveProtocols)-1)
	for _, existing := range meta.ActiveProtocols {
		if existing != id {
			remaining = append(remaining, existing)
		}
	}
	if active, err := v.registry.ActiveProtocol(); err == nil && active == id && len(remaining) > 0 {
		return ErrRemoveActiveProtocol
	}

	conn, err := v.registry.Resolve(id, v.params.Asset)
	if err != nil {
		return fmt.Errorf("vault: remove protocol %s: %w", id, err)
	}
	principal, err := conn.TotalPrincipal(v.params.Asset)
	if err != nil {
		return fmt.Errorf("vault: remove protocol %s: %w", id, err)
	}

	drained := big.NewInt(0)
	if principal != nil && principal.Sign() > 0 {
		if len(remaining) == 0 {
			return ErrLastProtocolFunded
		}
		target := remaining[0]
		if active, err := v.registry.ActiveProtocol(); err == nil && containsProtocol(remaining, active) {
			target = active
		}
		targetConn, err := v.registry.Resolve(target, v.params.Asset)
		if err != nil {
			return fmt.Errorf("vault: drain target %s: %w", target, err)
		}
		released, err := conn.Release(v.params.Asset, principal)
		if err != nil {
			return fmt.Errorf("vault: drain %s: %w", id, err)
		}
		if err := v.handoff(conn, targetConn, released); err != nil {
			return fmt.Errorf("vault: redeposit into %s: %w", target, err)
		}
		drained = released
	}

	meta.ActiveProtocols = remaining
	if err := v.state.PutMeta(meta); err != nil {
		return err
	}
	metrics.Vault().SetActiveProtocols(len(meta.ActiveProtocols))
	v.emitter.Emit(events.VaultProtocolRemoved{Protocol: id, Drained: drained})
	return nil
}

// Rebalance moves the entire pooled balance from one active protocol to
// another. The optimizer calls it after switching the registry's active
// protocol.
func (v *Vault) Rebalance(caller [20]byte, from, to string) error {
	if v == nil || v.state == nil {
		return ErrNilState
	}
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if err := v.authorize(caller); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	meta, err := v.state.GetMeta()
	if err != nil {
		return err
	}
	if !containsProtocol(meta.ActiveProtocols, from) || !containsProtocol(meta.ActiveProtocols, to) {
		return ErrProtocolNotActive
	}
	fromConn, err := v.registry.Resolve(from, v.params.Asset)
	if err != nil {
		return fmt.Errorf("vault: rebalance source %s: %w", from, err)
	}
	toConn, err := v.registry.Resolve(to, v.params.Asset)
	if err != nil {
		return fmt.Errorf("vault: rebalance target %s: %w", to, err)
	}
	principal, err := fromConn.TotalPrincipal(v.params.Asset)
	if err != nil {
		return fmt.Errorf("vault: rebalance source %s: %w", from, err)
	}
	if principal == nil || principal.Sign() == 0 {
		return nil
	}
	released, err := fromConn.Release(v.params.Asset, principal)
	if err != nil {
		return fmt.Errorf("vault: rebalance release from %s: %w", from, err)
	}
	if err := v.handoff(fromConn, toConn, released); err != nil {
		return fmt.Errorf("vault: rebalance accept into %s: %w", to, err)
	}

	v.emitter.Emit(events.VaultRebalanced{From: from, To: to, Amount: copyBigInt(released)})
	v.logger.Info("rebalanced pooled funds",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("amount", released.String()))
	return nil
}

// BalanceOf returns the participant's principal balance, zero when unknown.
func (v *Vault) BalanceOf(addr [20]byte) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	p, err := v.state.GetParticipant(addr)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return big.NewInt(0), nil
	}
	return copyBigInt(p.Balance), nil
}

// TimeWeightedBalanceOf returns the participant's time-weighted balance,
// zero when unknown.
func (v *Vault) TimeWeightedBalanceOf(addr [20]byte) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	p, err := v.state.GetParticipant(addr)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return big.NewInt(0), nil
	}
	return copyBigInt(p.TimeWeighted), nil
}

// CurrentEpoch returns the wall-clock epoch number.
func (v *Vault) CurrentEpoch() uint64 {
	return v.epochNumber(v.nowFn())
}

// EpochsProcessed returns the number of harvested epochs.
func (v *Vault) EpochsProcessed() (uint64, error) {
	meta, err := v.loadMeta()
	if err != nil {
		return 0, err
	}
	return meta.EpochsProcessed, nil
}

// LastEpochTime returns the boundary of the last processed epoch.
func (v *Vault) LastEpochTime() (uint64, error) {
	meta, err := v.loadMeta()
	if err != nil {
		return 0, err
	}
	return meta.LastEpochTime, nil
}

// TotalUserBalance returns the global principal counter.
func (v *Vault) TotalUserBalance() (*big.Int, error) {
	meta, err := v.loadMeta()
	if err != nil {
		return nil, err
	}
	return copyBigInt(meta.TotalUserBalance), nil
}

// Participants lists the active participant set in first-deposit order.
func (v *Vault) Participants() ([][20]byte, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	return v.state.ParticipantAddresses()
}

// ActiveProtocols returns the routing set in insertion order.
func (v *Vault) ActiveProtocols() ([]string, error) {
	meta, err := v.loadMeta()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), meta.ActiveProtocols...), nil
}

// EpochReport returns the immutable record of a processed epoch.
func (v *Vault) EpochReport(epoch uint64) (*EpochReport, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	report, ok, err := v.state.GetEpochReport(epoch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEpochReportNotFound
	}
	return report, nil
}

func (v *Vault) loadMeta() (*Meta, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	return v.state.GetMeta()
}

func (v *Vault) authorize(caller [20]byte) error {
	if err := common.Guard(v.pauses, moduleName); err != nil {
		return err
	}
	if caller != v.params.Operator {
		return ErrUnauthorized
	}
	return nil
}

// activeConnector resolves the registry's active protocol, requiring it to be
// a member of the vault's routing set.
func (v *Vault) activeConnector(meta *Meta) (string, connector.Connector, error) {
	id, err := v.registry.ActiveProtocol()
	if err != nil {
		return "", nil, ErrNoActiveProtocol
	}
	if !containsProtocol(meta.ActiveProtocols, id) {
		return "", nil, ErrProtocolNotActive
	}
	conn, err := v.registry.Resolve(id, v.params.Asset)
	if err != nil {
		return "", nil, fmt.Errorf("vault: resolve %s: %w", id, err)
	}
	return id, conn, nil
}

func (v *Vault) epochNumber(now uint64) uint64 {
	if v.params.EpochLength == 0 {
		return 0
	}
	return now / v.params.EpochLength
}

// currentWindowPortion sums the deposit entries made since the last processed
// epoch boundary.
func currentWindowPortion(p *Participant, lastEpochTime uint64) *big.Int {
	portion := big.NewInt(0)
	for _, entry := range p.Deposits {
		if entry.Time >= lastEpochTime && entry.Amount != nil {
			portion = portion.Add(portion, entry.Amount)
		}
	}
	return portion
}

// consumeWindowEntries reduces current-window entries FIFO by the withdrawn
// portion so repeated withdrawals are not charged twice for the same deposit.
// Each reduced entry's time-weighted contribution scales down pro-rata.
func consumeWindowEntries(p *Participant, lastEpochTime uint64, portion *big.Int) {
	if portion == nil || portion.Sign() <= 0 {
		return
	}
	remaining := new(big.Int).Set(portion)
	kept := p.Deposits[:0]
	for _, entry := range p.Deposits {
		if remaining.Sign() == 0 || entry.Time < lastEpochTime || entry.Amount == nil || entry.Amount.Sign() == 0 {
			kept = append(kept, entry)
			continue
		}
		take := new(big.Int).Set(remaining)
		if take.Cmp(entry.Amount) > 0 {
			take = new(big.Int).Set(entry.Amount)
		}
		left := new(big.Int).Sub(entry.Amount, take)
		remaining = remaining.Sub(remaining, take)
		if left.Sign() == 0 {
			continue
		}
		entry.TimeWeighted = scaleWeight(entry.TimeWeighted, entry.Amount, take)
		entry.Amount = left
		kept = append(kept, entry)
	}
	p.Deposits = kept
}

// handoff places already-released funds into the target connector. On
// failure it compensates by re-accepting the amount into the source so no
// funds end up tracked by neither connector; a failed compensation is
// escalated because the pool really is short at that point.
func (v *Vault) handoff(source, target connector.Connector, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	accepted, err := target.Accept(v.params.Asset, amount)
	if err == nil && (accepted == nil || accepted.Cmp(amount) != 0) {
		err = ErrConnectorShortfall
	}
	if err == nil {
		return nil
	}
	restored, restoreErr := source.Accept(v.params.Asset, amount)
	if restoreErr != nil || restored == nil || restored.Cmp(amount) != 0 {
		v.logger.Error("fund handoff compensation failed",
			slog.String("amount", amount.String()),
			slog.Any("accept_error", err),
			slog.Any("restore_error", restoreErr))
		return fmt.Errorf("%w: handoff compensation failed: %v", ErrConnectorShortfall, err)
	}
	return err
}

func containsProtocol(set []string, id string) bool {
	for _, existing := range set {
		if existing == id {
			return true
		}
	}
	return false
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
