package events

import "math/big"

const (
	EventVaultDeposited       = "vault.deposited"
	EventVaultWithdrawn       = "vault.withdrawn"
	EventVaultEpochHarvested  = "vault.epoch_harvested"
	EventVaultProtocolAdded   = "vault.protocol_added"
	EventVaultProtocolRemoved = "vault.protocol_removed"
	EventVaultRebalanced      = "vault.rebalanced"
)

// VaultDeposited signals that a participant's deposit was accepted and routed
// to the active protocol.
type VaultDeposited struct {
	Participant  [20]byte
	Amount       *big.Int
	TimeWeighted *big.Int
	Epoch        uint64
	Protocol     string
}

// EventType implements the Event interface.
func (VaultDeposited) EventType() string { return EventVaultDeposited }

// VaultWithdrawn signals a completed withdrawal, including the early-exit
// penalty that was folded back into the yield pool.
type VaultWithdrawn struct {
	Participant [20]byte
	Requested   *big.Int
	Penalty     *big.Int
	Paid        *big.Int
}

// EventType implements the Event interface.
func (VaultWithdrawn) EventType() string { return EventVaultWithdrawn }

// VaultEpochHarvested captures the outcome of an epoch transition.
type VaultEpochHarvested struct {
	Epoch           uint64
	Harvested       *big.Int
	Distributed     *big.Int
	Dust            *big.Int
	Participants    int
	FailedProtocols []string
}

// EventType implements the Event interface.
func (VaultEpochHarvested) EventType() string { return EventVaultEpochHarvested }

// VaultProtocolAdded signals a protocol joining the routing set.
type VaultProtocolAdded struct {
	Protocol string
}

// EventType implements the Event interface.
func (VaultProtocolAdded) EventType() string { return EventVaultProtocolAdded }

// VaultProtocolRemoved signals a protocol leaving the routing set after its
// funds were drained.
type VaultProtocolRemoved struct {
	Protocol string
	Drained  *big.Int
}

// EventType implements the Event interface.
func (VaultProtocolRemoved) EventType() string { return EventVaultProtocolRemoved }

// VaultRebalanced signals the pooled balance moving between protocols.
type VaultRebalanced struct {
	From   string
	To     string
	Amount *big.Int
}

// EventType implements the Event interface.
func (VaultRebalanced) EventType() string { return EventVaultRebalanced }
