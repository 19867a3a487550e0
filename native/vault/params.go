package vault

import "errors"

// PenaltyBpsDenominator is the fixed-point denominator for the
// early-withdrawal penalty rate.
const PenaltyBpsDenominator = 10_000

// DefaultPenaltyBps charges 5% on the current-epoch portion of a withdrawal.
const DefaultPenaltyBps uint64 = 500

// Params configures a vault instance. Asset and epoch length are fixed for
// the lifetime of the vault.
type Params struct {
	Asset       string
	EpochLength uint64
	PenaltyBps  uint64
	Operator    [20]byte
}

// DefaultParams returns a one-hour-epoch configuration with the reference
// penalty rate. The asset and operator must still be set by the caller.
func DefaultParams() Params {
	return Params{
		EpochLength: 3600,
		PenaltyBps:  DefaultPenaltyBps,
	}
}

// Validate ensures the parameters are self-consistent.
func (p Params) Validate() error {
	if p.Asset == "" {
		return errors.New("vault: asset symbol required")
	}
	if p.EpochLength == 0 {
		return errors.New("vault: epoch length must be positive")
	}
	if p.PenaltyBps > PenaltyBpsDenominator {
		return errors.New("vault: penalty bps exceeds denominator")
	}
	return nil
}
