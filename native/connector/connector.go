package connector

import (
	"errors"
	"math/big"
)

// BpsDenominator is the fixed-point denominator for nominal rates (1% = 100).
const BpsDenominator = 10_000

var (
	ErrAssetNotSupported = errors.New("connector: asset not supported")
	ErrInvalidAmount     = errors.New("connector: amount must be positive")
)

// Connector adapts one external yield source for a single asset class. The
// vault engine is generic over this capability set and never references a
// concrete protocol type.
//
// All amounts are integers in the asset's smallest unit. Release and
// ReleaseTo are capped by the connector's own tracked principal: a connector
// must never release more than was ever placed with it, regardless of the
// requested amount.
type Connector interface {
	// ProtocolName identifies the external protocol behind the connector.
	ProtocolName() string

	// SupportsAsset reports whether the connector can custody the asset.
	SupportsAsset(asset string) bool

	// Accept places amount with the external protocol and returns the amount
	// actually accepted.
	Accept(asset string, amount *big.Int) (*big.Int, error)

	// Release pulls amount back out of the external protocol, capped at the
	// tracked principal, and returns the amount actually released.
	Release(asset string, amount *big.Int) (*big.Int, error)

	// ReleaseTo behaves like Release but delivers the funds directly to the
	// recipient, so the caller never custodies them mid-withdrawal.
	ReleaseTo(asset string, amount *big.Int, recipient [20]byte) (*big.Int, error)

	// Harvest realises accrued yield, re-compounds it into the connector's
	// principal internally and returns only the realised delta.
	Harvest(asset string) (*big.Int, error)

	// ConvertFeeToReward reduces the tracked principal by amount without
	// moving tokens, inflating the yield observed by the next Harvest.
	ConvertFeeToReward(asset string, amount *big.Int) error

	// Balance reports the connector's current total holdings, principal plus
	// unharvested yield.
	Balance(asset string) (*big.Int, error)

	// TotalPrincipal reports the principal currently tracked against the
	// external protocol.
	TotalPrincipal(asset string) (*big.Int, error)

	// NominalRateBps reports the protocol's advertised yield rate in basis
	// points.
	NominalRateBps(asset string) (uint64, error)

	// EstimatedYield reports the accrued-but-unharvested yield without
	// mutating connector state.
	EstimatedYield(asset string) (*big.Int, error)
}
