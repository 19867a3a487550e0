package vault

import "math/big"

var basisPoints = big.NewInt(PenaltyBpsDenominator)

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// bpsShare computes amount * bps / 10_000 with truncating division.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Quo(share, basisPoints)
}

// timeWeighted scales a deposit by the fraction of the epoch remaining:
// amount * (epochLength - elapsed) / epochLength. Elapsed time beyond the
// window contributes zero weight.
func timeWeighted(amount *big.Int, epochLength, elapsed uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || epochLength == 0 {
		return big.NewInt(0)
	}
	if elapsed >= epochLength {
		return big.NewInt(0)
	}
	remaining := new(big.Int).SetUint64(epochLength - elapsed)
	weighted := new(big.Int).Mul(amount, remaining)
	return weighted.Quo(weighted, new(big.Int).SetUint64(epochLength))
}

// scaleWeight reduces a time-weighted balance proportionally to a partial
// withdrawal: oldWeight * (oldBalance - withdrawn) / oldBalance.
func scaleWeight(oldWeight, oldBalance, withdrawn *big.Int) *big.Int {
	if oldWeight == nil || oldBalance == nil || oldBalance.Sign() == 0 {
		return big.NewInt(0)
	}
	remaining := new(big.Int).Sub(oldBalance, withdrawn)
	if remaining.Sign() <= 0 {
		return big.NewInt(0)
	}
	scaled := new(big.Int).Mul(oldWeight, remaining)
	return scaled.Quo(scaled, oldBalance)
}

// splitEvenly divides amount across n recipients with truncating division and
// assigns the remainder to the first. The slice sums to amount exactly.
func splitEvenly(amount *big.Int, n int) []*big.Int {
	if n <= 0 {
		return nil
	}
	shares := make([]*big.Int, n)
	if amount == nil || amount.Sign() <= 0 {
		for i := range shares {
			shares[i] = big.NewInt(0)
		}
		return shares
	}
	quot, rem := new(big.Int).QuoRem(amount, big.NewInt(int64(n)), new(big.Int))
	for i := range shares {
		shares[i] = new(big.Int).Set(quot)
	}
	shares[0] = shares[0].Add(shares[0], rem)
	return shares
}

// proportionalShare computes total * weight / totalWeight with truncating
// division.
func proportionalShare(total, weight, totalWeight *big.Int) *big.Int {
	if total == nil || weight == nil || totalWeight == nil || totalWeight.Sign() == 0 {
		return big.NewInt(0)
	}
	if total.Sign() <= 0 || weight.Sign() <= 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(total, weight)
	return share.Quo(share, totalWeight)
}
