// Package connectortest exercises the connector capability contract against
// any implementation. Connector authors run Conformance from their own test
// suite with a factory producing a fresh, empty connector per case.
package connectortest

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldvault/native/connector"
)

const unknownAsset = "__UNKNOWN__"

// Factory returns a fresh connector holding no funds.
type Factory func() connector.Connector

// Conformance runs the capability contract suite for one asset.
func Conformance(t *testing.T, asset string, factory Factory) {
	t.Run("AssetSupport", func(t *testing.T) {
		c := factory()
		require.True(t, c.SupportsAsset(asset))
		require.False(t, c.SupportsAsset(unknownAsset))
		require.NotEmpty(t, c.ProtocolName())

		_, err := c.Accept(unknownAsset, big.NewInt(1))
		require.Error(t, err)
		_, err = c.Harvest(unknownAsset)
		require.Error(t, err)
		_, err = c.Balance(unknownAsset)
		require.Error(t, err)
	})

	t.Run("AcceptTracksPrincipal", func(t *testing.T) {
		c := factory()
		accepted, err := c.Accept(asset, big.NewInt(1_000))
		require.NoError(t, err)
		require.True(t, accepted.Sign() > 0)
		require.True(t, accepted.Cmp(big.NewInt(1_000)) <= 0)

		principal, err := c.TotalPrincipal(asset)
		require.NoError(t, err)
		require.Equal(t, 0, principal.Cmp(accepted))

		_, err = c.Accept(asset, big.NewInt(0))
		require.Error(t, err)
		_, err = c.Accept(asset, nil)
		require.Error(t, err)
	})

	t.Run("ReleaseCappedAtPrincipal", func(t *testing.T) {
		c := factory()
		accepted, err := c.Accept(asset, big.NewInt(500))
		require.NoError(t, err)

		released, err := c.Release(asset, big.NewInt(10_000))
		require.NoError(t, err)
		require.Equal(t, 0, released.Cmp(accepted), "release must cap at tracked principal")

		principal, err := c.TotalPrincipal(asset)
		require.NoError(t, err)
		require.Equal(t, 0, principal.Sign())
	})

	t.Run("ReleaseToSameCap", func(t *testing.T) {
		c := factory()
		accepted, err := c.Accept(asset, big.NewInt(750))
		require.NoError(t, err)

		var recipient [20]byte
		recipient[19] = 0x42
		released, err := c.ReleaseTo(asset, big.NewInt(9_999), recipient)
		require.NoError(t, err)
		require.Equal(t, 0, released.Cmp(accepted))
	})

	t.Run("FeeConversionBoostsHarvest", func(t *testing.T) {
		c := factory()
		_, err := c.Accept(asset, big.NewInt(2_000))
		require.NoError(t, err)

		before, err := c.TotalPrincipal(asset)
		require.NoError(t, err)

		fee := big.NewInt(150)
		require.NoError(t, c.ConvertFeeToReward(asset, fee))

		shrunk, err := c.TotalPrincipal(asset)
		require.NoError(t, err)
		require.True(t, shrunk.Cmp(before) < 0, "fee conversion must shrink tracked principal")

		harvested, err := c.Harvest(asset)
		require.NoError(t, err)
		require.True(t, harvested.Cmp(fee) >= 0, "converted fee must surface as harvested yield")

		// Harvest re-compounds: the delta returns to principal.
		after, err := c.TotalPrincipal(asset)
		require.NoError(t, err)
		require.True(t, after.Cmp(shrunk) >= 0)
	})

	t.Run("EstimatedYieldNonMutating", func(t *testing.T) {
		c := factory()
		_, err := c.Accept(asset, big.NewInt(3_000))
		require.NoError(t, err)

		before, err := c.TotalPrincipal(asset)
		require.NoError(t, err)

		first, err := c.EstimatedYield(asset)
		require.NoError(t, err)
		second, err := c.EstimatedYield(asset)
		require.NoError(t, err)
		require.True(t, second.Cmp(first) >= 0)

		after, err := c.TotalPrincipal(asset)
		require.NoError(t, err)
		require.Equal(t, 0, after.Cmp(before))
	})

	t.Run("NominalRate", func(t *testing.T) {
		c := factory()
		_, err := c.NominalRateBps(asset)
		require.NoError(t, err)
		_, err = c.NominalRateBps(unknownAsset)
		require.Error(t, err)
	})
}
