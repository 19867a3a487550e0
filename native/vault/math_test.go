package vault

import (
	"math/big"
	"testing"
)

func TestTimeWeighted(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		length  uint64
		elapsed uint64
		want    int64
	}{
		{"epoch start", 1000, 1000, 0, 1000},
		{"quarter in", 1000, 1000, 250, 750},
		{"last second", 1000, 1000, 999, 1},
		{"window elapsed", 1000, 1000, 1000, 0},
		{"beyond window", 1000, 1000, 5000, 0},
		{"truncates", 7, 3, 1, 4},
	}
	for _, tc := range cases {
		got := timeWeighted(big.NewInt(tc.amount), tc.length, tc.elapsed)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("%s: expected %d, got %s", tc.name, tc.want, got)
		}
	}
}

func TestBpsShare(t *testing.T) {
	if got := bpsShare(big.NewInt(1_000), 500); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected 50, got %s", got)
	}
	if got := bpsShare(big.NewInt(19), 500); got.Sign() != 0 {
		t.Fatalf("expected truncation to zero, got %s", got)
	}
	if got := bpsShare(nil, 500); got.Sign() != 0 {
		t.Fatalf("expected zero for nil, got %s", got)
	}
}

func TestScaleWeight(t *testing.T) {
	got := scaleWeight(big.NewInt(1_500), big.NewInt(2_000), big.NewInt(500))
	if got.Cmp(big.NewInt(1_125)) != 0 {
		t.Fatalf("expected 1125, got %s", got)
	}
	if got := scaleWeight(big.NewInt(100), big.NewInt(100), big.NewInt(100)); got.Sign() != 0 {
		t.Fatalf("expected zero on full exit, got %s", got)
	}
	if got := scaleWeight(big.NewInt(100), big.NewInt(0), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("expected zero for empty balance, got %s", got)
	}
}

func TestSplitEvenly(t *testing.T) {
	shares := splitEvenly(big.NewInt(100), 3)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	sum := big.NewInt(0)
	for _, share := range shares {
		sum.Add(sum, share)
	}
	if sum.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("shares must sum to the amount, got %s", sum)
	}
	// Remainder goes to the first share.
	if shares[0].Cmp(big.NewInt(34)) != 0 {
		t.Fatalf("expected first share 34, got %s", shares[0])
	}
}

func TestProportionalShare(t *testing.T) {
	got := proportionalShare(big.NewInt(400), big.NewInt(300), big.NewInt(400))
	if got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected 300, got %s", got)
	}
	if got := proportionalShare(big.NewInt(400), big.NewInt(1), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("expected zero for empty weight pool, got %s", got)
	}
}
