package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedDollar(t *testing.T) {
	tests := []struct {
		name           string
		amount         float64
		price          float64
		portfolioValue float64
		wantShares     int
		wantErr        bool
	}{
		{name: "floors fractional shares", amount: 1000, price: 33.33, portfolioValue: 10000, wantShares: 30},
		{name: "caps at max position percent", amount: 9000, price: 10, portfolioValue: 10000, wantShares: 250}, // 25% of 10000 / 10
		{name: "zero price rejected", price: 0, amount: 100, portfolioValue: 10000, wantErr: true},
		{name: "negative amount rejected", amount: -1, price: 10, portfolioValue: 10000, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := FixedDollar(tt.amount, tt.price, tt.portfolioValue)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantShares, res.Shares)
			assert.Equal(t, "fixed_dollar", res.MethodTag)
		})
	}
}

func TestFixedPercent(t *testing.T) {
	res, err := FixedPercent(0.10, 50, 10000)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Shares) // 10% of 10000 = 1000 / 50 = 20

	_, err = FixedPercent(1.5, 50, 10000)
	assert.Error(t, err, "percent above 1.0 should be rejected")
}

func TestKelly(t *testing.T) {
	params := KellyParams{WinProbability: 0.6, AvgWin: 200, AvgLoss: 100, KellyFraction: 0.5}
	res, err := Kelly(params, 20, 10000)
	require.NoError(t, err)
	assert.Greater(t, res.Shares, 0)
	assert.LessOrEqual(t, res.Percent, MaxPositionPercent+1e-9)

	_, err = Kelly(KellyParams{WinProbability: 1.5}, 20, 10000)
	assert.Error(t, err, "probability outside [0,1] should be rejected")
}

func TestVolatility(t *testing.T) {
	params := VolatilityParams{ATR: 2, ATRMultiplier: 2, RiskPercent: 0.01}
	res, err := Volatility(params, 50, 10000)
	require.NoError(t, err)
	// risk budget = 100, stop distance = 4, so 25 shares before capping
	assert.Equal(t, 25, res.Shares)
}

func TestRiskParity(t *testing.T) {
	// Sigmas kept close together so no asset's inverse-vol weight crosses
	// the 25% position cap, letting the weighting show through in shares.
	assets := []Asset{
		{Symbol: "AAA", Sigma: 0.18, Price: 10},
		{Symbol: "BBB", Sigma: 0.19, Price: 10},
		{Symbol: "CCC", Sigma: 0.20, Price: 10},
		{Symbol: "DDD", Sigma: 0.21, Price: 10},
		{Symbol: "EEE", Sigma: 0.22, Price: 10},
	}
	results, err := RiskParity(assets, 10000)
	require.NoError(t, err)
	require.Len(t, results, 5)
	// lower-volatility asset gets a larger weight under inverse-vol risk parity
	assert.Greater(t, results["AAA"].Shares, results["EEE"].Shares)
}

func TestRiskParityInverseVolWeightsSumToOne(t *testing.T) {
	assets := []Asset{
		{Symbol: "A", Sigma: 0.03, Price: 100},
		{Symbol: "B", Sigma: 0.015, Price: 100},
		{Symbol: "C", Sigma: 0.005, Price: 100},
	}
	results, err := RiskParity(assets, 100000)
	require.NoError(t, err)

	var sum float64
	for _, r := range results {
		sum += r.Diagnostics["weight"]
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	// inverse-vol ratios 1:2:6 normalized
	assert.InDelta(t, 1.0/9, results["A"].Diagnostics["weight"], 1e-9)
	assert.InDelta(t, 2.0/9, results["B"].Diagnostics["weight"], 1e-9)
	assert.InDelta(t, 6.0/9, results["C"].Diagnostics["weight"], 1e-9)
}

func TestMarginAware(t *testing.T) {
	params := MarginAwareParams{AvailableCash: 5000, MarginRequirement: 0.5, MaxLeverage: 2.0}
	res, err := MarginAware(params, 25, 10000)
	require.NoError(t, err)
	assert.Greater(t, res.Shares, 0)
}
