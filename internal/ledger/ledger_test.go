package ledger_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beckahex-jpg/charitymarket/internal/ledger"
)

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name           string
		total          string
		rate           string
		wantCommission string
		wantSeller     string
		wantErr        error
	}{
		{
			name:           "ten_percent_of_100",
			total:          "100.00",
			rate:           "10",
			wantCommission: "10.00",
			wantSeller:     "90.00",
		},
		{
			name:           "zero_rate",
			total:          "49.99",
			rate:           "0",
			wantCommission: "0.00",
			wantSeller:     "49.99",
		},
		{
			name:           "full_rate",
			total:          "25.50",
			rate:           "100",
			wantCommission: "25.50",
			wantSeller:     "0.00",
		},
		{
			name:           "rounding_goes_to_commission",
			total:          "10.01",
			rate:           "12.5",
			wantCommission: "1.25",
			wantSeller:     "8.76",
		},
		{
			name:    "negative_rate",
			total:   "100.00",
			rate:    "-1",
			wantErr: ledger.ErrInvalidRate,
		},
		{
			name:    "rate_above_100",
			total:   "100.00",
			rate:    "100.01",
			wantErr: ledger.ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			rate := decimal.RequireFromString(tt.rate)

			split, err := ledger.ComputeSplit(total, rate)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)

			assert.True(t, split.Commission.Equal(decimal.RequireFromString(tt.wantCommission)),
				"commission = %s", split.Commission)
			assert.True(t, split.SellerAmount.Equal(decimal.RequireFromString(tt.wantSeller)),
				"seller amount = %s", split.SellerAmount)
		})
	}
}

// Commission + seller amount must reconstruct the total exactly for every
// rate, including ones that force rounding on the commission side.
func TestComputeSplit_Conservation(t *testing.T) {
	totals := []string{"0.01", "0.99", "19.99", "100.00", "1234.56", "99999.99", "33.33"}
	rates := []string{"0", "1", "2.5", "7.77", "10", "12.5", "33.333", "50", "66.67", "99", "100"}

	for _, ts := range totals {
		for _, rs := range rates {
			total := decimal.RequireFromString(ts)
			rate := decimal.RequireFromString(rs)

			split, err := ledger.ComputeSplit(total, rate)
			require.NoError(t, err)

			sum := split.Commission.Add(split.SellerAmount)
			assert.True(t, sum.Equal(total),
				"total=%s rate=%s: %s + %s = %s", ts, rs, split.Commission, split.SellerAmount, sum)
		}
	}
}

func TestEstimateSellerAmount_MatchesSplitAtSameRate(t *testing.T) {
	total := decimal.RequireFromString("250.00")
	rate := decimal.NewFromInt(10)

	estimate, err := ledger.EstimateSellerAmount(total, rate)
	require.NoError(t, err)

	split, err := ledger.ComputeSplit(total, rate)
	require.NoError(t, err)

	assert.True(t, estimate.Equal(split.SellerAmount))
}
