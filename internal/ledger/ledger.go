package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("commission rate must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// Split is the commission/seller breakdown of an order total.
type Split struct {
	Commission   decimal.Decimal `json:"commission"`
	SellerAmount decimal.Decimal `json:"seller_amount"`
}

// ComputeSplit divides totalAmount between the platform and the seller.
// The commission is rounded to cents; the seller amount is always the
// remainder (total - commission), never rounded independently, so
// Commission + SellerAmount == totalAmount holds exactly.
func ComputeSplit(totalAmount, ratePercent decimal.Decimal) (Split, error) {
	if ratePercent.IsNegative() || ratePercent.GreaterThan(hundred) {
		return Split{}, fmt.Errorf("ledger: rate %s out of range: %w", ratePercent, ErrInvalidRate)
	}

	commission := totalAmount.Mul(ratePercent).Div(hundred).Round(2)

	return Split{
		Commission:   commission,
		SellerAmount: totalAmount.Sub(commission),
	}, nil
}

// EstimateSellerAmount is the pre-settlement figure shown to sellers. It is
// computed on demand with the current rate and never persisted; the
// authoritative value is the one ComputeSplit writes at settlement time.
func EstimateSellerAmount(totalAmount, ratePercent decimal.Decimal) (decimal.Decimal, error) {
	split, err := ComputeSplit(totalAmount, ratePercent)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return split.SellerAmount, nil
}
