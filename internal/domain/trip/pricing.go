package trip

import "fmt"

// DefaultVATBasisPoints is the Swedish VAT rate for domestic passenger transport (6%).
const DefaultVATBasisPoints = 600

// PricingStrategy turns a quoted amount into a full breakdown.
type PricingStrategy interface {
	Breakdown(totalCents int64, currency string) (PriceBreakdown, error)
}

// VATInclusiveStrategy treats the quoted amount as VAT-inclusive and splits
// out the VAT part at a fixed rate.
type VATInclusiveStrategy struct {
	basisPoints int64
}

// NewVATInclusiveStrategy creates a strategy for the given rate in basis points.
func NewVATInclusiveStrategy(basisPoints int64) *VATInclusiveStrategy {
	return &VATInclusiveStrategy{basisPoints: basisPoints}
}

// Breakdown computes ex-VAT = total / (1 + rate), rounded to the nearest öre,
// and assigns the remainder to VAT so the parts always sum to the total.
func (s *VATInclusiveStrategy) Breakdown(totalCents int64, currency string) (PriceBreakdown, error) {
	if totalCents <= 0 {
		return PriceBreakdown{}, fmt.Errorf("total must be positive")
	}
	if s.basisPoints < 0 {
		return PriceBreakdown{}, fmt.Errorf("vat rate cannot be negative")
	}
	if currency == "" {
		currency = "SEK"
	}

	divisor := 10000 + s.basisPoints
	exVAT := (totalCents*10000 + divisor/2) / divisor
	return PriceBreakdown{
		ExVATCents: exVAT,
		VATCents:   totalCents - exVAT,
		TotalCents: totalCents,
		Currency:   currency,
	}, nil
}

// Complete fills in a partially specified breakdown. An explicit split is
// kept as given; a bare total is split by the strategy.
func Complete(p PriceBreakdown, strategy PricingStrategy) (PriceBreakdown, error) {
	if p.ExVATCents != 0 || p.VATCents != 0 {
		if p.TotalCents == 0 {
			p.TotalCents = p.ExVATCents + p.VATCents
		}
		if p.Currency == "" {
			p.Currency = "SEK"
		}
		return p, nil
	}
	return strategy.Breakdown(p.TotalCents, p.Currency)
}
