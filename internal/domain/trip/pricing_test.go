package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVATInclusiveStrategy_Breakdown(t *testing.T) {
	s := NewVATInclusiveStrategy(DefaultVATBasisPoints)

	p, err := s.Breakdown(848000, "")
	require.NoError(t, err)
	assert.Equal(t, int64(800000), p.ExVATCents)
	assert.Equal(t, int64(48000), p.VATCents)
	assert.Equal(t, "SEK", p.Currency)

	p, err = s.Breakdown(1001, "EUR")
	require.NoError(t, err)
	assert.Equal(t, p.TotalCents, p.ExVATCents+p.VATCents)
	assert.Equal(t, "EUR", p.Currency)

	_, err = s.Breakdown(0, "")
	assert.Error(t, err)
}

func TestComplete_KeepsExplicitSplit(t *testing.T) {
	s := NewVATInclusiveStrategy(DefaultVATBasisPoints)

	p, err := Complete(PriceBreakdown{ExVATCents: 100, VATCents: 25}, s)
	require.NoError(t, err)
	assert.Equal(t, int64(125), p.TotalCents)
	assert.Equal(t, int64(25), p.VATCents)

	p, err = Complete(PriceBreakdown{TotalCents: 10600}, s)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), p.ExVATCents)
	assert.Equal(t, int64(600), p.VATCents)
}
