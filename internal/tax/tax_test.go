package tax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLineTaxDefaultRate(t *testing.T) {
	rates, err := NewStaticRates("20")
	require.NoError(t, err)
	calc, err := NewCalculator(rates)
	require.NoError(t, err)

	tax, err := calc.LineTax(1000, nil)
	require.NoError(t, err)
	require.Equal(t, int64(200), tax)
}

func TestLineTaxProductOverride(t *testing.T) {
	rates, err := NewStaticRates("20")
	require.NoError(t, err)
	calc, err := NewCalculator(rates)
	require.NoError(t, err)

	tax, err := calc.LineTax(1000, strPtr("5"))
	require.NoError(t, err)
	require.Equal(t, int64(50), tax)
}

func TestLineTaxRoundsHalfUp(t *testing.T) {
	rates, err := NewStaticRates("17.5")
	require.NoError(t, err)
	calc, err := NewCalculator(rates)
	require.NoError(t, err)

	// 333 * 17.5% = 58.275 -> 58
	tax, err := calc.LineTax(333, nil)
	require.NoError(t, err)
	require.Equal(t, int64(58), tax)

	// 100 * 17.5% = 17.5 -> 18
	tax, err = calc.LineTax(100, nil)
	require.NoError(t, err)
	require.Equal(t, int64(18), tax)
}

func TestLineTaxZeroRate(t *testing.T) {
	rates, err := NewStaticRates("0")
	require.NoError(t, err)
	calc, err := NewCalculator(rates)
	require.NoError(t, err)

	tax, err := calc.LineTax(99999, nil)
	require.NoError(t, err)
	require.Zero(t, tax)
}

func TestStaticRatesRejectsBadInput(t *testing.T) {
	_, err := NewStaticRates("not-a-number")
	require.Error(t, err)

	_, err = NewStaticRates("-5")
	require.Error(t, err)

	rates, err := NewStaticRates("20")
	require.NoError(t, err)
	_, err = rates.RateFor(strPtr("abc"))
	require.Error(t, err)
}
