package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "USD", "$0.00"},
		{"12.5", "USD", "$12.50"},
		{"1234.5", "usd", "$1,234.50"},
		{"1234567.891", "EUR", "€1,234,567.89"},
		{"999", "GBP", "£999.00"},
		{"1500", "JPY", "¥1,500"},
		{"1500.7", "KRW", "₩1,501"},
		{"-42.1", "USD", "-$42.10"},
		{"-0.001", "USD", "$0.00"},
		{"1234.5", "XYZ", "1,234.50 XYZ"},
		{"1000", "", "1,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"_"+tt.currency, func(t *testing.T) {
			got := FormatPrice(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 19.99 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("19.99")))

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("twelve")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseAmountBounds(t *testing.T) {
	for _, ok := range []string{"0", "1e3", "999999999999999", "0.00000001", "123456789012345.12345678"} {
		_, err := ParseAmount(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"1e2000000", "1e-2000000", "1000000000000000", "0.000000001", "1e15"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestConvert(t *testing.T) {
	got := Convert(decimal.RequireFromString("10"), decimal.RequireFromString("0.91234"))
	assert.Equal(t, "9.12", got.String())
}

func TestIsCurrencyCode(t *testing.T) {
	assert.True(t, IsCurrencyCode("USD"))
	assert.True(t, IsCurrencyCode("eur"))
	assert.False(t, IsCurrencyCode("US"))
	assert.False(t, IsCurrencyCode("U$D"))
	assert.False(t, IsCurrencyCode("EURO"))
}
