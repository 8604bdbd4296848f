package amount_test

import (
	"fmt"
	"testing"

	"github.com/nearsat-labs/wallet-gateway/gateway/amount"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"0.001", 8, "100000"},
		{"1", 8, "100000000"},
		{"2", 24, "2000000000000000000000000"},
		{"0", 8, "0"},
		{"0.5", 0, "0"},          // truncated below precision
		{"0.00000001", 8, "1"},   // one unit of dust
		{"0.000000001", 8, "0"},  // below dust, truncates to zero
		{"123.456789", 6, "123456789"},
	}
	for _, c := range cases {
		got, err := amount.Parse(c.in, c.decimals)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := amount.Parse("not-a-number", 8)
	assert.Error(t, err)

	_, err = amount.Parse("-1", 8)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00001", amount.Format("1000", 8))
	assert.Equal(t, "0.00099", amount.Format("99000", 8))
	assert.Equal(t, "1", amount.Format("100000000", 8))
	assert.Equal(t, "0", amount.Format("", 8))
	assert.Equal(t, "0", amount.Format("garbage", 8))
}

// For any valid decimal string and decimal count in [0,24] the parse/format
// pair must round-trip to the normalized form of the input.
func TestRoundTrip(t *testing.T) {
	inputs := []string{"0", "1", "0.1", "12.25", "0.00000001", "999999.000001", "3"}
	for d := int32(0); d <= 24; d++ {
		for _, in := range inputs {
			t.Run(fmt.Sprintf("%s/%d", in, d), func(t *testing.T) {
				raw, err := amount.Parse(in, d)
				assert.NoError(t, err)

				got := amount.Format(raw, d)
				want := decimal.RequireFromString(in).Truncate(d).String()
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestGas(t *testing.T) {
	assert.Equal(t, "100000000000000", amount.Gas(100))
	assert.Equal(t, "200000000000000", amount.Gas(200))
}

func TestSafeHelpers(t *testing.T) {
	assert.True(t, amount.Safe("bogus").IsZero())
	assert.True(t, amount.IsZero("0.000"))
	assert.True(t, amount.IsZero(""))
	assert.False(t, amount.IsZero("0.1"))
	assert.Equal(t, "2", amount.Max("1", "2"))
	assert.Equal(t, "1", amount.Min("1", "2"))
}
