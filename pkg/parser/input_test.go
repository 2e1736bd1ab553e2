package parser

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSwapCount(t *testing.T) {
	valid := map[string]int{
		"1":      1,
		"4":      4,
		" 10\n":  10,
		"000012": 12,
	}
	for input, want := range valid {
		n, err := ParseSwapCount(input)
		require.NoError(t, err, input)
		require.Equal(t, want, n)
	}

	for _, input := range []string{"", "0", "-3", "abc", "2.5", "1e3", "four"} {
		_, err := ParseSwapCount(input)
		require.ErrorIs(t, err, ErrInvalidCount, input)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"0.00245", 18, "2450000000000000"},
		{"5", 6, "5000000"},
		{"1.5", 6, "1500000"},
		{"12.", 2, "1200"},
		{"0.000001", 6, "1"},
		{"42", 0, "42"},
	}
	for _, tc := range cases {
		v, err := ParseAmount(tc.amount, tc.decimals)
		require.NoError(t, err, tc.amount)
		require.Equal(t, tc.want, v.String(), tc.amount)
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, amount := range []string{"", "abc", "-1", "1,5", "0", "0.000", ".5"} {
		_, err := ParseAmount(amount, 18)
		require.ErrorIs(t, err, ErrInvalidAmount, amount)
	}

	_, err := ParseAmount("0.0000001", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0.00245", FormatAmount(big.NewInt(2450000000000000), 18))
	require.Equal(t, "5", FormatAmount(big.NewInt(5000000), 6))
	require.Equal(t, "0.000001", FormatAmount(big.NewInt(1), 6))
	require.Equal(t, "1.5", FormatAmount(big.NewInt(1500000), 6))
	require.Equal(t, "42", FormatAmount(big.NewInt(42), 0))
	require.Equal(t, "-0.5", FormatAmount(big.NewInt(-500000), 6))
	require.Equal(t, "0", FormatAmount(nil, 6))
	require.Equal(t, "0", FormatAmount(big.NewInt(0), 6))
}
