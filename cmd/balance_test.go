package cmd

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"swap-cycler/pkg/allowance"
	"swap-cycler/pkg/types"
)

func TestNewTokenView(t *testing.T) {
	usdc := types.Token{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6}
	state := &allowance.State{
		Token:     usdc,
		Balance:   big.NewInt(12_500_000),
		Allowance: big.NewInt(5_000_000),
		Decimals:  6,
	}

	v := newTokenView(state, big.NewInt(5_000_000))
	require.Equal(t, "USDC", v.Symbol)
	require.Equal(t, "12.5", v.Balance)
	require.Equal(t, "5", v.Allowance)
	require.Equal(t, "5", v.PerLeg)
	require.Equal(t, "2", v.Legs)

	eth := types.Token{Symbol: "ETH", Address: types.NativeTokenAddress, Decimals: 18}
	native := newTokenView(&allowance.State{Token: eth, Balance: big.NewInt(1e16), Decimals: 18}, big.NewInt(2450000000000000))
	require.Empty(t, native.Allowance)
	require.Equal(t, "0.01", native.Balance)
	require.Equal(t, "4", native.Legs)
}
