package cycle

import (
	"fmt"
	"math/big"

	"swap-cycler/pkg/types"
)

// BuildLegs returns n legs alternating native->token (even indices) and token->native (odd
// indices). Each leg owns a copy of its amount.
func BuildLegs(n int, native, token types.Token, nativeAmount, tokenAmount *big.Int) []types.SwapLeg {
	if n <= 0 {
		return nil
	}

	legs := make([]types.SwapLeg, 0, n)
	for i := 0; i < n; i++ {
		from, to, amount := native, token, nativeAmount
		if i%2 == 1 {
			from, to, amount = token, native, tokenAmount
		}
		legs = append(legs, types.SwapLeg{
			Index:  i,
			From:   from,
			To:     to,
			Amount: new(big.Int).Set(amount),
			Pair:   PairLabel(from, to),
		})
	}
	return legs
}

// PairLabel renders a direction such as "ETH->USDC"
func PairLabel(from, to types.Token) string {
	return fmt.Sprintf("%s->%s", from.Symbol, to.Symbol)
}
