package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeTokenAddress is the sentinel used by the routing API for the chain's native asset.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// StatusFailed is the value of RouteResponse.Status the routing API uses to signal failure,
// independently of the HTTP status code.
const StatusFailed = -1

// Token describes one side of the traded pair
type Token struct {
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// IsNative reports whether the token is the native asset sentinel
func (t Token) IsNative() bool {
	return t.Address == NativeTokenAddress
}

// SwapLeg is one directed swap of a batch
type SwapLeg struct {
	Index  int
	From   Token
	To     Token
	Amount *big.Int // base units of From
	Pair   string
}

// String renders the leg for log lines, e.g. "#2 ETH->USDC".
func (l SwapLeg) String() string {
	return fmt.Sprintf("#%d %s", l.Index+1, l.Pair)
}

// RouteResponse is the envelope returned by the routing API
type RouteResponse struct {
	Status Quantity    `json:"status"`
	Data   *RouteQuote `json:"data"`
}

// Failed reports whether the envelope carries the failure sentinel
func (r *RouteResponse) Failed() bool {
	return r.Status.Int != nil && r.Status.Int.Cmp(big.NewInt(StatusFailed)) == 0
}

// RouteQuote holds the transaction parameters needed to execute a swap
type RouteQuote struct {
	Data     string   `json:"data"`     // calldata, 0x-prefixed hex
	To       string   `json:"to"`       // router contract
	Value    Quantity `json:"value"`    // native value in wei
	GasLimit Quantity `json:"gasLimit"` // optional gas hint
}

// Quantity is an integer that the API may encode as a JSON number, a decimal string or a
// 0x-prefixed hex string.
type Quantity struct {
	Int *big.Int
}

// NewQuantity wraps v
func NewQuantity(v int64) Quantity {
	return Quantity{Int: big.NewInt(v)}
}

// UnmarshalJSON implements json.Unmarshaler
func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		q.Int = nil
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		q.Int = nil
		return nil
	}

	v, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	q.Int = v
	return nil
}

// MarshalJSON implements json.Marshaler
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(q.Int.String())
}

// IsZero reports whether the quantity is absent or zero
func (q Quantity) IsZero() bool {
	return q.Int == nil || q.Int.Sign() == 0
}

// BigOr returns the wrapped value, or def when absent
func (q Quantity) BigOr(def *big.Int) *big.Int {
	if q.Int == nil {
		return new(big.Int).Set(def)
	}
	return new(big.Int).Set(q.Int)
}

// ErrInvalidQuantity is returned for values that are not integers
var ErrInvalidQuantity = errors.New("invalid quantity")

// ParseQuantity parses a decimal or 0x-prefixed hex integer
func ParseQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16)
	} else {
		// some APIs emit integral floats such as "1e18" or "300000.0"
		if strings.ContainsAny(s, ".eE") {
			f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrInvalidQuantity, s, err)
			}
			if f.IsInf() || !f.IsInt() {
				return nil, fmt.Errorf("%w %q: not an integer", ErrInvalidQuantity, s)
			}
			v, _ = f.Int(nil)
			return v, nil
		}
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidQuantity, s)
	}
	return v, nil
}

// BatchResult summarizes one batch of swap legs
type BatchResult struct {
	BatchID   string   `json:"batch_id"`
	Requested int      `json:"requested"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	TxHashes  []string `json:"tx_hashes"`
}
