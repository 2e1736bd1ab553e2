package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoValidKeys is returned when none of the configured secrets is a usable private key
var ErrNoValidKeys = errors.New("no valid private keys found")

var keyShape = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Wallet is the signing identity used for every on-chain call
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// New parses a 0x-prefixed hex private key
func New(hexKey string, chainID *big.Int) (*Wallet, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id: %v", chainID)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
	}, nil
}

// ValidShape reports whether s looks like a 32-byte 0x-prefixed hex key
func ValidShape(s string) bool {
	return keyShape.MatchString(strings.TrimSpace(s))
}

// LoadFirst returns the wallet for the first well-formed key. Malformed entries are skipped
// with a warning.
func LoadFirst(keys []string, chainID *big.Int, log *slog.Logger) (*Wallet, error) {
	var valid []*Wallet
	for i, k := range keys {
		if !ValidShape(k) {
			log.Warn("Skipping malformed private key", "index", i, "key", Mask(k))
			continue
		}
		w, err := New(k, chainID)
		if err != nil {
			log.Warn("Skipping unusable private key", "index", i, "error", err)
			continue
		}
		valid = append(valid, w)
	}

	if len(valid) == 0 {
		return nil, ErrNoValidKeys
	}
	if len(valid) > 1 {
		log.Info("Multiple keys configured, using the first one", "valid", len(valid))
	}
	return valid[0], nil
}

// Address returns the public address derived from the key
func (w *Wallet) Address() common.Address {
	return w.address
}

// ChainID returns the chain the wallet signs for
func (w *Wallet) ChainID() *big.Int {
	return new(big.Int).Set(w.chainID)
}

// TransactOpts builds signing options bound to ctx
func (w *Wallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// SignTx signs tx with the latest signer for the wallet's chain
func (w *Wallet) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// Mask hides all but the edges of a secret for log output
func Mask(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 10 {
		return strings.Repeat("*", len(s))
	}
	return s[:6] + "..." + s[len(s)-4:]
}
