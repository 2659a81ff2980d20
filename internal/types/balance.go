package types

import "github.com/shopspring/decimal"

// Balance is one asset's wallet entry.
type Balance struct {
	Asset  string          `yaml:"asset"`
	Free   decimal.Decimal `yaml:"free"`
	Locked decimal.Decimal `yaml:"locked"`
}

// WalletSnapshot maps asset symbol to its balance at query time.
// The exchange is the source of truth; snapshots are never cached across steps.
type WalletSnapshot map[string]Balance

// Free returns the free amount of the given asset, zero when the asset is
// absent from the snapshot.
func (w WalletSnapshot) Free(asset string) decimal.Decimal {
	if b, ok := w[asset]; ok {
		return b.Free
	}

	return decimal.Zero
}

// TotalAssets marks the wallet to market in quote terms:
// quote free amount plus base free amount valued at the given close price.
func (w WalletSnapshot) TotalAssets(base, quote string, closePrice decimal.Decimal) decimal.Decimal {
	return w.Free(quote).Add(w.Free(base).Mul(closePrice))
}
