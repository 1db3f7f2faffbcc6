package models

// AssetClass groups instruments by the upstream provider that quotes them.
type AssetClass string

const (
	ClassStock  AssetClass = "stock"
	ClassForex  AssetClass = "forex"
	ClassCrypto AssetClass = "crypto"
)

// Valid reports whether c is one of the known asset classes.
func (c AssetClass) Valid() bool {
	switch c {
	case ClassStock, ClassForex, ClassCrypto:
		return true
	}
	return false
}

// Asset is an instrument tracked by the pipeline. Immutable once created.
type Asset struct {
	ID       int64      `json:"id"`
	Symbol   string     `json:"symbol"`
	Name     string     `json:"name"`
	Class    AssetClass `json:"type"`
	Exchange string     `json:"exchange"`
	Active   bool       `json:"isActive"`
}

// DefaultAssets is the boot-time seed list.
func DefaultAssets() []Asset {
	return []Asset{
		{Symbol: "AAPL", Name: "Apple Inc", Class: ClassStock, Exchange: "NASDAQ", Active: true},
		{Symbol: "TSLA", Name: "Tesla Inc", Class: ClassStock, Exchange: "NASDAQ", Active: true},
		{Symbol: "GOOGL", Name: "Alphabet Inc", Class: ClassStock, Exchange: "NASDAQ", Active: true},
		{Symbol: "MSFT", Name: "Microsoft Corp", Class: ClassStock, Exchange: "NASDAQ", Active: true},
		{Symbol: "EURUSD", Name: "EUR/USD", Class: ClassForex, Exchange: "FOREX", Active: true},
		{Symbol: "BTCUSD", Name: "Bitcoin/USD", Class: ClassCrypto, Exchange: "CRYPTO", Active: true},
	}
}
