package domain

import (
	"fmt"
	"strings"
)

const symbolSeparator = "-"

// MarketSymbol is an exchange instrument id such as BTC-USDT, BTC-USDT-SWAP
// or BTC-USD-250328. Kind holds everything after the quote asset.
type MarketSymbol struct {
	BaseAsset  string
	QuoteAsset string
	Kind       string
}

func NewMarketSymbol(base string, quote string) (*MarketSymbol, error) {
	if base == "" || quote == "" {
		return nil, fmt.Errorf("base and quote must not be empty")
	}
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)
	if base == quote {
		return nil, fmt.Errorf("base and quote must be different")
	}
	return &MarketSymbol{
		BaseAsset:  base,
		QuoteAsset: quote,
	}, nil
}

func NewMarketSymbolFromString(s string) (*MarketSymbol, error) {
	split := strings.SplitN(strings.TrimSpace(s), symbolSeparator, 3)

	if len(split) < 2 {
		return nil, fmt.Errorf("invalid symbol string %q", s)
	}

	ms, err := NewMarketSymbol(split[0], split[1])
	if err != nil {
		return nil, fmt.Errorf("invalid symbol string %q: %w", s, err)
	}
	if len(split) == 3 {
		if split[2] == "" {
			return nil, fmt.Errorf("invalid symbol string %q", s)
		}
		ms.Kind = strings.ToUpper(split[2])
	}
	return ms, nil
}

// ParseMarketSymbols validates instrument ids and returns them normalized.
func ParseMarketSymbols(ss []string) ([]string, error) {
	symbols := make([]string, 0, len(ss))
	for _, s := range ss {
		ms, err := NewMarketSymbolFromString(s)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, ms.String())
	}
	return symbols, nil
}

func (ms *MarketSymbol) Join(separator string) string {
	s := fmt.Sprintf("%s%s%s", ms.BaseAsset, separator, ms.QuoteAsset)
	if ms.Kind != "" {
		s += separator + ms.Kind
	}
	return s
}

func (ms *MarketSymbol) String() string {
	return ms.Join(symbolSeparator)
}
