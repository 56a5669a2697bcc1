package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/ksfraser/WealthSystem-sub012/internal/clients/tradernet"
	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// TradernetProvider adapts the broker-API client to the Provider
// contract. Tradernet only exposes current marks for symbols the connected
// account actually holds, via its portfolio endpoint, so it is typically
// configured as a secondary/tertiary quote source; it has no historical
// bars or fundamentals endpoint, and fails those operations transiently so
// the façade falls through to the next provider rather than short-circuiting.
type TradernetProvider struct {
	client *tradernet.Client
}

// NewTradernetProvider wraps an existing tradernet.Client.
func NewTradernetProvider(client *tradernet.Client) *TradernetProvider {
	return &TradernetProvider{client: client}
}

func (p *TradernetProvider) Name() string { return "tradernet" }

func (p *TradernetProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	return nil, Transient(p.Name(), fmt.Errorf("tradernet does not serve historical bars"))
}

func (p *TradernetProvider) FetchFundamentals(ctx context.Context, symbol string) (*core.Fundamentals, error) {
	return nil, Transient(p.Name(), fmt.Errorf("tradernet does not serve fundamentals"))
}

func (p *TradernetProvider) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	positions, err := p.client.GetPortfolio()
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	for _, pos := range positions {
		if pos.Symbol != symbol {
			continue
		}
		now := time.Now().UTC()
		return &core.Quote{
			Symbol: symbol,
			Bar: core.Bar{
				Symbol: symbol,
				Date:   now,
				Close:  pos.CurrentPrice,
			},
			AsOf: now,
		}, nil
	}
	return nil, Transient(p.Name(), fmt.Errorf("symbol %s not held, no mark available", symbol))
}

// FetchSecurityProfile implements the ProfileProvider capability via the
// broker's security-lookup endpoint. Tradernet knows identity metadata
// (name, ISIN, currency, exchange) but not sector classification, so Sector
// stays empty and the façade's priority order decides whether a
// sector-capable provider is asked first.
func (p *TradernetProvider) FetchSecurityProfile(ctx context.Context, symbol string) (*SecurityProfile, error) {
	found, err := p.client.FindSymbol(symbol, nil)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	if len(found) == 0 {
		return nil, Transient(p.Name(), fmt.Errorf("symbol %s not found", symbol))
	}

	info := found[0]
	profile := &SecurityProfile{Symbol: symbol}
	if info.Name != nil {
		profile.Name = *info.Name
	}
	if info.ISIN != nil {
		profile.ISIN = *info.ISIN
	}
	if info.Currency != nil {
		profile.Currency = *info.Currency
	}
	if info.ExchangeCode != nil {
		profile.Exchange = *info.ExchangeCode
	} else if info.Market != nil {
		profile.Exchange = *info.Market
	}
	return profile, nil
}
