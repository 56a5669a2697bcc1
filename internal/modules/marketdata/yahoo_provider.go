package marketdata

import (
	"context"
	"time"

	"github.com/ksfraser/WealthSystem-sub012/internal/clients/yahoo"
	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// YahooProvider adapts internal/clients/yahoo.Client to the Provider
// contract. It is the free, unauthenticated provider — typically
// configured as primary, since it needs no credentials.
type YahooProvider struct {
	client *yahoo.Client
}

// NewYahooProvider wraps an existing yahoo.Client.
func NewYahooProvider(client *yahoo.Client) *YahooProvider {
	return &YahooProvider{client: client}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	prices, err := p.client.GetHistoricalPrices(symbol, nil, start, end)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	out := make([]core.Bar, len(prices))
	for i, hp := range prices {
		out[i] = core.Bar{
			Symbol: symbol,
			Date:   hp.Date,
			Open:   hp.Open,
			High:   hp.High,
			Low:    hp.Low,
			Close:  hp.Close,
			Volume: hp.Volume,
		}
	}
	return out, nil
}

func (p *YahooProvider) FetchFundamentals(ctx context.Context, symbol string) (*core.Fundamentals, error) {
	fd, err := p.client.GetFundamentalData(symbol, nil)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	return &core.Fundamentals{
		Symbol:          symbol,
		PE:              fd.PERatio,
		PB:              fd.PriceToBook,
		ROE:             fd.ROE,
		GrossMargin:     nil,
		OperatingMargin: fd.OperatingMargin,
		NetMargin:       fd.ProfitMargin,
		DebtToEquity:    fd.DebtToEquity,
		CurrentRatio:    fd.CurrentRatio,
		RevenueGrowth:   fd.RevenueGrowth,
		EarningsGrowth:  fd.EarningsGrowth,
		DividendYield:   fd.DividendYield,
	}, nil
}

// ratingFromKey maps Yahoo's recommendationKey values onto the discretized
// AnalystRating scale.
func ratingFromKey(key string) core.AnalystRating {
	switch key {
	case "strongBuy":
		return core.RatingStrongBuy
	case "buy", "outperform":
		return core.RatingBuy
	case "sell", "underperform":
		return core.RatingSell
	case "strongSell":
		return core.RatingStrongSell
	default:
		return core.RatingHold
	}
}

// FetchAnalyst implements the AnalystProvider capability: consensus rating
// and mean price target for the scoring engine's sentiment and target-price
// inputs.
func (p *YahooProvider) FetchAnalyst(ctx context.Context, symbol string) (*core.AnalystInputs, error) {
	ad, err := p.client.GetAnalystData(symbol, nil)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	rating := ratingFromKey(ad.Recommendation)
	out := &core.AnalystInputs{ConsensusRating: &rating}
	if ad.TargetPrice > 0 {
		target := ad.TargetPrice
		out.TargetPrice = &target
	}
	return out, nil
}

// FetchSecurityProfile implements the ProfileProvider capability. Yahoo
// reports a single industry-or-sector classification string; it is used for
// both fields, which is all the sector-concentration grouping needs.
func (p *YahooProvider) FetchSecurityProfile(ctx context.Context, symbol string) (*SecurityProfile, error) {
	profile := &SecurityProfile{Symbol: symbol}

	classification, err := p.client.GetSecurityIndustry(symbol, nil)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	if classification != nil {
		profile.Sector = *classification
		profile.Industry = *classification
	}

	country, exchange, err := p.client.GetSecurityCountryAndExchange(symbol, nil)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	if country != nil {
		profile.Country = *country
	}
	if exchange != nil {
		profile.Exchange = *exchange
	}
	return profile, nil
}

func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	price, err := p.client.GetCurrentPrice(symbol, nil, 3)
	if err != nil {
		return nil, Transient(p.Name(), err)
	}
	now := time.Now().UTC()
	return &core.Quote{
		Symbol: symbol,
		Bar: core.Bar{
			Symbol: symbol,
			Date:   now,
			Close:  *price,
		},
		AsOf: now,
	}, nil
}
