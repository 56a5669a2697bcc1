package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/scheduler"
)

// Config is the data.* config tree.
type Config struct {
	// Providers lists provider names in priority order; each name must
	// have a matching entry in the Providers map passed to New.
	Providers  []string
	RateLimits RateLimits
	// MaxWaitPerAttempt bounds how long a single provider attempt may
	// block on rate-limit token acquisition before the façade moves on
	// to the next provider; zero means no bound beyond ctx.
	MaxWaitPerAttempt time.Duration
	// Exchange names the trading calendar (per
	// internal/scheduler.MarketHoursService) used to compute the next
	// UTC trading close for the daily-bars cache TTL. Empty defaults to
	// "NASDAQ".
	Exchange string
}

// Facade is the Data Access Façade (C1): a uniform contract to read bars,
// fundamentals and quotes, trying providers in declared priority order with
// per-provider rate limiting and TTL caching.
type Facade struct {
	providers []Provider
	buckets   *tokenBuckets
	bars      *memCache
	quotes    *memCache
	fund      *memCache
	analyst   *memCache
	profiles  *memCache
	log       zerolog.Logger
	maxWait   time.Duration
	calendar  *scheduler.MarketHoursService
	exchange  string
}

// New builds a Façade. providers must be supplied in fallback priority
// order (primary, secondary, tertiary, ...); cfg.Providers, if non-empty,
// re-orders/filters that list by name so callers can drive provider
// priority from configuration rather than code.
func New(providers []Provider, cfg Config, log zerolog.Logger) *Facade {
	ordered := providers
	if len(cfg.Providers) > 0 {
		byName := make(map[string]Provider, len(providers))
		for _, p := range providers {
			byName[p.Name()] = p
		}
		ordered = ordered[:0]
		for _, name := range cfg.Providers {
			if p, ok := byName[name]; ok {
				ordered = append(ordered, p)
			}
		}
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "NASDAQ"
	}
	return &Facade{
		providers: ordered,
		buckets:   newTokenBuckets(cfg.RateLimits),
		bars:      newMemCache(),
		quotes:    newMemCache(),
		fund:      newMemCache(),
		analyst:   newMemCache(),
		profiles:  newMemCache(),
		log:       log.With().Str("component", "marketdata").Logger(),
		maxWait:   cfg.MaxWaitPerAttempt,
		calendar:  scheduler.NewMarketHoursService(log),
		exchange:  exchange,
	}
}

// nextTradingClose delegates to the configured exchange's trading calendar
// (internal/scheduler.MarketHoursService) for the daily-bars cache TTL rule
// (cached until next UTC trading close).
func (f *Facade) nextTradingClose() time.Time {
	return f.calendar.NextClose(f.exchange, time.Now())
}

// barsKey/quoteKey/fundKey are cache fingerprints.
func barsKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// GetBars returns bars for symbol in [start,end] inclusive, ascending by
// date with no duplicates. Cached until the next UTC trading
// close. Tries providers in priority order on cache miss; fails with
// ErrDataUnavailable only when every provider fails.
func (f *Facade) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	key := barsKey(symbol, start, end)
	if v, ok := f.bars.get(key); ok {
		return v.([]core.Bar), nil
	}

	bars, err := f.attempt(ctx, func(ctx context.Context, p Provider) (interface{}, error) {
		return p.FetchDailyBars(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	out := normalizeBars(bars.([]core.Bar))
	f.bars.set(key, out, f.nextTradingClose())
	return out, nil
}

// GetFundamentals returns the latest fundamentals snapshot for symbol.
// Missing fields degrade scoring, not validity — the façade
// itself never invents zero values for absent metrics.
func (f *Facade) GetFundamentals(ctx context.Context, symbol string) (*core.Fundamentals, error) {
	if v, ok := f.fund.get(symbol); ok {
		return v.(*core.Fundamentals), nil
	}
	res, err := f.attempt(ctx, func(ctx context.Context, p Provider) (interface{}, error) {
		return p.FetchFundamentals(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	out := res.(*core.Fundamentals)
	f.fund.set(symbol, out, time.Now().Add(time.Hour))
	return out, nil
}

// GetQuote returns the latest bar plus the observation timestamp. Quote TTL
// is 1 hour.
func (f *Facade) GetQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if v, ok := f.quotes.get(symbol); ok {
		return v.(*core.Quote), nil
	}
	res, err := f.attempt(ctx, func(ctx context.Context, p Provider) (interface{}, error) {
		return p.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	out := res.(*core.Quote)
	f.quotes.set(symbol, out, time.Now().Add(time.Hour))
	return out, nil
}

// BulkQuotes fetches quotes for many symbols, continuing past individual
// failures; only an empty result set (every symbol failed) is reported as
// an error, matching the façade's "fail only when every provider fails"
// posture applied across the batch.
func (f *Facade) BulkQuotes(ctx context.Context, symbols []string) (map[string]*core.Quote, error) {
	out := make(map[string]*core.Quote, len(symbols))
	var lastErr error
	for _, s := range symbols {
		q, err := f.GetQuote(ctx, s)
		if err != nil {
			lastErr = err
			f.log.Warn().Err(err).Str("symbol", s).Msg("bulk quote failed")
			continue
		}
		out[s] = q
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// GetAnalyst returns the consensus analyst rating and price target for
// symbol, from the first provider that implements the AnalystProvider
// capability. TTL 1 hour, same as quotes.
func (f *Facade) GetAnalyst(ctx context.Context, symbol string) (*core.AnalystInputs, error) {
	if v, ok := f.analyst.get(symbol); ok {
		return v.(*core.AnalystInputs), nil
	}
	res, err := f.attemptOver(ctx, f.capableOf(func(p Provider) bool { _, ok := p.(AnalystProvider); return ok }),
		func(ctx context.Context, p Provider) (interface{}, error) {
			return p.(AnalystProvider).FetchAnalyst(ctx, symbol)
		})
	if err != nil {
		return nil, err
	}
	out := res.(*core.AnalystInputs)
	f.analyst.set(symbol, out, time.Now().Add(time.Hour))
	return out, nil
}

// GetSecurityProfile returns classification metadata (sector/industry/
// exchange/ISIN...) for symbol, from the first provider implementing the
// ProfileProvider capability. Profiles change rarely; TTL 24 hours.
func (f *Facade) GetSecurityProfile(ctx context.Context, symbol string) (*SecurityProfile, error) {
	if v, ok := f.profiles.get(symbol); ok {
		return v.(*SecurityProfile), nil
	}
	res, err := f.attemptOver(ctx, f.capableOf(func(p Provider) bool { _, ok := p.(ProfileProvider); return ok }),
		func(ctx context.Context, p Provider) (interface{}, error) {
			return p.(ProfileProvider).FetchSecurityProfile(ctx, symbol)
		})
	if err != nil {
		return nil, err
	}
	out := res.(*SecurityProfile)
	f.profiles.set(symbol, out, time.Now().Add(24*time.Hour))
	return out, nil
}

// capableOf filters the priority-ordered provider list down to those
// passing the capability predicate.
func (f *Facade) capableOf(pred func(Provider) bool) []Provider {
	var out []Provider
	for _, p := range f.providers {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// attempt tries each provider in order, respecting each provider's
// rate-limit bucket, short-circuiting on a permanent (non-transient)
// error and falling through to the next provider on a transient one.
// Fails with core.ErrDataUnavailable only once every provider has failed.
func (f *Facade) attempt(ctx context.Context, call func(context.Context, Provider) (interface{}, error)) (interface{}, error) {
	return f.attemptOver(ctx, f.providers, call)
}

func (f *Facade) attemptOver(ctx context.Context, providers []Provider, call func(context.Context, Provider) (interface{}, error)) (interface{}, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", core.ErrDataUnavailable)
	}

	var errs []string
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w", core.ErrCancelled)
		}

		waitCtx := ctx
		var cancel context.CancelFunc
		if f.maxWait > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, f.maxWait)
		}
		waitErr := f.buckets.wait(waitCtx, p.Name())
		if cancel != nil {
			cancel()
		}
		if waitErr != nil {
			errs = append(errs, fmt.Sprintf("%s: rate-limit wait: %v", p.Name(), waitErr))
			continue
		}

		res, err := call(ctx, p)
		if err == nil {
			return res, nil
		}

		var transient *TransientError
		if errors.As(err, &transient) {
			errs = append(errs, transient.Error())
			continue
		}
		// Permanent error: short-circuit, do not try the remaining
		// providers.
		return nil, err
	}

	return nil, fmt.Errorf("%w: all providers failed: %v", core.ErrDataUnavailable, errs)
}

// normalizeBars sorts ascending by date and drops duplicate dates (keeping
// the first occurrence), enforcing the façade's "strictly ascending, no
// duplicates" contract regardless of what a provider returned.
func normalizeBars(bars []core.Bar) []core.Bar {
	sorted := make([]core.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]core.Bar, 0, len(sorted))
	var lastDate time.Time
	for i, b := range sorted {
		if i > 0 && b.Date.Equal(lastDate) {
			continue
		}
		out = append(out, b)
		lastDate = b.Date
	}
	return out
}
