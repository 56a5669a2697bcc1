// Package marketdata implements the data access façade: a uniform,
// rate-limited, cache-backed contract over one or more external
// quote/fundamentals providers, layered over the internal/clients/yahoo and
// internal/clients/tradernet adapters behind a provider-priority/fallback
// façade neither adapter had on its own.
package marketdata

import (
	"context"
	"time"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// Provider is the external market-data adapter contract: every concrete
// provider (Yahoo, Tradernet, ...) implements this and nothing more.
// Permanent errors (unknown symbol) should be returned without wrapping in
// a transient-error type so the façade can short-circuit instead of trying
// the next provider.
type Provider interface {
	Name() string
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error)
	FetchFundamentals(ctx context.Context, symbol string) (*core.Fundamentals, error)
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
}

// SecurityProfile is the classification metadata a provider can look up
// for a symbol: what the universe catalog needs to back the risk
// validator's sector check and C8's sector-exposure reporting.
type SecurityProfile struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string
	Exchange string
	Country  string
	Currency string
	ISIN     string
}

// AnalystProvider is an optional provider capability: consensus analyst
// rating and price target, feeding the scoring engine's sentiment and
// target-price inputs. Providers that cannot serve it simply don't
// implement it and the façade skips them.
type AnalystProvider interface {
	FetchAnalyst(ctx context.Context, symbol string) (*core.AnalystInputs, error)
}

// ProfileProvider is an optional provider capability: security
// classification metadata for the universe catalog.
type ProfileProvider interface {
	FetchSecurityProfile(ctx context.Context, symbol string) (*SecurityProfile, error)
}

// TransientError marks a provider failure as retryable against the next
// provider in priority order (rate-limited, temporarily-unavailable).
// Permanent errors (unknown symbol) are returned unwrapped and short-circuit
// the fallback chain.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError attributed to provider.
func Transient(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Provider: provider, Err: err}
}
