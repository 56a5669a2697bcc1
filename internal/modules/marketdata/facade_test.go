package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// fakeProvider is a minimal in-memory Provider for façade tests.
type fakeProvider struct {
	name      string
	bars      []core.Bar
	barsErr   error
	quote     *core.Quote
	quoteErr  error
	fund      *core.Fundamentals
	fundErr   error
	barsCalls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	f.barsCalls++
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	return f.bars, nil
}

func (f *fakeProvider) FetchFundamentals(ctx context.Context, symbol string) (*core.Fundamentals, error) {
	if f.fundErr != nil {
		return nil, f.fundErr
	}
	return f.fund, nil
}

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func day(n int) time.Time { return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC) }

func TestFacade_GetBars_NormalizesOrderAndDedup(t *testing.T) {
	p := &fakeProvider{name: "p1", bars: []core.Bar{
		{Symbol: "AAPL", Date: day(3), Close: 103},
		{Symbol: "AAPL", Date: day(1), Close: 101},
		{Symbol: "AAPL", Date: day(2), Close: 102},
		{Symbol: "AAPL", Date: day(2), Close: 999}, // duplicate date, should be dropped
	}}
	f := New([]Provider{p}, Config{}, zerolog.Nop())

	bars, err := f.GetBars(context.Background(), "AAPL", day(1), day(3))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.True(t, bars[1].Date.Before(bars[2].Date))
	assert.Equal(t, 102.0, bars[1].Close)
}

func TestFacade_GetBars_CachesResult(t *testing.T) {
	p := &fakeProvider{name: "p1", bars: []core.Bar{{Symbol: "AAPL", Date: day(1), Close: 1}}}
	f := New([]Provider{p}, Config{}, zerolog.Nop())

	_, err := f.GetBars(context.Background(), "AAPL", day(1), day(1))
	require.NoError(t, err)
	_, err = f.GetBars(context.Background(), "AAPL", day(1), day(1))
	require.NoError(t, err)
	assert.Equal(t, 1, p.barsCalls, "second call should be served from cache")
}

func TestFacade_FallsThroughOnTransientError(t *testing.T) {
	primary := &fakeProvider{name: "primary", quoteErr: Transient("primary", errors.New("rate limited"))}
	secondary := &fakeProvider{name: "secondary", quote: &core.Quote{Symbol: "AAPL", Bar: core.Bar{Close: 42}}}
	f := New([]Provider{primary, secondary}, Config{}, zerolog.Nop())

	q, err := f.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 42.0, q.Bar.Close)
}

func TestFacade_PermanentErrorShortCircuits(t *testing.T) {
	permErr := errors.New("unknown symbol")
	primary := &fakeProvider{name: "primary", quoteErr: permErr}
	secondary := &fakeProvider{name: "secondary", quote: &core.Quote{Symbol: "X", Bar: core.Bar{Close: 1}}}
	f := New([]Provider{primary, secondary}, Config{}, zerolog.Nop())

	_, err := f.GetQuote(context.Background(), "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, permErr)
}

func TestFacade_DataUnavailableWhenAllProvidersFail(t *testing.T) {
	p1 := &fakeProvider{name: "p1", quoteErr: Transient("p1", errors.New("down"))}
	p2 := &fakeProvider{name: "p2", quoteErr: Transient("p2", errors.New("down"))}
	f := New([]Provider{p1, p2}, Config{}, zerolog.Nop())

	_, err := f.GetQuote(context.Background(), "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestFacade_NoProvidersConfigured(t *testing.T) {
	f := New(nil, Config{}, zerolog.Nop())
	_, err := f.GetQuote(context.Background(), "X")
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestFacade_ProviderPriorityFromConfig(t *testing.T) {
	a := &fakeProvider{name: "a", quote: &core.Quote{Symbol: "X", Bar: core.Bar{Close: 1}}}
	b := &fakeProvider{name: "b", quote: &core.Quote{Symbol: "X", Bar: core.Bar{Close: 2}}}
	// Config reorders to prefer "b" first.
	f := New([]Provider{a, b}, Config{Providers: []string{"b", "a"}}, zerolog.Nop())

	q, err := f.GetQuote(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 2.0, q.Bar.Close)
}

func TestFacade_BulkQuotesContinuesPastIndividualFailures(t *testing.T) {
	p := &fakeProvider{name: "p1"}
	f := New([]Provider{p}, Config{}, zerolog.Nop())
	// Fake provider returns whatever p.quote/p.quoteErr say for every symbol;
	// warm the quote cache for "A", then make the provider fail so "B" cannot
	// be fetched while "A" is still served from cache.
	p.quote = &core.Quote{Symbol: "A", Bar: core.Bar{Close: 10}}
	_, err := f.GetQuote(context.Background(), "A")
	require.NoError(t, err)
	p.quoteErr = Transient("p1", errors.New("down"))

	out, err := f.BulkQuotes(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Contains(t, out, "A")
}

// analystCapableProvider layers the AnalystProvider/ProfileProvider
// capabilities on top of fakeProvider.
type analystCapableProvider struct {
	fakeProvider
	analyst *core.AnalystInputs
	profile *SecurityProfile
}

func (f *analystCapableProvider) FetchAnalyst(ctx context.Context, symbol string) (*core.AnalystInputs, error) {
	if f.analyst == nil {
		return nil, Transient(f.name, errors.New("no coverage"))
	}
	return f.analyst, nil
}

func (f *analystCapableProvider) FetchSecurityProfile(ctx context.Context, symbol string) (*SecurityProfile, error) {
	if f.profile == nil {
		return nil, Transient(f.name, errors.New("unknown symbol"))
	}
	return f.profile, nil
}

func TestFacade_GetAnalystSkipsIncapableProviders(t *testing.T) {
	rating := core.RatingBuy
	incapable := &fakeProvider{name: "quotes_only"}
	capable := &analystCapableProvider{
		fakeProvider: fakeProvider{name: "full"},
		analyst:      &core.AnalystInputs{ConsensusRating: &rating},
	}
	f := New([]Provider{incapable, capable}, Config{}, zerolog.Nop())

	got, err := f.GetAnalyst(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got.ConsensusRating)
	assert.Equal(t, core.RatingBuy, *got.ConsensusRating)
}

func TestFacade_GetAnalystUnavailableWithoutCapableProvider(t *testing.T) {
	f := New([]Provider{&fakeProvider{name: "quotes_only"}}, Config{}, zerolog.Nop())
	_, err := f.GetAnalyst(context.Background(), "AAPL")
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestFacade_GetSecurityProfileCachesResult(t *testing.T) {
	capable := &analystCapableProvider{
		fakeProvider: fakeProvider{name: "full"},
		profile:      &SecurityProfile{Symbol: "AAPL", Sector: "Technology"},
	}
	f := New([]Provider{capable}, Config{}, zerolog.Nop())

	p1, err := f.GetSecurityProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", p1.Sector)

	capable.profile = nil // cached copy must be served even if the provider forgets
	p2, err := f.GetSecurityProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", p2.Sector)
}
