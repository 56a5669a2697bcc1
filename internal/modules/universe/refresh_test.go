package universe

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/marketdata"
)

type fakeProfileSource struct {
	profiles map[string]*marketdata.SecurityProfile
	calls    int
}

func (f *fakeProfileSource) GetSecurityProfile(ctx context.Context, symbol string) (*marketdata.SecurityProfile, error) {
	f.calls++
	if p, ok := f.profiles[symbol]; ok {
		return p, nil
	}
	return nil, core.ErrDataUnavailable
}

func TestRefreshJobBackfillsMissingSectors(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Register(core.Security{Symbol: "AAPL", Active: true}))
	require.NoError(t, c.Register(core.Security{Symbol: "MSFT", Sector: "Technology", Active: true}))

	source := &fakeProfileSource{profiles: map[string]*marketdata.SecurityProfile{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc", Sector: "Technology", Exchange: "NASDAQ", ISIN: "US0378331005"},
	}}

	job := NewRefreshJob(c, source, zerolog.Nop())
	require.NoError(t, job.Run())

	assert.Equal(t, 1, source.calls, "only the sector-less entry is looked up")

	got, err := c.Get("AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Technology", got.Sector)
	assert.Equal(t, "Apple Inc", got.Name)
	assert.Equal(t, "US0378331005", got.ISIN)
}

func TestRefreshJobContinuesPastLookupFailures(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Register(core.Security{Symbol: "NOPE", Active: true}))

	job := NewRefreshJob(c, &fakeProfileSource{}, zerolog.Nop())
	assert.NoError(t, job.Run(), "individual lookup failures must not fail the sweep")
}
