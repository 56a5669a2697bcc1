package universe

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/database/repositories"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE securities (
		symbol TEXT PRIMARY KEY, name TEXT, exchange TEXT, currency TEXT,
		isin TEXT, sector TEXT, industry TEXT, active INTEGER
	)`)
	require.NoError(t, err)

	repo := repositories.NewSecurityRepository(db, zerolog.Nop())
	return New(repo, zerolog.Nop())
}

func TestCatalog_RegisterAndGet(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Register(core.Security{Symbol: "AAPL", Sector: "Technology", Active: true}))

	got, err := c.Get("AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Technology", got.Sector)
}

func TestCatalog_GetMissingReturnsNil(t *testing.T) {
	c := newTestCatalog(t)
	got, err := c.Get("NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCatalog_SectorOfFallsBackToUnknown(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Register(core.Security{Symbol: "AAPL", Sector: "Technology", Active: true}))

	sectors, err := c.SectorOf([]string{"AAPL", "GHOST"})
	require.NoError(t, err)
	assert.Equal(t, "Technology", sectors["AAPL"])
	assert.Equal(t, "UNKNOWN", sectors["GHOST"])
}

func TestCatalog_ActiveExcludesInactive(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Register(core.Security{Symbol: "AAPL", Active: true}))
	require.NoError(t, c.Register(core.Security{Symbol: "DEAD", Active: false}))

	active, err := c.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "AAPL", active[0].Symbol)
}

func TestCatalog_RegisterRejectsEmptySymbol(t *testing.T) {
	c := newTestCatalog(t)
	err := c.Register(core.Security{Symbol: ""})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
