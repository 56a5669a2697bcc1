// Package universe is the security catalog: a symbol → sector/industry
// directory kept up to date by the refresh job and served by the server's
// /securities listing.
//
// Generalizes the teacher's universe/security_repository.go CRUD surface
// (symbol, ISIN, sector, industry, active-flag) onto core.Security, dropping
// the EUR-portfolio-specific scoring/allocation joins that package carried.
package universe

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/database/repositories"
)

// Catalog is the read-mostly symbol directory. It wraps the
// persistence-layer SecurityRepository with a narrower interface.
type Catalog struct {
	repo *repositories.SecurityRepository
	log  zerolog.Logger
}

// New builds a Catalog over repo.
func New(repo *repositories.SecurityRepository, log zerolog.Logger) *Catalog {
	return &Catalog{repo: repo, log: log.With().Str("component", "universe_catalog").Logger()}
}

// Register adds or updates a security's catalog entry.
func (c *Catalog) Register(s core.Security) error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", core.ErrInvalidInput)
	}
	return c.repo.Upsert(s)
}

// Get returns the catalog entry for symbol, or nil if it has never been
// registered.
func (c *Catalog) Get(symbol string) (*core.Security, error) {
	return c.repo.GetBySymbol(symbol)
}

// Active returns every security flagged active.
func (c *Catalog) Active() ([]core.Security, error) {
	return c.repo.ListActive()
}

// SectorOf returns a symbol->sector map for symbols, falling back to
// "UNKNOWN" for any symbol with no catalog entry (matches
// core.Portfolio.SectorExposure's own fallback).
func (c *Catalog) SectorOf(symbols []string) (map[string]string, error) {
	sectors, err := c.repo.SectorOf(symbols)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if sector, ok := sectors[sym]; ok && sector != "" {
			out[sym] = sector
		} else {
			out[sym] = "UNKNOWN"
		}
	}
	return out, nil
}
