package universe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/marketdata"
)

// ProfileSource is the slice of the marketdata façade the refresh job
// needs: classification lookup only.
type ProfileSource interface {
	GetSecurityProfile(ctx context.Context, symbol string) (*marketdata.SecurityProfile, error)
}

// RefreshJob backfills catalog entries that are missing classification
// metadata (sector, name, ISIN, exchange) from the data providers. Runs on
// the scheduler; symbols registered with a bare ticker get their sector
// filled in so the risk validator's sector check and C8's sector exposures
// have something to group by.
type RefreshJob struct {
	catalog *Catalog
	source  ProfileSource
	log     zerolog.Logger
	timeout time.Duration
}

// NewRefreshJob builds a RefreshJob over catalog and source.
func NewRefreshJob(catalog *Catalog, source ProfileSource, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		catalog: catalog,
		source:  source,
		log:     log.With().Str("job", "universe_refresh").Logger(),
		timeout: 30 * time.Second,
	}
}

// Name returns the job name.
func (j *RefreshJob) Name() string { return "universe_refresh" }

// Run backfills every active security missing a sector. Individual lookup
// failures are logged and skipped; the sweep continues.
func (j *RefreshJob) Run() error {
	securities, err := j.catalog.Active()
	if err != nil {
		return err
	}

	enriched := 0
	for _, s := range securities {
		if s.Sector != "" {
			continue
		}
		if updated, ok := j.enrich(s); ok {
			if err := j.catalog.Register(updated); err != nil {
				j.log.Warn().Err(err).Str("symbol", s.Symbol).Msg("failed to save enriched security")
				continue
			}
			enriched++
		}
	}

	j.log.Info().Int("enriched", enriched).Int("scanned", len(securities)).Msg("universe refresh completed")
	return nil
}

func (j *RefreshJob) enrich(s core.Security) (core.Security, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	profile, err := j.source.GetSecurityProfile(ctx, s.Symbol)
	if err != nil {
		j.log.Warn().Err(err).Str("symbol", s.Symbol).Msg("profile lookup failed")
		return s, false
	}

	changed := false
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	fill(&s.Sector, profile.Sector)
	fill(&s.Industry, profile.Industry)
	fill(&s.Name, profile.Name)
	fill(&s.Exchange, profile.Exchange)
	fill(&s.Currency, profile.Currency)
	fill(&s.ISIN, profile.ISIN)
	return s, changed
}
