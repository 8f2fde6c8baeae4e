package weather

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultInterval keeps a free-tier API key well inside its quota.
const DefaultInterval = 2 * time.Hour

// Poller keeps the latest report for one location.
type Poller struct {
	client *Client
	logger zerolog.Logger

	mu     sync.RWMutex
	loc    Location
	latest Report
	ok     bool
}

func NewPoller(c *Client, loc Location, logger zerolog.Logger) *Poller {
	return &Poller{client: c, loc: loc, logger: logger}
}

// Refresh fetches and stores a new report. A failed fetch keeps the
// previous report.
func (p *Poller) Refresh(ctx context.Context) error {
	loc := p.Location()
	if loc.City == "" && loc.Latitude == 0 && loc.Longitude == 0 {
		return errors.New("weather location not set")
	}

	rep, err := p.client.Fetch(ctx, loc)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.latest, p.ok = rep, true
	p.mu.Unlock()

	p.logger.Info().
		Float64("temp", rep.Temperature).
		Str("desc", rep.Description).
		Str("city", loc.City).
		Msg("weather updated")
	return nil
}

// SetLocation changes where the next Refresh looks. The current report is
// kept until then.
func (p *Poller) SetLocation(loc Location) {
	p.mu.Lock()
	p.loc = loc
	p.mu.Unlock()
}

func (p *Poller) Location() Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loc
}

// Latest returns the most recent report, if any fetch has succeeded.
func (p *Poller) Latest() (Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.ok
}
