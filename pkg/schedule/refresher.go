package schedule

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Refresher reloads the schedule feed from disk on a cron schedule
type Refresher struct {
	index *Index
	path  string

	// OnLoad is called after every successful reload
	OnLoad func(LoadReport)

	cron *cron.Cron
}

func NewRefresher(index *Index, path string, spec string) (*Refresher, error) {
	refresher := &Refresher{
		index: index,
		path:  path,
		cron:  cron.New(),
	}

	if _, err := refresher.cron.AddFunc(spec, refresher.Refresh); err != nil {
		return nil, err
	}

	return refresher, nil
}

// Refresh reloads the feed once. A feed that cannot be read leaves the current index in place.
func (r *Refresher) Refresh() {
	report, err := r.index.LoadFile(r.path)
	if err != nil {
		log.Error().Err(err).Str("file", r.path).Msg("Failed to refresh schedule feed")
		return
	}

	log.Debug().Str("file", r.path).Int("loaded", report.Loaded).Int("skipped", len(report.Skipped)).Msg("Refreshed schedule feed")

	if r.OnLoad != nil {
		r.OnLoad(report)
	}
}

func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop prevents further refreshes and returns a context that is done once a running refresh finishes
func (r *Refresher) Stop() context.Context {
	return r.cron.Stop()
}
