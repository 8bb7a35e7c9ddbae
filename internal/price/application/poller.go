package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Poller refreshes the configured jurisdictions on a cron schedule, keeps
// the cache warm and exports the prices as a gauge.
type Poller struct {
	service PriceService
	states  []string
	cron    *cron.Cron
}

// NewPoller schedules a refresh of states at spec (six fields, seconds
// first).
func NewPoller(service PriceService, spec string, states []string) (*Poller, error) {
	p := &Poller{
		service: service,
		states:  states,
		cron:    cron.New(cron.WithSeconds()),
	}
	if _, err := p.cron.AddFunc(spec, func() { _ = p.Poll(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid price poll schedule %q: %w", spec, err)
	}
	return p, nil
}

func (p *Poller) Start() {
	log.Info("Price poller started", zap.Strings("states", p.states))
	p.cron.Start()
}

// Stop waits for a running poll to finish or ctx to expire.
func (p *Poller) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
	}
	log.Info("Price poller stopped")
}

// Poll refreshes every state concurrently and returns the first failure.
// One failing state does not cancel the others.
func (p *Poller) Poll(ctx context.Context) error {
	var g errgroup.Group
	for _, state := range p.states {
		state := state
		g.Go(func() error {
			price, err := p.service.RefreshPrice(ctx, state)
			if err != nil {
				return fmt.Errorf("poll %s: %w", state, err)
			}
			metrics.ElectricityPrice.WithLabelValues(state).Set(price.InexactFloat64())
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		log.Warn("Price poll incomplete", zap.Error(err))
	}
	return err
}
