package presence

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"vendkiosk/backend/libs/clock"
)

// Prober performs one presence check against the card service.
type Prober interface {
	Probe(ctx context.Context) Signal
}

// Observation is a probe result tagged with the loop state it was issued under.
type Observation struct {
	Mode       Mode
	Generation uint64
	Signal     Signal
}

// Poller issues one probe per loop tick and never pipelines: a tick that
// finds the previous probe unresolved is skipped.
type Poller struct {
	loop    *PollingLoop
	prober  Prober
	timeout time.Duration
	deliver func(Observation)
	pending atomic.Bool
	logger  *zap.Logger
}

// NewPoller builds a poller delivering observations to deliver.
func NewPoller(clk clock.Clock, intervals Intervals, prober Prober, timeout time.Duration, deliver func(Observation), logger *zap.Logger) *Poller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Poller{
		prober:  prober,
		timeout: timeout,
		deliver: deliver,
		logger:  logger,
	}
	p.loop = NewPollingLoop(clk, intervals, p.tick)
	return p
}

// Arm switches the loop to mode.
func (p *Poller) Arm(mode Mode) {
	p.loop.Arm(mode)
	p.logger.Debug("polling armed", zap.Stringer("mode", mode))
}

// Disarm stops polling.
func (p *Poller) Disarm() {
	p.loop.Disarm()
	p.logger.Debug("polling disarmed")
}

// Mode returns the armed mode.
func (p *Poller) Mode() Mode {
	return p.loop.Mode()
}

// IsCurrent reports whether obs was produced by the loop that is still armed.
func (p *Poller) IsCurrent(obs Observation) bool {
	return p.loop.IsCurrent(obs.Mode, obs.Generation)
}

func (p *Poller) tick(mode Mode, generation uint64) {
	if !p.pending.CompareAndSwap(false, true) {
		p.logger.Debug("presence tick skipped, probe still pending", zap.Stringer("mode", mode))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	sig := p.prober.Probe(ctx)
	cancel()
	p.pending.Store(false)

	if p.deliver != nil {
		p.deliver(Observation{Mode: mode, Generation: generation, Signal: sig})
	}
}
