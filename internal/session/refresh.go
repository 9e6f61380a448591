package session

import (
	"time"

	"github.com/andyrewlee/ncte/internal/config"
	"github.com/andyrewlee/ncte/internal/timer"
)

// NoTimeout makes a Waiter block until a descriptor is ready.
const NoTimeout time.Duration = -1

// Reason says why a refresh was taken.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonBurstCap
	ReasonQuiescence
	ReasonForced
)

func (r Reason) String() string {
	switch r {
	case ReasonBurstCap:
		return "burst-cap"
	case ReasonQuiescence:
		return "quiescence"
	case ReasonForced:
		return "forced"
	default:
		return "none"
	}
}

// RefreshPolicy decides when the display is redrawn. The quiescence timer
// runs from the last pty output, the burst timer from the last redraw.
type RefreshPolicy struct {
	cfg   config.RefreshConfig
	quiet *timer.Timer
	burst *timer.Timer

	forceRefresh  bool
	justRefreshed bool
}

// NewRefreshPolicy starts both timers on clock.
func NewRefreshPolicy(cfg config.RefreshConfig, clock timer.Clock) *RefreshPolicy {
	return &RefreshPolicy{
		cfg:   cfg,
		quiet: timer.New(clock),
		burst: timer.New(clock),
	}
}

// Timeout is the wait bound for the next iteration. Once the display is up
// to date there is nothing to poll for; a pending forced refresh still
// needs the short tick.
func (p *RefreshPolicy) Timeout() time.Duration {
	if p.justRefreshed && !p.forceRefresh {
		return NoTimeout
	}
	return p.cfg.PollInterval
}

// OutputSeen restarts the quiescence timer.
func (p *RefreshPolicy) OutputSeen() {
	p.quiet.Start()
}

// Force requests a refresh on the next decision.
func (p *RefreshPolicy) Force() {
	p.forceRefresh = true
}

// Forced reports whether a refresh has been requested.
func (p *RefreshPolicy) Forced() bool {
	return p.forceRefresh
}

// JustRefreshed reports whether the last decision refreshed.
func (p *RefreshPolicy) JustRefreshed() bool {
	return p.justRefreshed
}

// Decide returns the reason to refresh now, or ReasonNone. The burst cap
// wins over quiescence, which wins over a forced request.
func (p *RefreshPolicy) Decide() Reason {
	switch {
	case p.burst.ElapsedAtLeast(p.cfg.BurstCap):
		return ReasonBurstCap
	case p.quiet.ElapsedAtLeast(p.cfg.Quiescence):
		return ReasonQuiescence
	case p.forceRefresh:
		return ReasonForced
	}
	return ReasonNone
}

// Refreshed records a redraw: both timers restart and the force flag clears.
func (p *RefreshPolicy) Refreshed() {
	p.quiet.Start()
	p.burst.Start()
	p.forceRefresh = false
	p.justRefreshed = true
}

// Skipped records a decision that did not redraw.
func (p *RefreshPolicy) Skipped() {
	p.justRefreshed = false
}
