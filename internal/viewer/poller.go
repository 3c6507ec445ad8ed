package viewer

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollLoop is the timer half of the polling loop. At most one tick is pending
// or in flight at a time: the next tick is only scheduled once the previous
// request has settled.
type pollLoop struct {
	interval time.Duration
	armed    bool
	epoch    uint64
	inFlight bool
	failures int
}

// arm starts ticking for the session with the given epoch
func (p *pollLoop) arm(epoch uint64) tea.Cmd {
	p.armed = true
	p.epoch = epoch
	p.inFlight = false
	p.failures = 0
	return p.schedule(p.interval)
}

// disarm cancels the loop. A tick already sitting in the timer fires into
// accepts() and is dropped there.
func (p *pollLoop) disarm() {
	p.armed = false
	p.inFlight = false
	p.failures = 0
}

func (p *pollLoop) accepts(msg tickMsg) bool {
	return p.armed && !p.inFlight && msg.epoch == p.epoch
}

func (p *pollLoop) schedule(d time.Duration) tea.Cmd {
	epoch := p.epoch
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{epoch: epoch}
	})
}

// nextDelay keeps ticks one interval apart measured from the start of the
// previous tick, firing immediately when the request took longer than that.
func (p *pollLoop) nextDelay(started, now time.Time) time.Duration {
	elapsed := now.Sub(started)
	switch {
	case elapsed < 0:
		return p.interval
	case elapsed >= p.interval:
		return 0
	default:
		return p.interval - elapsed
	}
}

// stalled reports whether the failure streak reached threshold. Zero
// disables the check.
func (p *pollLoop) stalled(threshold int) bool {
	return threshold > 0 && p.failures >= threshold
}
