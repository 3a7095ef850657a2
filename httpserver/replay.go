package httpserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/ruteri/name-registrar/interfaces"
)

// replayGuard accepts a signed request only when its timestamp is within
// window of the server clock and strictly newer than the last accepted
// timestamp of the same caller. Callers idle for longer than the window are
// forgotten, since any timestamp they could replay is already out of range.
type replayGuard struct {
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	last      map[interfaces.Address]int64
	lastPrune int64
}

func newReplayGuard(window time.Duration) *replayGuard {
	return &replayGuard{
		window: window,
		now:    time.Now,
		last:   make(map[interfaces.Address]int64),
	}
}

func (g *replayGuard) check(caller interfaces.Address, ts int64) error {
	now := g.now().UnixMilli()
	window := g.window.Milliseconds()
	if ts < now-window || ts > now+window {
		return fmt.Errorf("%w: timestamp %d outside the %s window", interfaces.ErrUnauthorized, ts, g.window)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if now-g.lastPrune > window {
		for addr, seen := range g.last {
			if seen < now-window {
				delete(g.last, addr)
			}
		}
		g.lastPrune = now
	}

	if ts <= g.last[caller] {
		return fmt.Errorf("%w: timestamp %d already used by %s", interfaces.ErrUnauthorized, ts, caller.Hex())
	}
	g.last[caller] = ts
	return nil
}

func (g *replayGuard) tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.last)
}
