// Package progress implements a goroutine-safe progress counter for long
// batch phases. Updates arrive from concurrent bisection tasks; printing is
// rate-limited so the swap-heavy inner loops never block on the terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Reporter accumulates completed work units toward a fixed goal.
type Reporter struct {
	name string
	goal uint64

	mu        sync.Mutex
	count     uint64
	start     time.Time
	lastPrint time.Time
	out       io.Writer
}

// New creates a Reporter for the given phase name and total work units.
func New(name string, goal uint64) (*Reporter, error) {
	if goal == 0 {
		return nil, fmt.Errorf("progress %q: goal must be positive", name)
	}
	return &Reporter{
		name:  name,
		goal:  goal,
		start: time.Now(),
		out:   os.Stderr,
	}, nil
}

// Update records inc completed units.
func (r *Reporter) Update(inc uint64) {
	r.mu.Lock()
	r.count += inc
	r.mu.Unlock()
}

// UpdateAndPrint records inc completed units and redraws the status line at
// most once per second.
func (r *Reporter) UpdateAndPrint(inc uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count += inc
	now := time.Now()
	if now.Sub(r.lastPrint) < time.Second && r.count < r.goal {
		return
	}
	r.lastPrint = now
	pct := 100 * r.count / r.goal
	elapsed := now.Sub(r.start).Truncate(time.Second)
	fmt.Fprintf(r.out, "\r%s: %d%% [%s]", r.name, pct, elapsed)
}

// Count returns the units recorded so far.
func (r *Reporter) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Done terminates the status line.
func (r *Reporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out)
}
