// Package toolcache probes for ecosystem binaries on PATH and caches the
// results so repeated healing iterations do not re-stat the filesystem.
package toolcache

import (
	"os/exec"
	"sync"
	"time"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

type probeEntry struct {
	available bool
	checkedAt time.Time
}

// Prober implements ports.ToolProber with a TTL cache over exec.LookPath.
type Prober struct {
	mu      sync.Mutex
	entries map[string]probeEntry
	ttl     time.Duration

	// lookPath is swappable for tests.
	lookPath func(name string) (string, error)
}

// NewProber returns a prober with the default probe TTL.
func NewProber() *Prober {
	return &Prober{
		entries:  make(map[string]probeEntry),
		ttl:      domain.DefaultToolCacheDuration,
		lookPath: exec.LookPath,
	}
}

// Available reports whether the named binary is on PATH, serving cached
// results within the TTL window.
func (p *Prober) Available(name string) bool {
	if name == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[name]; ok && time.Since(entry.checkedAt) < p.ttl {
		return entry.available
	}

	_, err := p.lookPath(name)
	entry := probeEntry{available: err == nil, checkedAt: time.Now()}
	p.entries[name] = entry
	return entry.available
}

// Invalidate drops the cached result for one tool, forcing a fresh probe.
// Healers call this after installing a toolchain.
func (p *Prober) Invalidate(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, name)
}

var _ ports.ToolProber = (*Prober)(nil)
