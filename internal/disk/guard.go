// Package disk guards the output volume against exhaustion.
//
// The guard answers one question on demand: does the volume holding the
// output directory still have at least the configured minimum free space?
// The query is idempotent and side-effect-free; callers decide what a
// refusal means (stop submitting tasks).
package disk

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/nssanta/bybitarc/internal/errors"
)

// Guard checks free space on the volume holding a directory.
type Guard struct {
	path    string
	minFree uint64

	// last free-space reading, for reporting
	last atomic.Uint64
}

// New creates a guard for the volume holding path, refusing authorization
// when free space drops below minFreeBytes.
func New(path string, minFreeBytes uint64) *Guard {
	return &Guard{path: path, minFree: minFreeBytes}
}

// FreeSpace returns the bytes available to unprivileged users on the
// volume holding the guard's path.
func (g *Guard) FreeSpace() (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(g.path, &st); err != nil {
		return 0, errors.Wrapf(err, "statfs %s", g.path)
	}

	free := st.Bavail * uint64(st.Bsize)
	g.last.Store(free)
	return free, nil
}

// Authorize reports whether further task submission is allowed. A statfs
// failure refuses authorization: an unreadable volume is treated the same
// as a full one.
func (g *Guard) Authorize() (bool, error) {
	free, err := g.FreeSpace()
	if err != nil {
		return false, err
	}
	return free >= g.minFree, nil
}

// LastFree returns the most recent free-space reading without re-querying.
func (g *Guard) LastFree() uint64 {
	return g.last.Load()
}

// MinFree returns the configured minimum.
func (g *Guard) MinFree() uint64 {
	return g.minFree
}

// BytesFromGB converts a gigabyte threshold from config to bytes.
func BytesFromGB(gb float64) uint64 {
	if gb <= 0 {
		return 0
	}
	return uint64(gb * (1 << 30))
}
