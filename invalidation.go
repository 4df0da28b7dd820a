package cache

import (
	"strings"
	"sync"
)

// invalidationLogSize is how many recent invalidations are remembered for
// in-flight fetches. A fetch older than the log is treated as invalidated.
const invalidationLogSize = 128

type invalidation struct {
	seq    uint64
	target string
	prefix bool
}

func (i invalidation) matches(key string) bool {
	if i.prefix {
		return strings.HasPrefix(key, i.target)
	}
	return key == i.target
}

// invalidationLog is a ring of the most recent invalidations, numbered by seq.
type invalidationLog struct {
	mu   sync.Mutex
	seq  uint64
	ring [invalidationLogSize]invalidation
}

func (l *invalidationLog) current() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func (l *invalidationLog) record(target string, prefix bool) {
	l.mu.Lock()
	l.seq++
	l.ring[l.seq%invalidationLogSize] = invalidation{seq: l.seq, target: target, prefix: prefix}
	l.mu.Unlock()
}

// touchedSince reports whether any invalidation after since covers key.
func (l *invalidationLog) touchedSince(since uint64, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seq == since {
		return false
	}
	if l.seq-since > invalidationLogSize {
		return true
	}
	for s := since + 1; s <= l.seq; s++ {
		if l.ring[s%invalidationLogSize].matches(key) {
			return true
		}
	}
	return false
}
