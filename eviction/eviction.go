package eviction

import (
	"fmt"
	"strings"
)

/*
Policy decides which key leaves a full shard.

The shard calls these methods while holding its write lock, so implementations
need no locking of their own.
*/
type Policy interface {

	// OnGet is called when a key is read. LRU moves it to the front; FIFO ignores it.
	OnGet(string)

	// OnPut is called when a key is stored, new or replaced.
	OnPut(string)

	// Remove is called when a key is invalidated (not evicted), so the policy
	// can drop its bookkeeping.
	Remove(string)

	// Evict returns the key that should go, or "" when nothing is tracked.
	Evict() string

	// Len returns the number of tracked keys.
	Len() int
}

// PolicyType identifies an eviction strategy in config.
type PolicyType string

const (
	// LRU evicts the key read or written least recently. Paging through a list
	// keeps the pages around it warm, so this is the default.
	LRU PolicyType = "LRU"

	// FIFO evicts the key stored first, ignoring reads.
	FIFO PolicyType = "FIFO"
)

// ParsePolicyType accepts the config spelling of a policy, case-insensitively.
func ParsePolicyType(s string) (PolicyType, error) {
	switch t := PolicyType(strings.ToUpper(strings.TrimSpace(s))); t {
	case LRU, FIFO:
		return t, nil
	case "":
		return LRU, nil
	default:
		return "", fmt.Errorf("unknown eviction policy %q", s)
	}
}

// NewEvictionPolicy returns a fresh policy instance of the given type.
func NewEvictionPolicy(t PolicyType) (Policy, error) {
	switch t {
	case LRU:
		return newLRU(), nil
	case FIFO:
		return newFIFO(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", t)
	}
}
