package shard

import "hash/fnv"

// Selector maps a key to the shard that owns it.
type Selector interface {
	Select(string, []*Shard) *Shard
}

// HashSelector spreads keys with FNV-1a. Keys sharing a resource prefix land on
// different shards, so a prefix invalidation visits every shard.
type HashSelector struct{}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func (HashSelector) Select(key string, shards []*Shard) *Shard {
	return shards[hash(key)%uint32(len(shards))]
}
