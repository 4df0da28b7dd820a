// This file implements LRU eviction.

package eviction

import "container/list"

type lru struct {
	// order holds keys, front = most recently used.
	order *list.List
	nodes map[string]*list.Element
}

func newLRU() *lru {
	return &lru{
		order: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

func (l *lru) OnGet(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.MoveToFront(e)
	}
}

// OnPut treats a replaced key as used: a revalidated page was just wanted by someone.
func (l *lru) OnPut(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.MoveToFront(e)
		return
	}
	l.nodes[k] = l.order.PushFront(k)
}

func (l *lru) Remove(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.Remove(e)
		delete(l.nodes, k)
	}
}

func (l *lru) Evict() string {
	back := l.order.Back()
	if back == nil {
		return ""
	}
	k := l.order.Remove(back).(string)
	delete(l.nodes, k)
	return k
}

func (l *lru) Len() int { return l.order.Len() }
