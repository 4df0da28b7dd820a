// This file implements FIFO eviction.

package eviction

import "container/list"

type fifo struct {
	// queue front = oldest insertion.
	queue *list.List
	nodes map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{
		queue: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

func (f *fifo) OnGet(string) {}

// OnPut only records the first insertion; replacing a value keeps its place in line.
func (f *fifo) OnPut(k string) {
	if _, ok := f.nodes[k]; ok {
		return
	}
	f.nodes[k] = f.queue.PushBack(k)
}

func (f *fifo) Remove(k string) {
	if e, ok := f.nodes[k]; ok {
		f.queue.Remove(e)
		delete(f.nodes, k)
	}
}

func (f *fifo) Evict() string {
	front := f.queue.Front()
	if front == nil {
		return ""
	}
	k := f.queue.Remove(front).(string)
	delete(f.nodes, k)
	return k
}

func (f *fifo) Len() int { return f.queue.Len() }
