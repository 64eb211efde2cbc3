// Package cache bounds how many channels keep a materialized message cache.
package cache

import (
	"container/list"
	"sync"

	"drocsid/utils"
)

const DefaultCapacity = 5

// Governor is an access-ordered set of channel ids with a fixed capacity. It
// only decides which channels to evict; dropping their data is up to the caller.
type Governor struct {
	mu       sync.Mutex
	capacity int
	// front is most recently used
	order *list.List
	index map[string]*list.Element
}

func NewGovernor(capacity int) *Governor {
	utils.AssertInvariant(capacity >= 1, "cache capacity must be positive")
	return &Governor{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Touch marks channelID as most recently used and returns the channels evicted
// to stay within capacity, least recently used first.
func (g *Governor) Touch(channelID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, ok := g.index[channelID]; ok {
		g.order.MoveToFront(el)
		return nil
	}
	g.index[channelID] = g.order.PushFront(channelID)

	var evicted []string
	for g.order.Len() > g.capacity {
		oldest := g.order.Back()
		id := g.order.Remove(oldest).(string)
		delete(g.index, id)
		evicted = append(evicted, id)
	}
	utils.AssertInvariant(len(g.index) == g.order.Len(), "cache index out of sync")
	return evicted
}

// Remove forgets channelID, e.g. after the channel was deleted
func (g *Governor) Remove(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	el, ok := g.index[channelID]
	if !ok {
		return false
	}
	g.order.Remove(el)
	delete(g.index, channelID)
	return true
}

func (g *Governor) Contains(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.index[channelID]
	return ok
}

// Channels lists tracked channels, most recently used first
func (g *Governor) Channels() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, g.order.Len())
	for el := g.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(string))
	}
	return ids
}

func (g *Governor) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}

func (g *Governor) Capacity() int {
	return g.capacity
}

// Reset forgets every channel
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.order.Init()
	g.index = make(map[string]*list.Element)
}
