package video

import (
	"container/list"
	"sync"
	"time"

	"ytsummarizer/internal/domain"
)

type infoCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type infoCacheEntry struct {
	videoID   string
	info      domain.VideoInfo
	expiresAt time.Time
}

func newInfoCache(maxEntries int) *infoCache {
	if maxEntries <= 0 {
		return nil
	}

	return &infoCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *infoCache) get(videoID string, now time.Time) (domain.VideoInfo, bool) {
	if c == nil || videoID == "" {
		return domain.VideoInfo{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[videoID]
	if !ok {
		return domain.VideoInfo{}, false
	}

	entry := elem.Value.(*infoCacheEntry)
	if now.After(entry.expiresAt) {
		c.removeElement(elem)

		return domain.VideoInfo{}, false
	}

	c.order.MoveToFront(elem)

	return entry.info, true
}

func (c *infoCache) set(
	videoID string,
	info domain.VideoInfo,
	expiresAt time.Time,
	now time.Time,
) {
	if c == nil || videoID == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[videoID]; ok {
		entry := elem.Value.(*infoCacheEntry)
		entry.info = info
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[videoID] = c.order.PushFront(&infoCacheEntry{
		videoID:   videoID,
		info:      info,
		expiresAt: expiresAt,
	})

	c.evictExpiredLocked(now)

	for len(c.entries) > c.maxEntries {
		c.removeElement(c.order.Back())
	}
}

func (c *infoCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*infoCacheEntry).expiresAt) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

func (c *infoCache) removeElement(elem *list.Element) {
	delete(c.entries, elem.Value.(*infoCacheEntry).videoID)
	c.order.Remove(elem)
}
