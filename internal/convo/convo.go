// Package convo keeps bounded per-conversation context in memory. Each
// conversation holds a ring of its most recent messages, updated in
// completion order, and the table itself is capped by an expirable LRU so
// idle conversations age out.
package convo

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is one completed message in a conversation.
type Entry struct {
	Text        string
	SourceLang  string
	TargetLang  string
	CompletedAt time.Time
}

type conversation struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func (c *conversation) append(e Entry) {
	c.mu.Lock()
	c.entries[c.next] = e
	c.next = (c.next + 1) % len(c.entries)
	if c.next == 0 {
		c.full = true
	}
	c.mu.Unlock()
}

// Table maps conversation ids to their recent history.
type Table struct {
	mu    sync.Mutex
	depth int
	table *expirable.LRU[string, *conversation]
}

// NewTable builds a context table keeping up to depth entries per
// conversation, at most maxConversations conversations, each expiring
// after ttl of inactivity on write.
func NewTable(depth, maxConversations int, ttl time.Duration) *Table {
	if depth <= 0 {
		depth = 16
	}
	if maxConversations <= 0 {
		maxConversations = 4096
	}
	return &Table{
		depth: depth,
		table: expirable.NewLRU[string, *conversation](maxConversations, nil, ttl),
	}
}

// Append records a completed message for the conversation. Entries are
// stored in call order; once the ring is full the oldest entry is
// overwritten.
func (t *Table) Append(conversationID string, e Entry) {
	if conversationID == "" {
		return
	}

	t.mu.Lock()
	c, ok := t.table.Get(conversationID)
	if !ok {
		c = &conversation{entries: make([]Entry, t.depth)}
	}
	// Add also refreshes the TTL for existing keys.
	t.table.Add(conversationID, c)
	t.mu.Unlock()

	c.append(e)
}

// Known reports whether the conversation is currently tracked.
func (t *Table) Known(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.Contains(conversationID)
}

// Seed registers a conversation primed with history entries, oldest first.
// A conversation that is already tracked stays untouched, so live updates
// always win over replayed history. Seeding with no entries still marks
// the conversation known.
func (t *Table) Seed(conversationID string, entries []Entry) {
	if conversationID == "" {
		return
	}

	t.mu.Lock()
	if t.table.Contains(conversationID) {
		t.mu.Unlock()
		return
	}
	c := &conversation{entries: make([]Entry, t.depth)}
	t.table.Add(conversationID, c)
	t.mu.Unlock()

	for _, e := range entries {
		c.append(e)
	}
}

// Recent returns up to n entries for the conversation, oldest first.
func (t *Table) Recent(conversationID string, n int) []Entry {
	t.mu.Lock()
	c, ok := t.table.Get(conversationID)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.next
	start := 0
	if c.full {
		size = len(c.entries)
		start = c.next
	}

	out := make([]Entry, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, c.entries[(start+i)%len(c.entries)])
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// DominantLanguage returns the most frequent source language across the
// conversation's recent entries, preferring the most recently seen on
// ties. Empty when the conversation has no history.
func (t *Table) DominantLanguage(conversationID string) string {
	entries := t.Recent(conversationID, 0)
	if len(entries) == 0 {
		return ""
	}

	counts := make(map[string]int, len(entries))
	lastSeen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.SourceLang == "" {
			continue
		}
		counts[e.SourceLang]++
		lastSeen[e.SourceLang] = i
	}

	best := ""
	for lang, n := range counts {
		switch {
		case best == "", n > counts[best]:
			best = lang
		case n == counts[best] && lastSeen[lang] > lastSeen[best]:
			best = lang
		}
	}
	return best
}
