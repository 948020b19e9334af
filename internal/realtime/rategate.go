package realtime

import (
	"sync"
	"time"
)

// RecipientRateGate counts the distinct recipients each user has messaged
// in the current fixed window. It is an abuse signal, not an enforcement
// point: CheckAndRecord records the recipient even when it answers false,
// so retrying the same recipient keeps tripping the limit until the
// window resets.
//
// The fixed window resets when a check arrives after the window has
// elapsed, which allows bursts of up to twice the limit across a window
// boundary. That imprecision is accepted in exchange for keeping the
// state to one small map.
type RecipientRateGate struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	entries map[string]*recipientWindow
}

type recipientWindow struct {
	recipients map[string]struct{}
	start      time.Time
}

// NewRecipientRateGate creates a gate allowing limit distinct recipients
// per user per window.
func NewRecipientRateGate(limit int, window time.Duration) *RecipientRateGate {
	return &RecipientRateGate{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*recipientWindow),
	}
}

// CheckAndRecord records that userID is sending to recipientID and
// reports whether the user's distinct-recipient count is still within the
// limit. The recipient is recorded unconditionally, before the limit is
// evaluated.
func (g *RecipientRateGate) CheckAndRecord(userID, recipientID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	entry, ok := g.entries[userID]
	if !ok {
		entry = &recipientWindow{
			recipients: make(map[string]struct{}),
			start:      now,
		}
		g.entries[userID] = entry
	}

	if now.Sub(entry.start) > g.window {
		entry.recipients = make(map[string]struct{})
		entry.start = now
	}

	entry.recipients[recipientID] = struct{}{}

	return len(entry.recipients) <= g.limit
}

// Cleanup drops entries whose window expired long ago. Call periodically
// to keep the map from accumulating one entry per user ever seen.
func (g *RecipientRateGate) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for userID, entry := range g.entries {
		if now.Sub(entry.start) > 5*g.window {
			delete(g.entries, userID)
		}
	}
}
