package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateGateAllowsUpToLimit(t *testing.T) {
	gate := NewRecipientRateGate(2, time.Minute)

	assert.True(t, gate.CheckAndRecord("sender", "a"))
	assert.True(t, gate.CheckAndRecord("sender", "b"))
	assert.False(t, gate.CheckAndRecord("sender", "c"))
}

func TestRateGateRecordsDeniedRecipient(t *testing.T) {
	gate := NewRecipientRateGate(2, time.Minute)

	gate.CheckAndRecord("sender", "a")
	gate.CheckAndRecord("sender", "b")
	gate.CheckAndRecord("sender", "c")

	// The denied recipient was still recorded, so the set holds three
	// entries and retrying it stays denied.
	assert.Len(t, gate.entries["sender"].recipients, 3)
	assert.False(t, gate.CheckAndRecord("sender", "c"))
}

func TestRateGateRepeatRecipientCountsOnce(t *testing.T) {
	gate := NewRecipientRateGate(2, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, gate.CheckAndRecord("sender", "a"))
	}
	assert.True(t, gate.CheckAndRecord("sender", "b"))
}

func TestRateGateWindowReset(t *testing.T) {
	current := time.Unix(1000, 0)
	gate := NewRecipientRateGate(2, time.Minute)
	gate.now = func() time.Time { return current }

	gate.CheckAndRecord("sender", "a")
	gate.CheckAndRecord("sender", "b")
	assert.False(t, gate.CheckAndRecord("sender", "c"))

	// Once the window has elapsed the set is cleared before recording,
	// so a single recipient is allowed regardless of prior size.
	current = current.Add(time.Minute + time.Second)
	assert.True(t, gate.CheckAndRecord("sender", "c"))
	assert.Len(t, gate.entries["sender"].recipients, 1)
}

func TestRateGateExactWindowBoundaryDoesNotReset(t *testing.T) {
	current := time.Unix(1000, 0)
	gate := NewRecipientRateGate(1, time.Minute)
	gate.now = func() time.Time { return current }

	gate.CheckAndRecord("sender", "a")

	// Elapsed == window is still inside the window.
	current = current.Add(time.Minute)
	assert.False(t, gate.CheckAndRecord("sender", "b"))
}

func TestRateGateTracksUsersIndependently(t *testing.T) {
	gate := NewRecipientRateGate(1, time.Minute)

	assert.True(t, gate.CheckAndRecord("u1", "a"))
	assert.True(t, gate.CheckAndRecord("u2", "a"))
	assert.False(t, gate.CheckAndRecord("u1", "b"))
	assert.False(t, gate.CheckAndRecord("u2", "b"))
}

func TestRateGateCleanupDropsStaleEntries(t *testing.T) {
	current := time.Unix(1000, 0)
	gate := NewRecipientRateGate(2, time.Minute)
	gate.now = func() time.Time { return current }

	gate.CheckAndRecord("stale", "a")
	current = current.Add(3 * time.Minute)
	gate.CheckAndRecord("fresh", "a")

	current = current.Add(3 * time.Minute)
	gate.Cleanup()

	assert.NotContains(t, gate.entries, "stale")
	assert.Contains(t, gate.entries, "fresh")
}
