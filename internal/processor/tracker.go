package processor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
)

// Key identifies one evaluation stream: a rule bound to a device sensor.
type Key struct {
	RuleID         uuid.UUID
	DeviceSensorID string
}

func (k Key) String() string {
	return k.RuleID.String() + "/" + k.DeviceSensorID
}

type windowEntry struct {
	at      time.Time
	matched bool
}

type violationWindow struct {
	entries          []windowEntry
	consecutiveCount int
}

// ViolationTracker maintains, per key, a time-bounded window of evaluation
// outcomes and a consecutive-match counter. "Consecutive" means a strict
// uninterrupted run of matches: one non-match resets the run to zero.
type ViolationTracker struct {
	mu      sync.Mutex
	windows map[Key]*violationWindow
}

// NewViolationTracker creates an empty tracker.
func NewViolationTracker() *ViolationTracker {
	return &ViolationTracker{
		windows: make(map[Key]*violationWindow),
	}
}

// Update records one evaluation outcome and returns the current consecutive
// match count. Entries older than the rule's evaluation window are pruned on
// every call.
func (t *ViolationTracker) Update(key Key, rule *models.SensorRule, at time.Time, matched bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[key]
	if !ok {
		w = &violationWindow{}
		t.windows[key] = w
	}

	cutoff := at.Add(-rule.EvaluationWindow())
	pruned := w.entries[:0]
	for _, e := range w.entries {
		if e.at.After(cutoff) {
			pruned = append(pruned, e)
		}
	}
	w.entries = append(pruned, windowEntry{at: at, matched: matched})

	if matched {
		w.consecutiveCount++
	} else {
		w.consecutiveCount = 0
	}
	return w.consecutiveCount
}

// Count returns the current consecutive match count for a key.
func (t *ViolationTracker) Count(key Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.windows[key]; ok {
		return w.consecutiveCount
	}
	return 0
}

// WindowSize returns the number of retained entries for a key.
func (t *ViolationTracker) WindowSize(key Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.windows[key]; ok {
		return len(w.entries)
	}
	return 0
}

// Clear drops all state for one key.
func (t *ViolationTracker) Clear(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, key)
}

// ClearRule drops state for every device sensor tracked under a rule. Called
// when the rule is disabled or deleted.
func (t *ViolationTracker) ClearRule(ruleID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.windows {
		if key.RuleID == ruleID {
			delete(t.windows, key)
		}
	}
}
