package processor_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/stretchr/testify/assert"
)

func trackerRule(windowMinutes int) *models.SensorRule {
	return &models.SensorRule{
		ID:                      uuid.New(),
		EvaluationWindowMinutes: windowMinutes,
		Enabled:                 true,
	}
}

// TestViolationTracker_ConsecutiveCounting tests the strict run semantics
func TestViolationTracker_ConsecutiveCounting(t *testing.T) {
	t.Run("should count an uninterrupted run of matches", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		key := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}
		now := time.Now()

		assert.Equal(t, 1, tracker.Update(key, rule, now, true))
		assert.Equal(t, 2, tracker.Update(key, rule, now.Add(10*time.Second), true))
		assert.Equal(t, 3, tracker.Update(key, rule, now.Add(20*time.Second), true))
	})

	t.Run("should reset the run on a single non-match", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		key := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}
		now := time.Now()

		tracker.Update(key, rule, now, true)
		tracker.Update(key, rule, now.Add(10*time.Second), true)
		assert.Equal(t, 0, tracker.Update(key, rule, now.Add(20*time.Second), false))
		assert.Equal(t, 1, tracker.Update(key, rule, now.Add(30*time.Second), true))
	})

	t.Run("should track keys independently", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		keyA := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}
		keyB := processor.Key{RuleID: rule.ID, DeviceSensorID: "d2:4"}
		now := time.Now()

		tracker.Update(keyA, rule, now, true)
		tracker.Update(keyA, rule, now.Add(time.Second), true)
		tracker.Update(keyB, rule, now, false)

		assert.Equal(t, 2, tracker.Count(keyA))
		assert.Equal(t, 0, tracker.Count(keyB))
	})

	t.Run("should return zero for an unknown key", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		key := processor.Key{RuleID: uuid.New(), DeviceSensorID: "d1:4"}

		assert.Equal(t, 0, tracker.Count(key))
		assert.Equal(t, 0, tracker.WindowSize(key))
	})
}

// TestViolationTracker_SlidingWindow tests time-based pruning
func TestViolationTracker_SlidingWindow(t *testing.T) {
	t.Run("should prune entries older than the evaluation window", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		key := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}
		now := time.Now()

		tracker.Update(key, rule, now, true)
		tracker.Update(key, rule, now.Add(time.Minute), true)
		assert.Equal(t, 2, tracker.WindowSize(key))

		// Six minutes later both earlier entries fall out of the window.
		tracker.Update(key, rule, now.Add(6*time.Minute), true)
		assert.Equal(t, 1, tracker.WindowSize(key))
	})

	t.Run("should keep entries exactly inside the window", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		key := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}
		now := time.Now()

		tracker.Update(key, rule, now, true)
		tracker.Update(key, rule, now.Add(5*time.Minute-time.Second), true)

		assert.Equal(t, 2, tracker.WindowSize(key))
	})

	t.Run("should preserve the consecutive count across pruning", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		key := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}
		now := time.Now()

		tracker.Update(key, rule, now, true)
		count := tracker.Update(key, rule, now.Add(10*time.Minute), true)

		// The run is about evaluations, not wall-clock adjacency.
		assert.Equal(t, 2, count)
	})
}

// TestViolationTracker_Clear tests state removal
func TestViolationTracker_Clear(t *testing.T) {
	t.Run("should clear a single key", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		rule := trackerRule(5)
		key := processor.Key{RuleID: rule.ID, DeviceSensorID: "d1:4"}

		tracker.Update(key, rule, time.Now(), true)
		tracker.Clear(key)

		assert.Equal(t, 0, tracker.Count(key))
		assert.Equal(t, 0, tracker.WindowSize(key))
	})

	t.Run("should clear every key under a rule", func(t *testing.T) {
		tracker := processor.NewViolationTracker()
		ruleA := trackerRule(5)
		ruleB := trackerRule(5)
		now := time.Now()

		keyA1 := processor.Key{RuleID: ruleA.ID, DeviceSensorID: "d1:4"}
		keyA2 := processor.Key{RuleID: ruleA.ID, DeviceSensorID: "d2:4"}
		keyB := processor.Key{RuleID: ruleB.ID, DeviceSensorID: "d1:4"}

		tracker.Update(keyA1, ruleA, now, true)
		tracker.Update(keyA2, ruleA, now, true)
		tracker.Update(keyB, ruleB, now, true)

		tracker.ClearRule(ruleA.ID)

		assert.Equal(t, 0, tracker.Count(keyA1))
		assert.Equal(t, 0, tracker.Count(keyA2))
		assert.Equal(t, 1, tracker.Count(keyB))
	})
}
